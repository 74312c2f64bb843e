package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
)

var (
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrIOFailure         = errors.New("store failure")
	ErrForbidden         = errors.New("forbidden")
)

// TransitionError переход статуса, запрещённый из текущего состояния
type TransitionError struct {
	AppointmentID uuid.UUID
	Current       model.AppointmentStatus
	Requested     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s appointment %s in status %s", e.Requested, e.AppointmentID, e.Current)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ValidationError некорректное или отсутствующее поле
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// SlotUnavailableError слот занят или заблокирован
type SlotUnavailableError struct {
	Date     string
	TimeSlot string
	Blocked  bool
}

func (e *SlotUnavailableError) Error() string {
	if e.Blocked {
		return fmt.Sprintf("slot %s %s is blocked", e.Date, e.TimeSlot)
	}
	return fmt.Sprintf("slot %s %s is already taken", e.Date, e.TimeSlot)
}

func (e *SlotUnavailableError) Is(target error) bool {
	return target == ErrSlotUnavailable
}

// storeError оборачивает ошибку хранилища, сохраняя исходную причину
type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *storeError) Unwrap() []error {
	return []error{ErrIOFailure, e.err}
}

func storeFailure(op string, err error) error {
	return &storeError{op: op, err: err}
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

func forbidden(action string) error {
	return fmt.Errorf("%s: %w", action, ErrForbidden)
}
