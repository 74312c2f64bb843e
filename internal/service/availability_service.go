package service

import (
	"context"
	"errors"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
)

// AvailabilityService сводит конфигурацию дня с занятыми слотами
type AvailabilityService struct {
	registry     *TimeSlotService
	appointments AppointmentStore
}

func NewAvailabilityService(registry *TimeSlotService, appointments AppointmentStore) *AvailabilityService {
	return &AvailabilityService{
		registry:     registry,
		appointments: appointments,
	}
}

// ListAllSlots возвращает все слоты дня с флагами available и booked
func (s *AvailabilityService) ListAllSlots(ctx context.Context, date string) ([]model.SlotView, error) {
	day, err := s.registry.GetDay(ctx, date)
	if err != nil {
		return nil, err
	}

	booked, err := s.bookedLabels(ctx, date)
	if err != nil {
		return nil, err
	}

	views := make([]model.SlotView, len(day.Slots))
	for i, slot := range day.Slots {
		views[i] = model.SlotView{
			Label:     slot.Label,
			Available: slot.Available,
			Booked:    booked[slot.Label],
		}
	}

	return views, nil
}

// ListAvailableSlots возвращает метки, доступные для записи
func (s *AvailabilityService) ListAvailableSlots(ctx context.Context, date string) ([]string, error) {
	views, err := s.ListAllSlots(ctx, date)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(views))
	for _, v := range views {
		if v.Available && !v.Booked {
			labels = append(labels, v.Label)
		}
	}

	return labels, nil
}

// IsSlotOccupied проверяет только занятость активной записью
func (s *AvailabilityService) IsSlotOccupied(ctx context.Context, date, label string) (bool, error) {
	booked, err := s.bookedLabels(ctx, date)
	if err != nil {
		return false, err
	}
	return booked[label], nil
}

// IsSlotFree проверяет, что слот существует, не заблокирован и не занят
func (s *AvailabilityService) IsSlotFree(ctx context.Context, date, label string) (bool, error) {
	err := s.checkBookable(ctx, date, label)
	if err == nil {
		return true, nil
	}

	// Занятый, заблокированный или несуществующий слот просто не свободен
	var verr *ValidationError
	if errors.Is(err, ErrSlotUnavailable) || (errors.As(err, &verr) && verr.Field == "time_slot") {
		return false, nil
	}
	return false, err
}

// checkBookable возвращает SlotUnavailableError с причиной, если слот нельзя занять
func (s *AvailabilityService) checkBookable(ctx context.Context, date, label string) error {
	day, err := s.registry.GetDay(ctx, date)
	if err != nil {
		return err
	}

	slot, ok := day.Find(label)
	if !ok {
		return invalid("time_slot", "no slot "+label+" on "+date)
	}
	if !slot.Available {
		return &SlotUnavailableError{Date: date, TimeSlot: label, Blocked: true}
	}

	occupied, err := s.IsSlotOccupied(ctx, date, label)
	if err != nil {
		return err
	}
	if occupied {
		return &SlotUnavailableError{Date: date, TimeSlot: label}
	}

	return nil
}

func (s *AvailabilityService) bookedLabels(ctx context.Context, date string) (map[string]bool, error) {
	active, err := s.appointments.ListActiveByDate(ctx, date)
	if err != nil {
		return nil, storeFailure("list active appointments", err)
	}

	booked := make(map[string]bool, len(active))
	for _, a := range active {
		if a.Status.IsActive() {
			booked[a.TimeSlot] = true
		}
	}

	return booked, nil
}
