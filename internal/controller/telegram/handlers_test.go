package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/Freeeeeet/guidance_scheduler/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubAccounts struct {
	byChat   map[int64]*model.Account
	issuedTo []int64
	err      error
	issueErr error
}

func (s *stubAccounts) ByTelegramChat(_ context.Context, chatID int64) (*model.Account, error) {
	return s.byChat[chatID], s.err
}

func (s *stubAccounts) IssueTelegramLinkCode(_ context.Context, chatID int64) (string, error) {
	if s.issueErr != nil {
		return "", s.issueErr
	}
	s.issuedTo = append(s.issuedTo, chatID)
	return "K7QF2M9X", nil
}

type stubAppointments struct {
	list []*model.Appointment
}

func (s *stubAppointments) ListByStudent(context.Context, string) ([]*model.Appointment, error) {
	return s.list, nil
}

func (s *stubAppointments) ListByStatus(context.Context, model.AppointmentStatus) ([]*model.Appointment, error) {
	return s.list, nil
}

type stubSlots struct {
	labels []string
	err    error
}

func (s *stubSlots) ListAvailableSlots(context.Context, string) ([]string, error) {
	return s.labels, s.err
}

func newTestHandlers() (*Handlers, *stubAccounts, *stubAppointments, *stubSlots) {
	accounts := &stubAccounts{byChat: map[int64]*model.Account{}}
	appointments := &stubAppointments{}
	slots := &stubSlots{}
	return NewHandlers(accounts, appointments, slots, zap.NewNop()), accounts, appointments, slots
}

func TestStartText(t *testing.T) {
	h, accounts, _, _ := newTestHandlers()
	ctx := context.Background()

	text := h.startText(ctx, 555)
	assert.Contains(t, text, "Your link code is K7QF2M9X")
	assert.Contains(t, text, "within 10 minutes")
	assert.NotContains(t, text, "555")
	assert.Equal(t, []int64{555}, accounts.issuedTo)

	accounts.issueErr = errors.New("db down")
	assert.Contains(t, h.startText(ctx, 556), "Something went wrong")

	accounts.byChat[555] = &model.Account{UID: uuid.New(), DisplayName: "Alice"}
	assert.Contains(t, h.startText(ctx, 555), "linked to Alice")
	assert.Len(t, accounts.issuedTo, 1)

	accounts.err = errors.New("db down")
	assert.Contains(t, h.startText(ctx, 555), "Something went wrong")
}

func TestAppointmentsText(t *testing.T) {
	h, accounts, appointments, _ := newTestHandlers()
	ctx := context.Background()

	assert.Contains(t, h.appointmentsText(ctx, 1), "not linked")

	studentID := "2021-0001"
	accounts.byChat[1] = &model.Account{UID: uuid.New(), StudentID: &studentID, Capabilities: []model.Capability{model.CapabilityStudent}}
	assert.Equal(t, "Your appointments: none.", h.appointmentsText(ctx, 1))

	appointments.list = []*model.Appointment{{
		ID:            uuid.New(),
		StudentName:   "Student 2021-0001",
		CounselorType: model.CounselorTypeCareer,
		Date:          "2024-03-04",
		TimeSlot:      "10:00 AM",
		Status:        model.AppointmentStatusConfirmed,
	}}
	text := h.appointmentsText(ctx, 1)
	assert.Contains(t, text, "2024-03-04 10:00 AM - career (confirmed)")
	assert.NotContains(t, text, "Student 2021-0001")

	accounts.byChat[2] = &model.Account{UID: uuid.New(), Capabilities: []model.Capability{model.CapabilityCounselor}}
	text = h.appointmentsText(ctx, 2)
	assert.Contains(t, text, "Pending requests")
	assert.Contains(t, text, "Student 2021-0001")
}

func TestSlotsText(t *testing.T) {
	h, _, _, slots := newTestHandlers()
	ctx := context.Background()

	assert.Contains(t, h.slotsText(ctx, ""), "Usage")
	assert.Equal(t, "No free slots on 2024-03-04.", h.slotsText(ctx, "2024-03-04"))

	slots.labels = []string{"9:00 AM", "11:00 AM"}
	assert.Equal(t, "Free slots on 2024-03-04:\n9:00 AM\n11:00 AM", h.slotsText(ctx, "2024-03-04"))

	slots.err = fmt.Errorf("date: %w", service.ErrValidation)
	assert.Equal(t, "Invalid date tomorrow. Usage: /slots YYYY-MM-DD", h.slotsText(ctx, "tomorrow"))

	// Текст ошибки хранилища не уходит в чат
	slots.err = fmt.Errorf("list slots: %w", errors.New("pq: password authentication failed for user portal"))
	text := h.slotsText(ctx, "2024-03-04")
	assert.Equal(t, "Something went wrong. Please try again later.", text)
	assert.NotContains(t, text, "password")
}
