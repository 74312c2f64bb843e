package service

import (
	"context"
	"strings"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/events"
	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingRequest данные студента для новой записи
type BookingRequest struct {
	StudentID     string              `json:"student_id"`
	StudentName   string              `json:"student_name"`
	Email         string              `json:"email"`
	CounselorType model.CounselorType `json:"counselor_type"`
	Date          string              `json:"date"`
	TimeSlot      string              `json:"time_slot"`
	Purpose       string              `json:"purpose"`
}

type AppointmentService struct {
	availability  *AvailabilityService
	store         AppointmentStore
	notifications *NotificationService
	publisher     events.Publisher
	location      *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

func NewAppointmentService(
	availability *AvailabilityService,
	store AppointmentStore,
	notifications *NotificationService,
	publisher events.Publisher,
	location *time.Location,
	logger *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		availability:  availability,
		store:         store,
		notifications: notifications,
		publisher:     publisher,
		location:      location,
		now:           time.Now,
		logger:        logger,
	}
}

// Book создаёт запись в статусе pending, если слот свободен
func (s *AppointmentService) Book(ctx context.Context, actor model.Account, req BookingRequest) (*model.Appointment, error) {
	if !actor.OwnsStudentID(req.StudentID) && !actor.IsCounselor() {
		return nil, forbidden("book appointment for another student")
	}

	if err := s.validateBooking(req); err != nil {
		return nil, err
	}

	// Проверка до записи даёт понятную причину; атомарность обеспечивает CreateIfSlotFree
	if err := s.availability.checkBookable(ctx, req.Date, req.TimeSlot); err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		ID:            uuid.New(),
		StudentID:     req.StudentID,
		StudentName:   strings.TrimSpace(req.StudentName),
		Email:         strings.TrimSpace(req.Email),
		CounselorType: req.CounselorType,
		Date:          req.Date,
		TimeSlot:      req.TimeSlot,
		Purpose:       strings.TrimSpace(req.Purpose),
		Status:        model.AppointmentStatusPending,
	}

	claim, err := s.store.CreateIfSlotFree(ctx, appointment)
	if err != nil {
		return nil, storeFailure("create appointment", err)
	}
	if claim != model.SlotClaimed {
		return nil, &SlotUnavailableError{
			Date:     req.Date,
			TimeSlot: req.TimeSlot,
			Blocked:  claim == model.SlotClaimBlocked,
		}
	}

	s.logger.Info("Appointment booked",
		zap.String("appointment_id", appointment.ID.String()),
		zap.String("student_id", appointment.StudentID),
		zap.String("date", appointment.Date),
		zap.String("time_slot", appointment.TimeSlot),
	)

	s.notifications.Notify(ctx, ScheduledEvent(appointment))
	s.publish(ctx, appointment, "")

	return appointment, nil
}

func (s *AppointmentService) validateBooking(req BookingRequest) error {
	if strings.TrimSpace(req.StudentID) == "" {
		return invalid("student_id", "required")
	}
	if strings.TrimSpace(req.StudentName) == "" {
		return invalid("student_name", "required")
	}
	if strings.TrimSpace(req.Purpose) == "" {
		return invalid("purpose", "required")
	}
	if !req.CounselorType.Valid() {
		return invalid("counselor_type", "unknown counselor type "+string(req.CounselorType))
	}

	instant, err := model.SlotInstant(req.Date, req.TimeSlot, s.location)
	if err != nil {
		return invalid("date", err.Error())
	}
	if !instant.After(s.now()) {
		return invalid("time_slot", "slot is in the past")
	}

	return nil
}

// Approve подтверждает запись в статусе pending
func (s *AppointmentService) Approve(ctx context.Context, actor model.Account, id uuid.UUID) (*model.Appointment, error) {
	if !actor.IsCounselor() {
		return nil, forbidden("approve appointment")
	}

	a, prev, err := s.transition(ctx, id, "approve",
		[]model.AppointmentStatus{model.AppointmentStatusPending},
		model.StatusUpdate{Status: model.AppointmentStatusConfirmed},
	)
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, StatusChangedEvent(a, nil, false))
	s.publish(ctx, a, prev)

	return a, nil
}

// Reject отклоняет запись в статусе pending; причина необязательна
func (s *AppointmentService) Reject(ctx context.Context, actor model.Account, id uuid.UUID, reason string) (*model.Appointment, error) {
	if !actor.IsCounselor() {
		return nil, forbidden("reject appointment")
	}

	upd := model.StatusUpdate{Status: model.AppointmentStatusRejected}
	if r := strings.TrimSpace(reason); r != "" {
		upd.Reason = &r
	}

	a, prev, err := s.transition(ctx, id, "reject",
		[]model.AppointmentStatus{model.AppointmentStatusPending}, upd)
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, StatusChangedEvent(a, upd.Reason, false))
	s.publish(ctx, a, prev)

	return a, nil
}

// Complete завершает подтверждённую запись
func (s *AppointmentService) Complete(ctx context.Context, actor model.Account, id uuid.UUID) (*model.Appointment, error) {
	if !actor.IsCounselor() {
		return nil, forbidden("complete appointment")
	}

	a, prev, err := s.transition(ctx, id, "complete",
		[]model.AppointmentStatus{model.AppointmentStatusConfirmed},
		model.StatusUpdate{Status: model.AppointmentStatusCompleted},
	)
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, StatusChangedEvent(a, nil, false))
	s.publish(ctx, a, prev)

	return a, nil
}

// CancelByStudent отменяет активную запись по инициативе студента
func (s *AppointmentService) CancelByStudent(ctx context.Context, actor model.Account, id uuid.UUID, reason string) (*model.Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "cancellation reason is required")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.OwnsStudentID(current.StudentID) {
		return nil, forbidden("cancel another student's appointment")
	}

	by := model.CancelledByStudent
	a, prev, err := s.transition(ctx, id, "cancel", model.ActiveStatuses, model.StatusUpdate{
		Status:         model.AppointmentStatusCancelled,
		Reason:         &reason,
		CancellationBy: &by,
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, CancelledByStudentEvent(a, reason))
	s.publish(ctx, a, prev)

	return a, nil
}

// CancelByGuidance отменяет активную запись по инициативе консультанта;
// студент должен подтвердить отмену
func (s *AppointmentService) CancelByGuidance(ctx context.Context, actor model.Account, id uuid.UUID, reason string) (*model.Appointment, error) {
	if !actor.IsCounselor() {
		return nil, forbidden("cancel appointment as guidance")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "cancellation reason is required")
	}

	by := model.CancelledByGuidance
	a, prev, err := s.transition(ctx, id, "cancel", model.ActiveStatuses, model.StatusUpdate{
		Status:                 model.AppointmentStatusCancelled,
		Reason:                 &reason,
		CancellationBy:         &by,
		RequiresAcknowledgment: true,
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, StatusChangedEvent(a, &reason, true))
	s.publish(ctx, a, prev)

	return a, nil
}

// Acknowledge отмечает, что студент увидел отмену консультантом.
// Повторный вызов ничего не меняет и не возвращает ошибку.
func (s *AppointmentService) Acknowledge(ctx context.Context, actor model.Account, id uuid.UUID) (*model.Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.OwnsStudentID(current.StudentID) {
		return nil, forbidden("acknowledge another student's appointment")
	}

	a, err := s.store.Acknowledge(ctx, id, s.now())
	if err != nil {
		return nil, storeFailure("acknowledge appointment", err)
	}

	if a == nil {
		current, err = s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.CancelledByGuidance() && current.Acknowledged {
			return current, nil
		}
		return nil, &TransitionError{AppointmentID: id, Current: current.Status, Requested: "acknowledge"}
	}

	s.notifications.AcknowledgeForAppointment(ctx, a.ID, actor.UID)

	s.logger.Info("Appointment cancellation acknowledged",
		zap.String("appointment_id", a.ID.String()),
		zap.String("student_id", a.StudentID),
	)

	return a, nil
}

// transition выполняет условное обновление статуса и различает
// отсутствие записи и недопустимый переход
func (s *AppointmentService) transition(
	ctx context.Context,
	id uuid.UUID,
	op string,
	from []model.AppointmentStatus,
	upd model.StatusUpdate,
) (*model.Appointment, model.AppointmentStatus, error) {
	a, err := s.store.Transition(ctx, id, from, upd)
	if err != nil {
		return nil, "", storeFailure("update appointment status", err)
	}

	if a == nil {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return nil, "", &TransitionError{AppointmentID: id, Current: current.Status, Requested: op}
	}

	// Предыдущий статус однозначен, когда from содержит один статус
	var prev model.AppointmentStatus
	if len(from) == 1 {
		prev = from[0]
	}

	s.logger.Info("Appointment status changed",
		zap.String("appointment_id", a.ID.String()),
		zap.String("student_id", a.StudentID),
		zap.String("operation", op),
		zap.String("status", string(a.Status)),
	)

	return a, prev, nil
}

func (s *AppointmentService) publish(ctx context.Context, a *model.Appointment, prev model.AppointmentStatus) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, events.NewAppointmentChanged(a, prev, s.now())); err != nil {
		s.logger.Error("Failed to publish appointment change",
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err),
		)
	}
}

// Get получает запись по ID
func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeFailure("get appointment", err)
	}
	if a == nil {
		return nil, notFound("appointment", id)
	}
	return a, nil
}

// ListByStudent получает записи студента
func (s *AppointmentService) ListByStudent(ctx context.Context, studentID string) ([]*model.Appointment, error) {
	appointments, err := s.store.ListByStudentID(ctx, studentID)
	if err != nil {
		return nil, storeFailure("list appointments by student", err)
	}
	return appointments, nil
}

// ListByStatus получает записи в статусе
func (s *AppointmentService) ListByStatus(ctx context.Context, status model.AppointmentStatus) ([]*model.Appointment, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown status "+string(status))
	}

	appointments, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, storeFailure("list appointments by status", err)
	}
	return appointments, nil
}

// ListByDate получает записи на дату
func (s *AppointmentService) ListByDate(ctx context.Context, date string) ([]*model.Appointment, error) {
	if _, err := model.ParseDate(date); err != nil {
		return nil, invalid("date", "expected YYYY-MM-DD")
	}

	appointments, err := s.store.ListByDate(ctx, date)
	if err != nil {
		return nil, storeFailure("list appointments by date", err)
	}
	return appointments, nil
}

// Counts сырые счётчики для панели консультанта
func (s *AppointmentService) Counts(ctx context.Context, actor model.Account) (*model.DashboardCounts, error) {
	if !actor.IsCounselor() {
		return nil, forbidden("view dashboard")
	}

	byStatus, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, storeFailure("count appointments", err)
	}

	awaiting, err := s.store.CountAwaitingAcknowledgment(ctx)
	if err != nil {
		return nil, storeFailure("count awaiting acknowledgment", err)
	}

	counts := &model.DashboardCounts{
		ByStatus:               byStatus,
		AwaitingAcknowledgment: awaiting,
	}
	for _, n := range byStatus {
		counts.Total += n
	}

	return counts, nil
}
