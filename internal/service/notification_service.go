package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventKind string

const (
	EventScheduled          EventKind = "scheduled"
	EventStatusChanged      EventKind = "status_changed"
	EventCancelledByStudent EventKind = "cancelled_by_student"
	EventReminderDue        EventKind = "reminder_due"
)

// Event событие жизненного цикла записи для рассылки уведомлений
type Event struct {
	Kind                   EventKind
	Appointment            *model.Appointment
	Status                 model.AppointmentStatus // для EventStatusChanged
	Reason                 *string
	RequiresAcknowledgment bool
}

func ScheduledEvent(a *model.Appointment) Event {
	return Event{Kind: EventScheduled, Appointment: a}
}

func StatusChangedEvent(a *model.Appointment, reason *string, requiresAck bool) Event {
	return Event{
		Kind:                   EventStatusChanged,
		Appointment:            a,
		Status:                 a.Status,
		Reason:                 reason,
		RequiresAcknowledgment: requiresAck,
	}
}

func CancelledByStudentEvent(a *model.Appointment, reason string) Event {
	return Event{
		Kind:                   EventCancelledByStudent,
		Appointment:            a,
		Reason:                 &reason,
		RequiresAcknowledgment: true,
	}
}

func ReminderDueEvent(a *model.Appointment) Event {
	return Event{Kind: EventReminderDue, Appointment: a}
}

// statusTemplates тексты для студента по новому статусу записи
var statusTemplates = map[model.AppointmentStatus]struct{ title, message string }{
	model.AppointmentStatusConfirmed: {"Appointment Confirmed", "Your appointment on %s at %s has been confirmed."},
	model.AppointmentStatusRejected:  {"Appointment Rejected", "Your appointment request for %s at %s has been rejected."},
	model.AppointmentStatusCompleted: {"Appointment Completed", "Your appointment on %s at %s has been marked as completed."},
	model.AppointmentStatusCancelled: {"Appointment Cancelled", "Your appointment on %s at %s has been cancelled by the guidance office."},
}

// NotificationService рассылает уведомления по событиям записей.
// Ошибки рассылки логируются и не возвращаются вызывающему.
type NotificationService struct {
	directory  Directory
	store      NotificationStore
	deliverers []Deliverer
	logger     *zap.Logger
}

func NewNotificationService(directory Directory, store NotificationStore, logger *zap.Logger, deliverers ...Deliverer) *NotificationService {
	return &NotificationService{
		directory:  directory,
		store:      store,
		deliverers: deliverers,
		logger:     logger,
	}
}

// Notify создаёт по одному уведомлению на каждого получателя события.
// Возвращает количество сохранённых уведомлений.
func (s *NotificationService) Notify(ctx context.Context, ev Event) int {
	a := ev.Appointment
	logger := s.logger.With(
		zap.String("event", string(ev.Kind)),
		zap.String("appointment_id", a.ID.String()),
	)

	recipients, err := s.recipients(ctx, ev)
	if err != nil {
		logger.Error("Failed to resolve notification recipients", zap.Error(err))
		return 0
	}

	if len(recipients) == 0 {
		logger.Warn("No recipients for notification")
		return 0
	}

	notificationType, title, message := render(ev)
	appointmentID := a.ID

	created := 0
	for _, account := range recipients {
		n := &model.Notification{
			ID:                     uuid.New(),
			UserID:                 account.UID,
			Type:                   notificationType,
			Title:                  title,
			Message:                message,
			AppointmentID:          &appointmentID,
			Unread:                 true,
			RequiresAcknowledgment: ev.RequiresAcknowledgment,
		}

		if err := s.store.Create(ctx, n); err != nil {
			logger.Error("Failed to create notification",
				zap.String("recipient", account.UID.String()),
				zap.Error(err),
			)
			continue
		}
		created++

		s.deliver(ctx, account, n)
	}

	logger.Info("Notifications created",
		zap.Int("recipients", len(recipients)),
		zap.Int("created", created),
	)

	return created
}

func (s *NotificationService) deliver(ctx context.Context, account *model.Account, n *model.Notification) {
	for _, d := range s.deliverers {
		if err := d.Deliver(ctx, account, n); err != nil {
			s.logger.Warn("Notification delivery failed",
				zap.String("channel", d.Name()),
				zap.String("notification_id", n.ID.String()),
				zap.String("recipient", account.UID.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *NotificationService) recipients(ctx context.Context, ev Event) ([]*model.Account, error) {
	switch ev.Kind {
	case EventScheduled, EventCancelledByStudent:
		return s.directory.ListByCapability(ctx, model.CapabilityCounselor)
	case EventStatusChanged, EventReminderDue:
		account, err := s.directory.ResolveByStudentID(ctx, ev.Appointment.StudentID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, nil
		}
		return []*model.Account{account}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func render(ev Event) (model.NotificationType, string, string) {
	a := ev.Appointment

	switch ev.Kind {
	case EventScheduled:
		return model.NotificationAppointmentScheduled,
			"New Appointment Request",
			fmt.Sprintf("%s requested a %s appointment on %s at %s.",
				a.StudentName, a.CounselorType, a.Date, a.TimeSlot)

	case EventCancelledByStudent:
		return model.NotificationAppointmentCancelled,
			"Appointment Cancelled by Student",
			fmt.Sprintf("%s cancelled their appointment on %s at %s.%s",
				a.StudentName, a.Date, a.TimeSlot, reasonSuffix(ev.Reason))

	case EventReminderDue:
		return model.NotificationAppointmentReminder,
			"Appointment Reminder",
			fmt.Sprintf("Your appointment on %s at %s starts soon.", a.Date, a.TimeSlot)

	default:
		tpl, ok := statusTemplates[ev.Status]
		if !ok {
			tpl.title = "Appointment Updated"
			tpl.message = "Your appointment on %s at %s is now " + string(ev.Status) + "."
		}
		return model.NotificationAppointmentStatus,
			tpl.title,
			fmt.Sprintf(tpl.message, a.Date, a.TimeSlot) + reasonSuffix(ev.Reason)
	}
}

func reasonSuffix(reason *string) string {
	if reason == nil || *reason == "" {
		return ""
	}
	return " Reason: " + *reason
}

// ListForRecipient получает уведомления текущего пользователя
func (s *NotificationService) ListForRecipient(ctx context.Context, actor model.Account, unreadOnly bool) ([]*model.Notification, error) {
	notifications, err := s.store.ListByRecipient(ctx, actor.UID, unreadOnly)
	if err != nil {
		return nil, storeFailure("list notifications", err)
	}
	return notifications, nil
}

// MarkRead отмечает уведомление прочитанным
func (s *NotificationService) MarkRead(ctx context.Context, actor model.Account, id uuid.UUID) error {
	ok, err := s.store.MarkRead(ctx, id, actor.UID)
	if err != nil {
		return storeFailure("mark notification read", err)
	}
	if !ok {
		return notFound("notification", id)
	}
	return nil
}

// Acknowledge подтверждает уведомление
func (s *NotificationService) Acknowledge(ctx context.Context, actor model.Account, id uuid.UUID) error {
	ok, err := s.store.Acknowledge(ctx, id, actor.UID)
	if err != nil {
		return storeFailure("acknowledge notification", err)
	}
	if !ok {
		return notFound("notification", id)
	}
	return nil
}

// AcknowledgeForAppointment подтверждает уведомления пользователя по записи, если они есть
func (s *NotificationService) AcknowledgeForAppointment(ctx context.Context, appointmentID, userID uuid.UUID) {
	n, err := s.store.AcknowledgeByAppointment(ctx, appointmentID, userID)
	if err != nil {
		s.logger.Error("Failed to acknowledge appointment notifications",
			zap.String("appointment_id", appointmentID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("Appointment notifications acknowledged",
		zap.String("appointment_id", appointmentID.String()),
		zap.Int64("count", n),
	)
}

// UnreadCount считает непрочитанные уведомления пользователя
func (s *NotificationService) UnreadCount(ctx context.Context, actor model.Account) (int, error) {
	count, err := s.store.CountUnread(ctx, actor.UID)
	if err != nil {
		return 0, storeFailure("count unread notifications", err)
	}
	return count, nil
}
