// Package httpapi HTTP API портала поверх gin.
package httpapi

import (
	"context"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/events"
	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/Freeeeeet/guidance_scheduler/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Интерфейсы сервисов, которые использует HTTP-слой.

type TimeSlotService interface {
	SetDay(ctx context.Context, actor model.Account, date string, slots []model.SlotEntry) (*model.TimeSlotDay, error)
	BulkBlock(ctx context.Context, actor model.Account, month string, labels []string) (int, error)
}

type AvailabilityService interface {
	ListAllSlots(ctx context.Context, date string) ([]model.SlotView, error)
	ListAvailableSlots(ctx context.Context, date string) ([]string, error)
}

type AppointmentService interface {
	Book(ctx context.Context, actor model.Account, req service.BookingRequest) (*model.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListByStudent(ctx context.Context, studentID string) ([]*model.Appointment, error)
	ListByStatus(ctx context.Context, status model.AppointmentStatus) ([]*model.Appointment, error)
	ListByDate(ctx context.Context, date string) ([]*model.Appointment, error)
	Approve(ctx context.Context, actor model.Account, id uuid.UUID) (*model.Appointment, error)
	Reject(ctx context.Context, actor model.Account, id uuid.UUID, reason string) (*model.Appointment, error)
	Complete(ctx context.Context, actor model.Account, id uuid.UUID) (*model.Appointment, error)
	CancelByStudent(ctx context.Context, actor model.Account, id uuid.UUID, reason string) (*model.Appointment, error)
	CancelByGuidance(ctx context.Context, actor model.Account, id uuid.UUID, reason string) (*model.Appointment, error)
	Acknowledge(ctx context.Context, actor model.Account, id uuid.UUID) (*model.Appointment, error)
	Counts(ctx context.Context, actor model.Account) (*model.DashboardCounts, error)
}

type NotificationService interface {
	ListForRecipient(ctx context.Context, actor model.Account, unreadOnly bool) ([]*model.Notification, error)
	MarkRead(ctx context.Context, actor model.Account, id uuid.UUID) error
	Acknowledge(ctx context.Context, actor model.Account, id uuid.UUID) error
	UnreadCount(ctx context.Context, actor model.Account) (int, error)
}

type CalendarService interface {
	ExportStudent(ctx context.Context, actor model.Account, studentID string) (string, error)
}

// AccountResolver находит аккаунт по заголовку X-Account-ID
type AccountResolver interface {
	ResolveByUID(ctx context.Context, uid uuid.UUID) (*model.Account, error)
}

// TelegramLinker привязка чата по одноразовому коду, выданному ботом
type TelegramLinker interface {
	LinkTelegram(ctx context.Context, actor model.Account, code string) error
	UnlinkTelegram(ctx context.Context, actor model.Account) error
}

// ReminderScanner досрочная проверка напоминаний при обновлении списка записей студента
type ReminderScanner interface {
	Scan(ctx context.Context, studentID string, appointments []*model.Appointment, now time.Time) (int, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (*events.Subscription, error)
}

// Handler все обработчики API
type Handler struct {
	slots         TimeSlotService
	availability  AvailabilityService
	appointments  AppointmentService
	notifications NotificationService
	calendar      CalendarService
	accounts      AccountResolver
	linker        TelegramLinker
	reminders     ReminderScanner
	stream        Subscriber
	logger        *zap.Logger
	now           func() time.Time
}

type Services struct {
	Slots         TimeSlotService
	Availability  AvailabilityService
	Appointments  AppointmentService
	Notifications NotificationService
	Calendar      CalendarService
	Accounts      AccountResolver
	Linker        TelegramLinker
	Reminders     ReminderScanner
	Stream        Subscriber
}

func NewHandler(s Services, logger *zap.Logger) *Handler {
	return &Handler{
		slots:         s.Slots,
		availability:  s.Availability,
		appointments:  s.Appointments,
		notifications: s.Notifications,
		calendar:      s.Calendar,
		accounts:      s.Accounts,
		linker:        s.Linker,
		reminders:     s.Reminders,
		stream:        s.Stream,
		logger:        logger,
		now:           time.Now,
	}
}
