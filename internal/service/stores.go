package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
)

// Интерфейсы хранилищ; реализации - в пакете repository.

type TimeSlotStore interface {
	Get(ctx context.Context, date string) (*model.TimeSlotDay, error)
	Upsert(ctx context.Context, day *model.TimeSlotDay) error
	UpsertMany(ctx context.Context, days []*model.TimeSlotDay) error
}

type AppointmentStore interface {
	CreateIfSlotFree(ctx context.Context, a *model.Appointment) (model.SlotClaim, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListActiveByDate(ctx context.Context, date string) ([]*model.Appointment, error)
	ListByDate(ctx context.Context, date string) ([]*model.Appointment, error)
	ListByStudentID(ctx context.Context, studentID string) ([]*model.Appointment, error)
	ListByStatus(ctx context.Context, status model.AppointmentStatus) ([]*model.Appointment, error)
	ListConfirmedByDates(ctx context.Context, dates []string) ([]*model.Appointment, error)
	Transition(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, upd model.StatusUpdate) (*model.Appointment, error)
	Acknowledge(ctx context.Context, id uuid.UUID, at time.Time) (*model.Appointment, error)
	CountByStatus(ctx context.Context) (map[model.AppointmentStatus]int, error)
	CountAwaitingAcknowledgment(ctx context.Context) (int, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByRecipient(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
	Acknowledge(ctx context.Context, id, userID uuid.UUID) (bool, error)
	AcknowledgeByAppointment(ctx context.Context, appointmentID, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

type ReminderLedgerStore interface {
	Get(ctx context.Context, studentID string) (*model.ReminderLedger, error)
	Save(ctx context.Context, ledger *model.ReminderLedger) error
	// WithStudentLock false, если журнал студента сейчас обрабатывает другой экземпляр
	WithStudentLock(ctx context.Context, studentID string, fn func(ctx context.Context) error) (bool, error)
}

// Directory внешний каталог пользователей
type Directory interface {
	ResolveByStudentID(ctx context.Context, studentID string) (*model.Account, error)
	ResolveByUID(ctx context.Context, uid uuid.UUID) (*model.Account, error)
	ListByCapability(ctx context.Context, capability model.Capability) ([]*model.Account, error)
}

// Deliverer канал доставки уже сохранённого уведомления
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, account *model.Account, n *model.Notification) error
}

// AccountStore привязка внешних каналов к аккаунтам
type AccountStore interface {
	ResolveByTelegramChatID(ctx context.Context, chatID int64) (*model.Account, error)
	SaveTelegramLinkCode(ctx context.Context, code string, chatID int64, expiresAt time.Time) error
	LinkTelegramByCode(ctx context.Context, uid uuid.UUID, code string, now time.Time) (int64, bool, error)
	ClearTelegramChatID(ctx context.Context, uid uuid.UUID) (bool, error)
}
