package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/Freeeeeet/guidance_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type AccountLookup interface {
	ByTelegramChat(ctx context.Context, chatID int64) (*model.Account, error)
	IssueTelegramLinkCode(ctx context.Context, chatID int64) (string, error)
}

type AppointmentLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]*model.Appointment, error)
	ListByStatus(ctx context.Context, status model.AppointmentStatus) ([]*model.Appointment, error)
}

type SlotLister interface {
	ListAvailableSlots(ctx context.Context, date string) ([]string, error)
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	accounts     AccountLookup
	appointments AppointmentLister
	slots        SlotLister
	logger       *zap.Logger
}

func NewHandlers(accounts AccountLookup, appointments AppointmentLister, slots SlotLister, logger *zap.Logger) *Handlers {
	return &Handlers{
		accounts:     accounts,
		appointments: appointments,
		slots:        slots,
		logger:       logger,
	}
}

const helpText = "Guidance portal bot\n\n" +
	"/start - get a code to link this chat in the portal\n" +
	"/appointments - your appointments (pending requests for counselors)\n" +
	"/slots YYYY-MM-DD - free slots on a date\n" +
	"/help - this message"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, h.startText(ctx, update.Message.Chat.ID))
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleAppointments обрабатывает команду /appointments
func (h *Handlers) HandleAppointments(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, h.appointmentsText(ctx, update.Message.Chat.ID))
}

// HandleSlots обрабатывает команду /slots <дата>
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	date := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/slots"))
	h.sendMessage(ctx, b, update.Message.Chat.ID, h.slotsText(ctx, date))
}

func (h *Handlers) startText(ctx context.Context, chatID int64) string {
	account, err := h.accounts.ByTelegramChat(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to resolve telegram chat", zap.Int64("chat_id", chatID), zap.Error(err))
		return "Something went wrong. Please try again later."
	}

	if account != nil {
		return fmt.Sprintf("This chat is linked to %s. Notifications will arrive here.\n\n%s", account.DisplayName, helpText)
	}

	code, err := h.accounts.IssueTelegramLinkCode(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to issue link code", zap.Int64("chat_id", chatID), zap.Error(err))
		return "Something went wrong. Please try again later."
	}

	return fmt.Sprintf("Your link code is %s.\n\nEnter it in the portal settings within %d minutes to receive notifications here.",
		code, int(service.TelegramLinkCodeTTL.Minutes()))
}

func (h *Handlers) appointmentsText(ctx context.Context, chatID int64) string {
	account, err := h.accounts.ByTelegramChat(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to resolve telegram chat", zap.Int64("chat_id", chatID), zap.Error(err))
		return "Something went wrong. Please try again later."
	}
	if account == nil {
		return "This chat is not linked to a portal account. Use /start to get a link code."
	}

	var (
		list  []*model.Appointment
		title string
	)
	switch {
	case account.IsCounselor():
		title = "Pending requests"
		list, err = h.appointments.ListByStatus(ctx, model.AppointmentStatusPending)
	case account.StudentID != nil:
		title = "Your appointments"
		list, err = h.appointments.ListByStudent(ctx, *account.StudentID)
	default:
		return "Your account has no appointments."
	}
	if err != nil {
		h.logger.Error("Failed to list appointments", zap.String("account", account.UID.String()), zap.Error(err))
		return "Something went wrong. Please try again later."
	}

	if len(list) == 0 {
		return title + ": none."
	}

	var sb strings.Builder
	sb.WriteString(title + ":\n")
	for _, a := range list {
		fmt.Fprintf(&sb, "\n%s %s - %s (%s)", a.Date, a.TimeSlot, a.CounselorType, a.Status)
		if account.IsCounselor() {
			fmt.Fprintf(&sb, ", %s", a.StudentName)
		}
	}
	return sb.String()
}

func (h *Handlers) slotsText(ctx context.Context, date string) string {
	if date == "" {
		return "Usage: /slots YYYY-MM-DD"
	}

	labels, err := h.slots.ListAvailableSlots(ctx, date)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return "Invalid date " + date + ". Usage: /slots YYYY-MM-DD"
		}
		h.logger.Error("Failed to list slots", zap.String("date", date), zap.Error(err))
		return "Something went wrong. Please try again later."
	}
	if len(labels) == 0 {
		return "No free slots on " + date + "."
	}

	return "Free slots on " + date + ":\n" + strings.Join(labels, "\n")
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
