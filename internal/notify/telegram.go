// Package notify доставляет сохранённые уведомления по внешним каналам.
package notify

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender часть *bot.Bot, нужная для отправки сообщений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramDeliverer дублирует уведомление в Telegram, если у аккаунта привязан чат
type TelegramDeliverer struct {
	sender MessageSender
	logger *zap.Logger
}

func NewTelegramDeliverer(sender MessageSender, logger *zap.Logger) *TelegramDeliverer {
	return &TelegramDeliverer{
		sender: sender,
		logger: logger,
	}
}

func (d *TelegramDeliverer) Name() string { return "telegram" }

func (d *TelegramDeliverer) Deliver(ctx context.Context, account *model.Account, n *model.Notification) error {
	if account.TelegramChatID == nil {
		return nil
	}

	_, err := d.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *account.TelegramChatID,
		Text:   formatTelegram(n),
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	d.logger.Debug("Telegram notification sent",
		zap.String("notification_id", n.ID.String()),
		zap.Int64("chat_id", *account.TelegramChatID),
	)

	return nil
}

func formatTelegram(n *model.Notification) string {
	text := n.Title + "\n\n" + n.Message
	if n.RequiresAcknowledgment {
		text += "\n\nPlease open the portal to acknowledge."
	}
	return text
}
