// Package telegram бот-компаньон портала: привязка чата и просмотр записей.
package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot      *bot.Bot
	handlers *Handlers
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, handlers *Handlers, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: handlers,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/appointments", bot.MatchTypeExact, c.handlers.HandleAppointments)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/slots", bot.MatchTypePrefix, c.handlers.HandleSlots)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "Get a code to link this chat"},
		{Command: "help", Description: "List commands"},
		{Command: "appointments", Description: "Your appointments"},
		{Command: "slots", Description: "Free slots for a date: /slots 2024-03-04"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает long polling; блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting telegram bot")
	c.bot.Start(ctx)
}
