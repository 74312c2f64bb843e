package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/app"
	"github.com/Freeeeeet/guidance_scheduler/internal/config"
	"github.com/Freeeeeet/guidance_scheduler/internal/controller/httpapi"
	"github.com/Freeeeeet/guidance_scheduler/internal/controller/telegram"
	"github.com/Freeeeeet/guidance_scheduler/internal/events"
	"github.com/Freeeeeet/guidance_scheduler/internal/notify"
	"github.com/Freeeeeet/guidance_scheduler/internal/repository"
	"github.com/Freeeeeet/guidance_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Portal stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	location, err := cfg.Location()
	if err != nil {
		return err
	}

	logger.Info("Starting guidance portal",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("timezone", location.String()),
	)

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("Connected to database")

	if cfg.MigrationsEnabled {
		migrator, err := app.NewMigrator(pool, logger)
		if err != nil {
			return err
		}
		err = migrator.Run(ctx)
		migrator.Close()
		if err != nil {
			return err
		}
	}

	broker, err := newBroker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	// Репозитории
	accountRepo := repository.NewAccountRepository(pool)
	timeSlotRepo := repository.NewTimeSlotRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	ledgerRepo := repository.NewReminderLedgerRepository(pool)

	// Сервисы
	timeSlotService := service.NewTimeSlotService(timeSlotRepo, logger)
	availabilityService := service.NewAvailabilityService(timeSlotService, appointmentRepo)
	telegramBot := newTelegramBot(cfg, logger)
	accountService := service.NewAccountService(accountRepo, logger)
	notificationService := service.NewNotificationService(accountRepo, notificationRepo, logger, newDeliverers(cfg, telegramBot, logger)...)
	appointmentService := service.NewAppointmentService(availabilityService, appointmentRepo, notificationService, broker, location, logger)
	reminderService := service.NewReminderService(appointmentRepo, ledgerRepo, notificationService, location, cfg.ReminderLead, logger)
	calendarService := service.NewCalendarService(appointmentRepo, location)

	scheduler := app.NewScheduler(reminderService, cfg.ReminderInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if telegramBot != nil {
		botController := telegram.NewBotController(telegramBot,
			telegram.NewHandlers(accountService, appointmentService, availabilityService, logger), logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Telegram commands menu not set", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httpapi.NewHandler(httpapi.Services{
		Slots:         timeSlotService,
		Availability:  availabilityService,
		Appointments:  appointmentService,
		Notifications: notificationService,
		Calendar:      calendarService,
		Accounts:      accountRepo,
		Linker:        accountService,
		Reminders:     reminderService,
		Stream:        broker,
	}, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// SSE-соединения держатся до отмены контекста запроса, поэтому брокер закрывается до ожидания
	broker.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}

	logger.Info("Portal stopped")
	return nil
}

// newBroker выбирает Redis, если он настроен, иначе брокер в памяти процесса
func newBroker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (events.Broker, error) {
	if cfg.RedisAddr == "" {
		logger.Info("Using in-memory event broker")
		return events.NewMemoryBroker(logger), nil
	}

	return events.NewRedisBroker(ctx, events.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
}

// newTelegramBot создаёт бота, если задан токен; nil отключает Telegram
func newTelegramBot(cfg *config.Config, logger *zap.Logger) *bot.Bot {
	if cfg.TelegramToken == "" {
		return nil
	}

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Warn("Telegram disabled", zap.Error(err))
		return nil
	}
	return b
}

func newDeliverers(cfg *config.Config, telegramBot *bot.Bot, logger *zap.Logger) []service.Deliverer {
	var deliverers []service.Deliverer

	if telegramBot != nil {
		deliverers = append(deliverers, notify.NewTelegramDeliverer(telegramBot, logger))
	}

	if cfg.EmailEnabled() {
		deliverers = append(deliverers, notify.NewSendGridDeliverer(
			cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName, logger))
	}

	logger.Info("Notification delivery channels configured", zap.Int("channels", len(deliverers)))
	return deliverers
}
