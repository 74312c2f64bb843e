package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReminderScanner проход по подтверждённым записям с отправкой напоминаний
type ReminderScanner interface {
	ScanAll(ctx context.Context, now time.Time) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	reminders ReminderScanner
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(reminders ReminderScanner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("reminder_interval", s.interval))

	s.wg.Add(1)
	go s.runReminderTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runReminderTask(ctx context.Context) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	s.sendReminders(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sendReminders(ctx)
		case <-s.stopChan:
			s.logger.Info("Reminder task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reminder task cancelled")
			return
		}
	}
}

func (s *Scheduler) sendReminders(ctx context.Context) {
	sent, err := s.reminders.ScanAll(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to scan reminders", zap.Error(err))
		return
	}

	if sent > 0 {
		s.logger.Info("Reminder scan completed", zap.Int("sent", sent))
	} else {
		s.logger.Debug("Reminder scan completed, nothing due")
	}
}
