package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"go.uber.org/zap"
)

// DefaultReminderLead за сколько до начала отправляется напоминание
const DefaultReminderLead = 30 * time.Minute

// ReminderService отправляет одно напоминание на подтверждённую запись
type ReminderService struct {
	appointments  AppointmentStore
	ledger        ReminderLedgerStore
	notifications *NotificationService
	location      *time.Location
	lead          time.Duration
	logger        *zap.Logger
}

func NewReminderService(
	appointments AppointmentStore,
	ledger ReminderLedgerStore,
	notifications *NotificationService,
	location *time.Location,
	lead time.Duration,
	logger *zap.Logger,
) *ReminderService {
	if lead <= 0 {
		lead = DefaultReminderLead
	}

	return &ReminderService{
		appointments:  appointments,
		ledger:        ledger,
		notifications: notifications,
		location:      location,
		lead:          lead,
		logger:        logger,
	}
}

// Scan отправляет напоминания по записям студента, начинающимся в (now, now+lead].
// Проход идёт под блокировкой студента: если её держит другой экземпляр, проход пропускается.
func (s *ReminderService) Scan(ctx context.Context, studentID string, appointments []*model.Appointment, now time.Time) (int, error) {
	var (
		sent    int
		scanErr error
	)

	locked, err := s.ledger.WithStudentLock(ctx, studentID, func(ctx context.Context) error {
		sent, scanErr = s.scanLocked(ctx, studentID, appointments, now)
		return scanErr
	})
	if scanErr != nil {
		return 0, scanErr
	}
	if err != nil {
		return 0, storeFailure("lock reminder ledger", err)
	}

	if !locked {
		s.logger.Debug("Reminder scan already running elsewhere", zap.String("student_id", studentID))
		return 0, nil
	}

	return sent, nil
}

// scanLocked журнал сохраняется один раз в конце и только если было отправлено хотя бы одно напоминание
func (s *ReminderService) scanLocked(ctx context.Context, studentID string, appointments []*model.Appointment, now time.Time) (int, error) {
	windowEnd := now.Add(s.lead)

	ledger, err := s.ledger.Get(ctx, studentID)
	if err != nil {
		return 0, storeFailure("get reminder ledger", err)
	}

	for _, a := range appointments {
		if a.StudentID != studentID || a.Status != model.AppointmentStatusConfirmed || ledger.Contains(a.ID) {
			continue
		}

		instant, err := model.SlotInstant(a.Date, a.TimeSlot, s.location)
		if err != nil {
			s.logger.Warn("Skipping appointment with unparseable slot",
				zap.String("appointment_id", a.ID.String()),
				zap.String("date", a.Date),
				zap.String("time_slot", a.TimeSlot),
			)
			continue
		}

		if !instant.After(now) || instant.After(windowEnd) {
			continue
		}

		// Без созданного уведомления запись не попадает в журнал и будет повторена на следующем проходе
		if s.notifications.Notify(ctx, ReminderDueEvent(a)) == 0 {
			continue
		}
		ledger.Add(a.ID)
	}

	sent := len(ledger.Pending())
	if sent == 0 {
		return 0, nil
	}

	if err := s.ledger.Save(ctx, ledger); err != nil {
		return 0, storeFailure("save reminder ledger", err)
	}

	s.logger.Info("Reminders sent",
		zap.String("student_id", studentID),
		zap.Int("count", sent),
	)

	return sent, nil
}

// ScanAll проверяет подтверждённые записи на сегодня и завтра для всех студентов
func (s *ReminderService) ScanAll(ctx context.Context, now time.Time) (int, error) {
	local := now.In(s.location)
	dates := []string{
		local.Format(model.DateLayout),
		local.AddDate(0, 0, 1).Format(model.DateLayout),
	}

	confirmed, err := s.appointments.ListConfirmedByDates(ctx, dates)
	if err != nil {
		return 0, storeFailure("list confirmed appointments", err)
	}

	byStudent := make(map[string][]*model.Appointment)
	var order []string
	for _, a := range confirmed {
		if _, ok := byStudent[a.StudentID]; !ok {
			order = append(order, a.StudentID)
		}
		byStudent[a.StudentID] = append(byStudent[a.StudentID], a)
	}

	total := 0
	for _, studentID := range order {
		sent, err := s.Scan(ctx, studentID, byStudent[studentID], now)
		if err != nil {
			s.logger.Error("Reminder scan failed",
				zap.String("student_id", studentID),
				zap.Error(err),
			)
			continue
		}
		total += sent
	}

	return total, nil
}
