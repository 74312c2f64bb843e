package service

import (
	"context"
	"strings"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"go.uber.org/zap"
)

// TimeSlotService реестр слотов по календарным дням
type TimeSlotService struct {
	store  TimeSlotStore
	logger *zap.Logger
}

func NewTimeSlotService(store TimeSlotStore, logger *zap.Logger) *TimeSlotService {
	return &TimeSlotService{
		store:  store,
		logger: logger,
	}
}

// GetDay возвращает конфигурацию дня или шаблон по умолчанию
func (s *TimeSlotService) GetDay(ctx context.Context, date string) (*model.TimeSlotDay, error) {
	if _, err := model.ParseDate(date); err != nil {
		return nil, invalid("date", "expected YYYY-MM-DD")
	}

	day, err := s.store.Get(ctx, date)
	if err != nil {
		return nil, storeFailure("get time slot day", err)
	}

	if day == nil || len(day.Slots) == 0 {
		return model.DefaultTimeSlotDay(date), nil
	}

	return day, nil
}

// SetDay полностью перезаписывает слоты дня
func (s *TimeSlotService) SetDay(ctx context.Context, actor model.Account, date string, slots []model.SlotEntry) (*model.TimeSlotDay, error) {
	if !actor.IsCounselor() {
		return nil, forbidden("edit time slots")
	}

	if _, err := model.ParseDate(date); err != nil {
		return nil, invalid("date", "expected YYYY-MM-DD")
	}

	if err := validateSlots(slots); err != nil {
		return nil, err
	}

	day := &model.TimeSlotDay{Date: date, Slots: slots}
	if err := s.store.Upsert(ctx, day); err != nil {
		return nil, storeFailure("set time slot day", err)
	}

	s.logger.Info("Time slots updated",
		zap.String("date", date),
		zap.Int("slots", len(slots)),
		zap.String("actor", actor.UID.String()),
	)

	return day, nil
}

// BulkBlock перезаписывает каждый день месяца шаблоном, где указанные метки
// (или все, если labels пуст) недоступны. Существующая конфигурация не сохраняется.
func (s *TimeSlotService) BulkBlock(ctx context.Context, actor model.Account, month string, labels []string) (int, error) {
	if !actor.IsCounselor() {
		return 0, forbidden("block time slots")
	}

	first, err := time.Parse(model.MonthLayout, month)
	if err != nil {
		return 0, invalid("month", "expected YYYY-MM")
	}

	blocked := make(map[string]bool, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if !isDefaultLabel(label) {
			return 0, invalid("labels", "unknown slot label "+label)
		}
		blocked[label] = true
	}

	var days []*model.TimeSlotDay
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		slots := model.DefaultSlots()
		for i := range slots {
			if len(blocked) == 0 || blocked[slots[i].Label] {
				slots[i].Available = false
			}
		}
		days = append(days, &model.TimeSlotDay{Date: d.Format(model.DateLayout), Slots: slots})
	}

	if err := s.store.UpsertMany(ctx, days); err != nil {
		return 0, storeFailure("bulk block time slots", err)
	}

	s.logger.Info("Time slots blocked for month",
		zap.String("month", month),
		zap.Strings("labels", labels),
		zap.Int("days", len(days)),
		zap.String("actor", actor.UID.String()),
	)

	return len(days), nil
}

func validateSlots(slots []model.SlotEntry) error {
	if len(slots) == 0 {
		return invalid("slots", "at least one slot is required")
	}

	seen := make(map[string]bool, len(slots))
	for _, slot := range slots {
		if _, err := time.Parse(model.SlotLabelLayout, slot.Label); err != nil {
			return invalid("slots", "unparseable slot label "+slot.Label)
		}
		if seen[slot.Label] {
			return invalid("slots", "duplicate slot label "+slot.Label)
		}
		seen[slot.Label] = true
	}

	return nil
}

func isDefaultLabel(label string) bool {
	for _, l := range model.DefaultSlotLabels {
		if l == label {
			return true
		}
	}
	return false
}
