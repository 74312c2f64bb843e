package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/Freeeeeet/guidance_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TimeSlotRepository хранит конфигурацию слотов по датам
type TimeSlotRepository struct {
	pool *pgxpool.Pool
}

func NewTimeSlotRepository(pool *pgxpool.Pool) *TimeSlotRepository {
	return &TimeSlotRepository{pool: pool}
}

const upsertTimeSlotDayQuery = `
	INSERT INTO available_time_slots (date, slots, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (date) DO UPDATE
	SET slots = EXCLUDED.slots, updated_at = EXCLUDED.updated_at
	RETURNING updated_at
`

// Get получает конфигурацию дня, nil если документа нет
func (r *TimeSlotRepository) Get(ctx context.Context, date string) (*model.TimeSlotDay, error) {
	query := `
		SELECT date, slots, updated_at
		FROM available_time_slots
		WHERE date = $1
	`

	var day model.TimeSlotDay
	err := r.pool.QueryRow(ctx, query, date).Scan(&day.Date, &day.Slots, &day.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get time slot day: %w", err)
	}

	return &day, nil
}

// Upsert полностью перезаписывает конфигурацию дня
func (r *TimeSlotRepository) Upsert(ctx context.Context, day *model.TimeSlotDay) error {
	err := r.pool.QueryRow(ctx, upsertTimeSlotDayQuery, day.Date, day.Slots).Scan(&day.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert time slot day: %w", err)
	}

	return nil
}

// UpsertMany перезаписывает несколько дней одним батчем, по одной записи на день
func (r *TimeSlotRepository) UpsertMany(ctx context.Context, days []*model.TimeSlotDay) error {
	if len(days) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, day := range days {
		batch.Queue(upsertTimeSlotDayQuery, day.Date, day.Slots).QueryRow(func(row pgx.Row) error {
			return row.Scan(&day.UpdatedAt)
		})
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert time slot days: %w", err)
	}

	return nil
}
