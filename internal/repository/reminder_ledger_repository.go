package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/Freeeeeet/guidance_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// reminderLockSpace первый ключ advisory-блокировок журнала; не пересекается с блокировками слотов
const reminderLockSpace = 4201

// ReminderLedgerRepository журнал отправленных напоминаний (notified_appointments)
type ReminderLedgerRepository struct {
	pool *pgxpool.Pool
}

func NewReminderLedgerRepository(pool *pgxpool.Pool) *ReminderLedgerRepository {
	return &ReminderLedgerRepository{pool: pool}
}

// Get загружает журнал студента; пустой журнал, если записей нет
func (r *ReminderLedgerRepository) Get(ctx context.Context, studentID string) (*model.ReminderLedger, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_id FROM notified_appointments WHERE student_id = $1
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("get reminder ledger: %w", err)
	}
	defer rows.Close()

	ledger := model.NewReminderLedger(studentID)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reminder ledger: %w", err)
		}
		ledger.AppointmentIDs[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminder ledger: %w", err)
	}

	return ledger, nil
}

// Save дописывает новые записи журнала одним батчем
func (r *ReminderLedgerRepository) Save(ctx context.Context, ledger *model.ReminderLedger) error {
	pending := ledger.Pending()
	if len(pending) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, id := range pending {
		batch.Queue(`
			INSERT INTO notified_appointments (student_id, appointment_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, ledger.StudentID, id)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save reminder ledger: %w", err)
	}

	ledger.MarkSaved()
	return nil
}

// WithStudentLock выполняет fn под advisory-блокировкой студента, которая держится до конца транзакции.
// Если блокировку держит другой экземпляр, fn не вызывается и возвращается false.
func (r *ReminderLedgerRepository) WithStudentLock(ctx context.Context, studentID string, fn func(ctx context.Context) error) (bool, error) {
	var locked bool

	err := base.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT pg_try_advisory_xact_lock($1, hashtext($2))`,
			reminderLockSpace, studentID,
		).Scan(&locked)
		if err != nil {
			return fmt.Errorf("lock reminder ledger: %w", err)
		}
		if !locked {
			return nil
		}
		return fn(ctx)
	})

	return locked, err
}
