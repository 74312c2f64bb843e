package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/Freeeeeet/guidance_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `
	id, student_id, student_name, email, counselor_type, date, time_slot, purpose, status,
	cancellation_reason, cancellation_by, requires_acknowledgment, acknowledged, acknowledged_at,
	created_at, updated_at`

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.StudentName,
		&a.Email,
		&a.CounselorType,
		&a.Date,
		&a.TimeSlot,
		&a.Purpose,
		&a.Status,
		&a.CancellationReason,
		&a.CancellationBy,
		&a.RequiresAcknowledgment,
		&a.Acknowledged,
		&a.AcknowledgedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) queryAppointments(ctx context.Context, op, query string, args ...any) ([]*model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var appointments []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appointments, nil
}

// CreateIfSlotFree атомарно проверяет слот (date, time_slot) и создаёт запись.
// Флаг available читается в той же транзакции, что и занятость.
func (r *AppointmentRepository) CreateIfSlotFree(ctx context.Context, a *model.Appointment) (model.SlotClaim, error) {
	claim := model.SlotClaimOccupied

	err := base.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Блокировка на пару (дата, слот) до конца транзакции
		_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, a.Date+"|"+a.TimeSlot)
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}

		// FOR SHARE ждёт незавершённую перезапись дня
		day := model.DefaultTimeSlotDay(a.Date)
		err = tx.QueryRow(ctx, `
			SELECT slots FROM available_time_slots WHERE date = $1 FOR SHARE
		`, a.Date).Scan(&day.Slots)
		if err != nil && !base.IsNotFound(err) {
			return fmt.Errorf("check slot availability: %w", err)
		}
		if len(day.Slots) == 0 {
			day.Slots = model.DefaultSlots()
		}

		if entry, ok := day.Find(a.TimeSlot); !ok || !entry.Available {
			claim = model.SlotClaimBlocked
			return nil
		}

		var occupied bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM appointments
				WHERE date = $1 AND time_slot = $2 AND status = ANY($3)
			)
		`, a.Date, a.TimeSlot, model.StatusStrings(model.ActiveStatuses)).Scan(&occupied)
		if err != nil {
			return fmt.Errorf("check slot occupancy: %w", err)
		}

		if occupied {
			return nil
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO appointments (id, student_id, student_name, email, counselor_type, date, time_slot, purpose, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at, updated_at
		`,
			a.ID,
			a.StudentID,
			a.StudentName,
			a.Email,
			a.CounselorType,
			a.Date,
			a.TimeSlot,
			a.Purpose,
			a.Status,
		).Scan(&a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return err
		}

		claim = model.SlotClaimed
		return nil
	})

	if err != nil {
		// Частичный уникальный индекс страхует от гонки между разными блокировками
		if base.IsUniqueViolation(err) {
			return model.SlotClaimOccupied, nil
		}
		return 0, fmt.Errorf("create appointment: %w", err)
	}

	return claim, nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return a, nil
}

// ListActiveByDate получает записи на дату, занимающие слоты
func (r *AppointmentRepository) ListActiveByDate(ctx context.Context, date string) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE date = $1 AND status = ANY($2)
		ORDER BY created_at
	`
	return r.queryAppointments(ctx, "list active appointments by date", query,
		date, model.StatusStrings(model.ActiveStatuses))
}

// ListByDate получает все записи на дату
func (r *AppointmentRepository) ListByDate(ctx context.Context, date string) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE date = $1
		ORDER BY created_at
	`
	return r.queryAppointments(ctx, "list appointments by date", query, date)
}

// ListByStudentID получает все записи студента
func (r *AppointmentRepository) ListByStudentID(ctx context.Context, studentID string) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE student_id = $1
		ORDER BY created_at DESC
	`
	return r.queryAppointments(ctx, "list appointments by student", query, studentID)
}

// ListByStatus получает записи в статусе
func (r *AppointmentRepository) ListByStatus(ctx context.Context, status model.AppointmentStatus) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = $1
		ORDER BY created_at ASC
	`
	return r.queryAppointments(ctx, "list appointments by status", query, string(status))
}

// ListConfirmedByDates получает подтверждённые записи на заданные даты
func (r *AppointmentRepository) ListConfirmedByDates(ctx context.Context, dates []string) ([]*model.Appointment, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE date = ANY($1) AND status = 'confirmed'
		ORDER BY student_id, date
	`
	return r.queryAppointments(ctx, "list confirmed appointments by dates", query, dates)
}

// Transition переводит запись в новый статус, только если текущий статус входит в from.
// Возвращает nil, если ни одна строка не обновлена.
func (r *AppointmentRepository) Transition(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, upd model.StatusUpdate) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2,
			cancellation_reason = COALESCE($3, cancellation_reason),
			cancellation_by = COALESCE($4, cancellation_by),
			requires_acknowledgment = requires_acknowledgment OR $5,
			acknowledged = CASE WHEN $2::text = 'cancelled' THEN false ELSE acknowledged END,
			updated_at = now()
		WHERE id = $1 AND status = ANY($6)
		RETURNING ` + appointmentColumns

	var cancellationBy *string
	if upd.CancellationBy != nil {
		by := string(*upd.CancellationBy)
		cancellationBy = &by
	}

	a, err := scanAppointment(r.pool.QueryRow(ctx, query,
		id,
		string(upd.Status),
		upd.Reason,
		cancellationBy,
		upd.RequiresAcknowledgment,
		model.StatusStrings(from),
	))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	return a, nil
}

// Acknowledge отмечает отмену консультантом как просмотренную студентом.
// Возвращает nil, если запись не в состоянии ожидания подтверждения.
func (r *AppointmentRepository) Acknowledge(ctx context.Context, id uuid.UUID, at time.Time) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET acknowledged = true, acknowledged_at = $2, updated_at = now()
		WHERE id = $1
		  AND status = 'cancelled'
		  AND cancellation_by = 'guidance'
		  AND acknowledged = false
		RETURNING ` + appointmentColumns

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, id, at))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("acknowledge appointment: %w", err)
	}

	return a, nil
}

// CountByStatus считает записи по статусам
func (r *AppointmentRepository) CountByStatus(ctx context.Context) (map[model.AppointmentStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count appointments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.AppointmentStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[model.AppointmentStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return counts, nil
}

// CountAwaitingAcknowledgment считает отмены консультантом, не подтверждённые студентом
func (r *AppointmentRepository) CountAwaitingAcknowledgment(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE status = 'cancelled' AND cancellation_by = 'guidance' AND acknowledged = false
	`

	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count appointments awaiting acknowledgment: %w", err)
	}

	return count, nil
}
