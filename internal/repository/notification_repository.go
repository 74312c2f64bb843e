package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationColumns = `
	id, user_id, type, title, message, appointment_id, post_id, unread,
	requires_acknowledgment, acknowledged, created_at`

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.AppointmentID,
		&n.PostID,
		&n.Unread,
		&n.RequiresAcknowledgment,
		&n.Acknowledged,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create сохраняет уведомление
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, appointment_id, post_id, unread, requires_acknowledgment, acknowledged)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		n.ID,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		n.AppointmentID,
		n.PostID,
		n.Unread,
		n.RequiresAcknowledgment,
		n.Acknowledged,
	).Scan(&n.CreatedAt)

	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}

// ListByRecipient получает уведомления пользователя, новые первыми
func (r *NotificationRepository) ListByRecipient(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR unread)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead снимает флаг unread. Возвращает false, если уведомление не найдено.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE notifications SET unread = false
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Acknowledge подтверждает уведомление. Возвращает false, если уведомление не найдено.
func (r *NotificationRepository) Acknowledge(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE notifications SET acknowledged = true, unread = false
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("acknowledge notification: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// AcknowledgeByAppointment подтверждает все уведомления пользователя по записи, требующие подтверждения
func (r *NotificationRepository) AcknowledgeByAppointment(ctx context.Context, appointmentID, userID uuid.UUID) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE notifications SET acknowledged = true, unread = false
		WHERE appointment_id = $1 AND user_id = $2
		  AND requires_acknowledgment AND NOT acknowledged
	`, appointmentID, userID)
	if err != nil {
		return 0, fmt.Errorf("acknowledge notifications by appointment: %w", err)
	}

	return result.RowsAffected(), nil
}

// CountUnread считает непрочитанные уведомления пользователя
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND unread
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}
