package postgres

import (
	"context"
	"fmt"

	"github.com/nuvemautoma/hot-class/db"
	"github.com/nuvemautoma/hot-class/internal/community/domain"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
)

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT n.id, n.title, n.message, n.icon, n.user_id, n.created_at, r.user_id IS NOT NULL AS read
		FROM notifications n
		LEFT JOIN notification_reads r ON r.notification_id = n.id AND r.user_id = $1
		WHERE n.user_id IS NULL OR n.user_id = $1
		ORDER BY n.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Icon, &n.UserID, &n.CreatedAt, &n.Read); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *PostgresRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM notifications n
		LEFT JOIN notification_reads r ON r.notification_id = n.id AND r.user_id = $1
		WHERE (n.user_id IS NULL OR n.user_id = $1) AND r.user_id IS NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, title, message, icon, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.Title, n.Message, n.Icon, n.UserID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteNotification(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		if db.IsMalformedID(err) {
			return autherror.ErrNotificationNotFound
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrNotificationNotFound
	}
	return nil
}

// MarkRead is idempotent. A notification the user cannot see is reported as not found.
func (r *PostgresRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO notification_reads (notification_id, user_id)
		SELECT n.id, $2 FROM notifications n
		WHERE n.id = $1 AND (n.user_id IS NULL OR n.user_id = $2)
		ON CONFLICT (notification_id, user_id) DO UPDATE SET read_at = notification_reads.read_at
	`, notificationID, userID)
	if err != nil {
		if db.IsMalformedID(err) {
			return autherror.ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrNotificationNotFound
	}
	return nil
}
