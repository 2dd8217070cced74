package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/casetrack-api/internal/models"
)

const notificationColumns = `id, recipient_id, process_id, title, message, type, category, priority, status,
       viewed, metadata, created_at, expires_at`

// NotificationRepository persists notifications. It never joins the caller's transaction.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts one notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (` + notificationColumns + `)
	VALUES (:id, :recipient_id, :process_id, :title, :message, :type, :category, :priority, :status,
	        :viewed, :metadata, :created_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByRecipient returns unexpired notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, filter models.NotificationFilter, now time.Time) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
	WHERE recipient_id = $1 AND (expires_at IS NULL OR expires_at > $2)`
	if filter.OnlyUnread {
		query += ` AND viewed = FALSE`
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", limit, offset)

	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, filter.RecipientID, now); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// GetByID returns one notification or sql.ErrNoRows.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &n, nil
}

// CountUnread counts unviewed, unexpired notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications
	WHERE recipient_id = $1 AND viewed = FALSE AND (expires_at IS NULL OR expires_at > $2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, recipientID, now); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkViewed flags one notification. It returns sql.ErrNoRows when the id does not exist.
func (r *NotificationRepository) MarkViewed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET viewed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification viewed: %w", err)
	}
	return requireAffected(res, "mark notification viewed")
}

// MarkAllViewed flags every unviewed notification of the recipient.
func (r *NotificationRepository) MarkAllViewed(ctx context.Context, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET viewed = TRUE WHERE recipient_id = $1 AND viewed = FALSE`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications viewed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check mark all rows: %w", err)
	}
	if affected == 0 {
		return 0, sql.ErrNoRows
	}
	return affected, nil
}

// Delete removes one notification. It returns sql.ErrNoRows when the id does not exist.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return requireAffected(res, "delete notification")
}

// PurgeExpired deletes notifications whose expiry passed and returns the affected recipients.
func (r *NotificationRepository) PurgeExpired(ctx context.Context, now time.Time) ([]string, error) {
	const query = `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= $1 RETURNING recipient_id`
	var recipients []string
	if err := r.db.SelectContext(ctx, &recipients, query, now); err != nil {
		return nil, fmt.Errorf("purge expired notifications: %w", err)
	}
	return recipients, nil
}
