package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"

	"github.com/google/uuid"
)

const notificationColumns = `id, user_id, channel, status, priority, recipient_email, recipient_fcm_token,
	subject, title, body, data, event_type, retry_count, max_retries, next_retry_at, error_message,
	created_at, sent_at, updated_at`

// NotificationFilter narrows ListNotifications. Nil fields match everything.
type NotificationFilter struct {
	UserID *uuid.UUID
	Status *models.Status
	Page   Page
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n        models.Notification
		channel  string
		status   string
		priority string
	)
	err := row.Scan(
		&n.ID, &n.UserID, &channel, &status, &priority, &n.RecipientEmail, &n.RecipientToken,
		&n.Subject, &n.Title, &n.Body, &n.Data, &n.EventType, &n.RetryCount, &n.MaxRetries,
		&n.NextRetryAt, &n.ErrorMessage, &n.CreatedAt, &n.SentAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Channel = models.Channel(channel)
	n.Status = models.Status(status)
	n.Priority = models.Priority(priority)
	return &n, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := s.now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if n.MaxRetries == 0 {
		n.MaxRetries = models.DefaultMaxRetries
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		n.ID, n.UserID, string(n.Channel), string(n.Status), string(n.Priority), n.RecipientEmail, n.RecipientToken,
		n.Subject, n.Title, n.Body, n.Data, n.EventType, n.RetryCount, n.MaxRetries,
		n.NextRetryAt, n.ErrorMessage, n.CreatedAt, n.SentAt, n.UpdatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError("notification", err)
	}
	return nil
}

// UpdateNotificationStatus persists the mutable delivery fields of n.
func (s *Store) UpdateNotificationStatus(ctx context.Context, n *models.Notification) error {
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $2, retry_count = $3, next_retry_at = $4, error_message = $5,
			sent_at = $6, data = $7, updated_at = $8
		WHERE id = $1`,
		n.ID, string(n.Status), n.RetryCount, n.NextRetryAt, n.ErrorMessage, n.SentAt, n.Data, n.UpdatedAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("update notification status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("update notification status", err)
	}
	if affected == 0 {
		return errors.NewNotificationNotFoundError(n.ID.String())
	}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotificationNotFoundError(id.String())
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get notification", err)
	}
	return n, nil
}

// ListNotifications returns notifications newest first.
func (s *Store) ListNotifications(ctx context.Context, f NotificationFilter) ([]*models.Notification, error) {
	page := f.Page.normalize(100)

	var (
		where []string
		args  []interface{}
	)
	if f.UserID != nil {
		args = append(args, *f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, page.Limit, page.Skip)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return s.queryNotifications(ctx, "list notifications", query, args...)
}

func (s *Store) ListUserNotifications(ctx context.Context, userID uuid.UUID, page Page) ([]*models.Notification, error) {
	return s.ListNotifications(ctx, NotificationFilter{UserID: &userID, Page: page.normalize(50)})
}

// ListDueRetries returns retrying notifications whose next attempt is due, oldest first.
func (s *Store) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryNotifications(ctx, "list due retries", `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status = $1 AND next_retry_at <= $2
		ORDER BY next_retry_at ASC
		LIMIT $3`,
		string(models.StatusRetrying), now, limit,
	)
}

func (s *Store) queryNotifications(ctx context.Context, op, query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(op, err)
	}
	defer rows.Close()

	out := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError(op, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(op, err)
	}
	return out, nil
}
