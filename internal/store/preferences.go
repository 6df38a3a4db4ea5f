package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"

	"github.com/google/uuid"
)

const preferenceColumns = `id, user_id, fcm_token, email_enabled, push_enabled, event_preferences, created_at, updated_at`

func scanPreference(row rowScanner) (*models.UserNotificationPreference, error) {
	var p models.UserNotificationPreference
	err := row.Scan(&p.ID, &p.UserID, &p.PushToken, &p.EmailEnabled, &p.PushEnabled, &p.EventPreferences,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPreference returns nil, nil when the user has no preference record.
func (s *Store) GetPreference(ctx context.Context, userID uuid.UUID) (*models.UserNotificationPreference, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+preferenceColumns+` FROM user_notification_preferences WHERE user_id = $1`, userID)
	p, err := scanPreference(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get preference", err)
	}
	return p, nil
}

// CreatePreference fails with PREFERENCE_ALREADY_EXISTS when the user has a record.
func (s *Store) CreatePreference(ctx context.Context, p *models.UserNotificationPreference) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.EventPreferences == nil {
		p.EventPreferences = models.EventPreferences{}
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_notification_preferences (`+preferenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.UserID, p.PushToken, p.EmailEnabled, p.PushEnabled, p.EventPreferences, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return errors.NewPreferenceAlreadyExistsError(p.UserID.String())
	}
	if err != nil {
		return errors.NewDatabaseInsertFailedError("preference", err)
	}
	return nil
}

// UpdatePreference overwrites the flags and token of the user's record.
func (s *Store) UpdatePreference(ctx context.Context, p *models.UserNotificationPreference) error {
	if p.EventPreferences == nil {
		p.EventPreferences = models.EventPreferences{}
	}
	p.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_notification_preferences
		SET fcm_token = $2, email_enabled = $3, push_enabled = $4, event_preferences = $5, updated_at = $6
		WHERE user_id = $1`,
		p.UserID, p.PushToken, p.EmailEnabled, p.PushEnabled, p.EventPreferences, p.UpdatedAt,
	)
	return s.checkAffected(res, err, "update preference", errors.NewPreferenceNotFoundError(p.UserID.String()))
}

// UpsertPushToken stores a device token, creating a default record
// (both channels enabled) for users without one.
func (s *Store) UpsertPushToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationPreference, error) {
	now := s.now()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_notification_preferences (`+preferenceColumns+`)
		VALUES ($1, $2, $3, TRUE, TRUE, '{}'::jsonb, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET fcm_token = EXCLUDED.fcm_token, updated_at = EXCLUDED.updated_at
		RETURNING `+preferenceColumns,
		uuid.New(), userID, token, now,
	)
	p, err := scanPreference(row)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("upsert push token", err)
	}
	return p, nil
}
