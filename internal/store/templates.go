package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"

	"github.com/google/uuid"
)

const templateColumns = `id, event_type, channel, subject_template, title_template, body_template,
	priority, is_active, created_at, updated_at`

func scanTemplate(row rowScanner) (*models.NotificationTemplate, error) {
	var (
		t        models.NotificationTemplate
		channel  string
		priority string
	)
	err := row.Scan(&t.ID, &t.EventType, &channel, &t.SubjectTemplate, &t.TitleTemplate, &t.BodyTemplate,
		&priority, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Channel = models.Channel(channel)
	t.Priority = models.Priority(priority)
	return &t, nil
}

// ActiveTemplates returns the active templates for an event type, email before push.
func (s *Store) ActiveTemplates(ctx context.Context, eventType string) ([]*models.NotificationTemplate, error) {
	return s.queryTemplates(ctx, "active templates", `
		SELECT `+templateColumns+` FROM notification_templates
		WHERE event_type = $1 AND is_active = TRUE
		ORDER BY channel ASC`, eventType)
}

// TemplatesByEventType returns every template of an event type, active or not.
func (s *Store) TemplatesByEventType(ctx context.Context, eventType string) ([]*models.NotificationTemplate, error) {
	return s.queryTemplates(ctx, "templates by event type", `
		SELECT `+templateColumns+` FROM notification_templates
		WHERE event_type = $1
		ORDER BY channel ASC`, eventType)
}

func (s *Store) ListTemplates(ctx context.Context, page Page) ([]*models.NotificationTemplate, error) {
	page = page.normalize(100)
	return s.queryTemplates(ctx, "list templates", `
		SELECT `+templateColumns+` FROM notification_templates
		ORDER BY event_type ASC, channel ASC
		LIMIT $1 OFFSET $2`, page.Limit, page.Skip)
}

func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*models.NotificationTemplate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM notification_templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewTemplateNotFoundError("templateId: " + id.String())
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get template", err)
	}
	return t, nil
}

// CreateTemplate inserts t. A second template for the same (event_type,
// channel) pair fails with TEMPLATE_ALREADY_EXISTS.
func (s *Store) CreateTemplate(ctx context.Context, t *models.NotificationTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Priority == "" {
		t.Priority = models.PriorityNormal
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.EventType, string(t.Channel), t.SubjectTemplate, t.TitleTemplate, t.BodyTemplate,
		string(t.Priority), t.Active, t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return errors.NewTemplateAlreadyExistsError(t.EventType, string(t.Channel))
	}
	if err != nil {
		return errors.NewDatabaseInsertFailedError("template", err)
	}
	return nil
}

// UpsertTemplate creates or replaces the template for t's (event_type, channel) pair.
func (s *Store) UpsertTemplate(ctx context.Context, t *models.NotificationTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Priority == "" {
		t.Priority = models.PriorityNormal
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO notification_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_type, channel) DO UPDATE SET
			subject_template = EXCLUDED.subject_template,
			title_template = EXCLUDED.title_template,
			body_template = EXCLUDED.body_template,
			priority = EXCLUDED.priority,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		t.ID, t.EventType, string(t.Channel), t.SubjectTemplate, t.TitleTemplate, t.BodyTemplate,
		string(t.Priority), t.Active, t.CreatedAt, t.UpdatedAt,
	)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return errors.NewDatabaseInsertFailedError("template", err)
	}
	return nil
}

// UpdateTemplate overwrites the content fields of the template with t.ID.
func (s *Store) UpdateTemplate(ctx context.Context, t *models.NotificationTemplate) error {
	t.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE notification_templates
		SET subject_template = $2, title_template = $3, body_template = $4,
			priority = $5, is_active = $6, updated_at = $7
		WHERE id = $1`,
		t.ID, t.SubjectTemplate, t.TitleTemplate, t.BodyTemplate, string(t.Priority), t.Active, t.UpdatedAt,
	)
	return s.checkAffected(res, err, "update template", errors.NewTemplateNotFoundError("templateId: "+t.ID.String()))
}

func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notification_templates WHERE id = $1`, id)
	return s.checkAffected(res, err, "delete template", errors.NewTemplateNotFoundError("templateId: "+id.String()))
}

func (s *Store) queryTemplates(ctx context.Context, op, query string, args ...interface{}) ([]*models.NotificationTemplate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(op, err)
	}
	defer rows.Close()

	out := []*models.NotificationTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError(op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(op, err)
	}
	return out, nil
}

func (s *Store) checkAffected(res sql.Result, err error, op string, notFound error) error {
	if err != nil {
		return errors.NewQueryExecutionFailedError(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError(op, err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
