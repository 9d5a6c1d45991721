// Package templates persists reusable notification templates.
package templates

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "vetcare-reminders/internal/common/errors"
	"vetcare-reminders/internal/engine/render"
	"vetcare-reminders/internal/models"
)

const templateColumns = `id, name, description, template_type, channel, subject, body, variables, is_active, is_default, created_at, updated_at`

// Store is the Postgres-backed template repository.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new template. Setting is_default clears the previous
// default of the same template_type inside the same transaction.
func (s *Store) Create(ctx context.Context, req *models.CreateTemplateRequest) (*models.NotificationTemplate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tpl := &models.NotificationTemplate{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Description:  req.Description,
		TemplateType: req.TemplateType,
		Channel:      req.Channel,
		Subject:      req.Subject,
		Body:         req.Body,
		Variables:    declaredVariables(req.Subject, req.Body),
		IsActive:     true,
		IsDefault:    req.IsDefault,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer tx.Rollback()

	if tpl.IsDefault {
		if err := clearDefault(ctx, tx, tpl.TemplateType, tpl.ID); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notification_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		tpl.ID, tpl.Name, tpl.Description, tpl.TemplateType, tpl.Channel,
		tpl.Subject, tpl.Body, pq.Array(tpl.Variables), tpl.IsActive, tpl.IsDefault,
		tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		return nil, translatePQError(err, tpl.Name)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tpl, nil
}

// Get retrieves a template by id.
func (s *Store) Get(ctx context.Context, id string) (*models.NotificationTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM notification_templates WHERE id = $1
	`, id)

	tpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("template", id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tpl, nil
}

// ListFilter narrows List results; zero values match everything.
type ListFilter struct {
	TemplateType models.TemplateType
	Channel      models.Channel
}

// List returns templates matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*models.NotificationTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM notification_templates`
	var conds []string
	var args []interface{}

	if filter.TemplateType != "" {
		args = append(args, filter.TemplateType)
		conds = append(conds, "template_type = $1")
	}
	if filter.Channel != "" {
		args = append(args, filter.Channel)
		if len(args) == 1 {
			conds = append(conds, "channel = $1")
		} else {
			conds = append(conds, "channel = $2")
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer rows.Close()

	templates := []*models.NotificationTemplate{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return templates, nil
}

// Update applies a patch. Changing body/subject re-derives the declared
// variables; promoting to default demotes the previous one atomically.
func (s *Store) Update(ctx context.Context, id string, req *models.UpdateTemplateRequest) (*models.NotificationTemplate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM notification_templates WHERE id = $1 FOR UPDATE
	`, id)
	tpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("template", id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.TemplateType != nil {
		tpl.TemplateType = *req.TemplateType
	}
	if req.Channel != nil {
		tpl.Channel = *req.Channel
	}
	if req.Subject != nil {
		tpl.Subject = req.Subject
	}
	if req.Body != nil {
		tpl.Body = *req.Body
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		tpl.IsDefault = *req.IsDefault
	}
	tpl.Variables = declaredVariables(tpl.Subject, tpl.Body)
	tpl.UpdatedAt = time.Now().UTC()

	if req.IsDefault != nil && *req.IsDefault {
		if err := clearDefault(ctx, tx, tpl.TemplateType, tpl.ID); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE notification_templates
		SET name = $2, description = $3, template_type = $4, channel = $5,
		    subject = $6, body = $7, variables = $8, is_active = $9,
		    is_default = $10, updated_at = $11
		WHERE id = $1
	`,
		tpl.ID, tpl.Name, tpl.Description, tpl.TemplateType, tpl.Channel,
		tpl.Subject, tpl.Body, pq.Array(tpl.Variables), tpl.IsActive,
		tpl.IsDefault, tpl.UpdatedAt,
	)
	if err != nil {
		return nil, translatePQError(err, tpl.Name)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tpl, nil
}

// Delete removes a template. An active template still referenced by a
// non-terminal reminder cannot be deleted.
func (s *Store) Delete(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reminders
			WHERE template_id = $1 AND status IN ('pending', 'in_flight')
		)
	`, id).Scan(&referenced)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if referenced {
		return apperrors.NewConflictError(
			"template is referenced by scheduled reminders",
			"id: "+id,
		)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM notification_templates WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("template", id)
	}
	return nil
}

func clearDefault(ctx context.Context, tx *sql.Tx, templateType models.TemplateType, keepID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE notification_templates
		SET is_default = FALSE
		WHERE template_type = $1 AND is_default = TRUE AND id <> $2
	`, templateType, keepID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

func declaredVariables(subject *string, body string) []string {
	text := body
	if subject != nil {
		text = *subject + " " + body
	}
	vars := render.Vars(text)
	if vars == nil {
		vars = []string{}
	}
	return vars
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(row rowScanner) (*models.NotificationTemplate, error) {
	var tpl models.NotificationTemplate
	err := row.Scan(
		&tpl.ID, &tpl.Name, &tpl.Description, &tpl.TemplateType, &tpl.Channel,
		&tpl.Subject, &tpl.Body, pq.Array(&tpl.Variables), &tpl.IsActive,
		&tpl.IsDefault, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tpl.Variables == nil {
		tpl.Variables = []string{}
	}
	return &tpl, nil
}

func translatePQError(err error, name string) error {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return apperrors.NewInternalError(err)
	}
	if pqErr.Constraint == "notification_templates_default_per_type" {
		return apperrors.NewConflictError(
			"another template is already the default for this type",
			"name: "+name,
		)
	}
	return apperrors.NewConflictError("template name already exists", "name: "+name)
}
