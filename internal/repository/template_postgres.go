package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mailworker/mailworker/internal/domain"
)

const templateColumns = `id, name, category, subject_template, body_template,
	is_active, version, created_at, updated_at, created_by`

// TemplateRepository implements domain.TemplateRepository on PostgreSQL.
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a template repository.
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a new template at version 1. Name uniqueness among
// active templates is enforced here and by a partial unique index.
func (r *TemplateRepository) Create(ctx context.Context, t *domain.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM email_templates WHERE name = $1 AND is_active = TRUE)`,
		t.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check template name: %w", err)
	}
	if exists {
		return fmt.Errorf("an active template named %q already exists", t.Name)
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.IsActive = true
	if t.Version == 0 {
		t.Version = 1
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO email_templates (
			name, category, subject_template, body_template,
			is_active, version, created_at, updated_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		t.Name, t.Category, t.SubjectTemplate, t.BodyTemplate,
		t.IsActive, t.Version, t.CreatedAt, t.UpdatedAt, t.CreatedBy).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// Update stores new content and bumps the version.
func (r *TemplateRepository) Update(ctx context.Context, t *domain.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE email_templates
		SET name = $1, category = $2, subject_template = $3, body_template = $4,
		    version = version + 1, updated_at = $5
		WHERE id = $6 AND is_active = TRUE`,
		t.Name, t.Category, t.SubjectTemplate, t.BodyTemplate, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	t.Version++
	return nil
}

// GetActiveByID returns the template only when it is active.
func (r *TemplateRepository) GetActiveByID(ctx context.Context, id int64) (*domain.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM email_templates WHERE id = $1 AND is_active = TRUE`, templateColumns)
	t, err := scanTemplateRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return t, err
}

// GetByName returns the active template with the given name.
func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM email_templates WHERE name = $1 AND is_active = TRUE`, templateColumns)
	t, err := scanTemplateRow(r.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return t, err
}

// Deactivate soft-deletes a template by clearing is_active.
func (r *TemplateRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE email_templates
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns templates, optionally restricted to active ones.
func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM email_templates`, templateColumns)
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var out []*domain.Template
	for rows.Next() {
		var t domain.Template
		var createdBy sql.NullString
		err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.SubjectTemplate, &t.BodyTemplate,
			&t.IsActive, &t.Version, &t.CreatedAt, &t.UpdatedAt, &createdBy)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		if createdBy.Valid {
			t.CreatedBy = createdBy.String
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func scanTemplateRow(row *sql.Row) (*domain.Template, error) {
	var t domain.Template
	var createdBy sql.NullString
	err := row.Scan(&t.ID, &t.Name, &t.Category, &t.SubjectTemplate, &t.BodyTemplate,
		&t.IsActive, &t.Version, &t.CreatedAt, &t.UpdatedAt, &createdBy)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		t.CreatedBy = createdBy.String
	}
	return &t, nil
}
