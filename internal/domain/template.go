package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -destination mocks/mock_template_repository.go -package mocks github.com/mailworker/mailworker/internal/domain TemplateRepository

// Template is a reusable pair of subject and body strings with
// placeholder, conditional and loop syntax.
type Template struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category,omitempty"`
	SubjectTemplate string    `json:"subject_template"`
	BodyTemplate    string    `json:"body_template"`
	IsActive        bool      `json:"is_active"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	CreatedBy       string    `json:"created_by,omitempty"`
}

// Validate checks the template before persistence.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("invalid template: name is required")
	}
	if len(t.Name) > 100 {
		return fmt.Errorf("invalid template: name length must be between 1 and 100")
	}
	if t.SubjectTemplate == "" {
		return fmt.Errorf("invalid template: subject template is required")
	}
	if t.BodyTemplate == "" {
		return fmt.Errorf("invalid template: body template is required")
	}
	return nil
}

// TemplateRepository provides access to stored templates. Name uniqueness
// is enforced among active templates only; deactivation is the soft
// delete used when a template is still referenced by queue rows.
type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error

	// Update bumps the version and stores the new content.
	Update(ctx context.Context, t *Template) error

	// GetActiveByID returns the template only when it is active.
	GetActiveByID(ctx context.Context, id int64) (*Template, error)

	GetByName(ctx context.Context, name string) (*Template, error)

	// Deactivate soft-deletes a template by clearing is_active.
	Deactivate(ctx context.Context, id int64) error

	List(ctx context.Context, activeOnly bool) ([]*Template, error)
}
