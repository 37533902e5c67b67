package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/internal/repository/testutil"
)

var templateColumnList = []string{
	"id", "name", "category", "subject_template", "body_template",
	"is_active", "version", "created_at", "updated_at", "created_by",
}

func TestTemplateRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates at version 1", func(t *testing.T) {
		db, mock, cleanup := testutil.SetupMockDB(t)
		defer cleanup()

		repo := NewTemplateRepository(db)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("welcome").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`INSERT INTO email_templates`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

		tpl := &domain.Template{Name: "welcome", SubjectTemplate: "Welcome {{UserName}}", BodyTemplate: "Hi"}
		require.NoError(t, repo.Create(ctx, tpl))
		assert.EqualValues(t, 5, tpl.ID)
		assert.Equal(t, 1, tpl.Version)
		assert.True(t, tpl.IsActive)
	})

	t.Run("rejects duplicate active name", func(t *testing.T) {
		db, mock, cleanup := testutil.SetupMockDB(t)
		defer cleanup()

		repo := NewTemplateRepository(db)
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("welcome").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.Create(ctx, &domain.Template{Name: "welcome", SubjectTemplate: "s", BodyTemplate: "b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("rejects invalid template", func(t *testing.T) {
		db, _, cleanup := testutil.SetupMockDB(t)
		defer cleanup()

		repo := NewTemplateRepository(db)
		err := repo.Create(ctx, &domain.Template{Name: ""})
		assert.Error(t, err)
	})
}

func TestTemplateRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("bumps version", func(t *testing.T) {
		db, mock, cleanup := testutil.SetupMockDB(t)
		defer cleanup()

		repo := NewTemplateRepository(db)
		mock.ExpectExec(`UPDATE email_templates`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tpl := &domain.Template{ID: 5, Name: "welcome", SubjectTemplate: "s", BodyTemplate: "b", Version: 1}
		require.NoError(t, repo.Update(ctx, tpl))
		assert.Equal(t, 2, tpl.Version)
	})

	t.Run("missing or inactive", func(t *testing.T) {
		db, mock, cleanup := testutil.SetupMockDB(t)
		defer cleanup()

		repo := NewTemplateRepository(db)
		mock.ExpectExec(`UPDATE email_templates`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, &domain.Template{ID: 99, Name: "x", SubjectTemplate: "s", BodyTemplate: "b"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTemplateRepository_GetActiveByID(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		db, mock, cleanup := testutil.SetupMockDB(t)
		defer cleanup()

		repo := NewTemplateRepository(db)
		mock.ExpectQuery(`SELECT (.+) FROM email_templates WHERE id`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(templateColumnList).
				AddRow(5, "welcome", "onboarding", "Welcome {{UserName}}", "Hi {{UserName}}", true, 2, now, now, "admin"))

		tpl, err := repo.GetActiveByID(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "welcome", tpl.Name)
		assert.Equal(t, 2, tpl.Version)
		assert.Equal(t, "admin", tpl.CreatedBy)
	})

	t.Run("inactive or missing", func(t *testing.T) {
		db, mock, cleanup := testutil.SetupMockDB(t)
		defer cleanup()

		repo := NewTemplateRepository(db)
		mock.ExpectQuery(`SELECT (.+) FROM email_templates WHERE id`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows(templateColumnList))

		_, err := repo.GetActiveByID(ctx, 9)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTemplateRepository_Deactivate(t *testing.T) {
	ctx := context.Background()
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewTemplateRepository(db)
	mock.ExpectExec(`UPDATE email_templates`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Deactivate(ctx, 5))
}

func TestTemplateRepository_List(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewTemplateRepository(db)
	mock.ExpectQuery(`SELECT (.+) FROM email_templates WHERE is_active`).
		WillReturnRows(sqlmock.NewRows(templateColumnList).
			AddRow(1, "alert", "", "s", "b", true, 1, now, now, nil).
			AddRow(2, "welcome", "onboarding", "s", "b", true, 3, now, now, "admin"))

	tpls, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, tpls, 2)
	assert.Equal(t, "alert", tpls[0].Name)
	assert.Empty(t, tpls[0].CreatedBy)
}
