package database

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCoversAllTables(t *testing.T) {
	joined := strings.Join(TableDefinitions, "\n")
	for _, table := range []string{
		"email_queue", "email_templates", "email_history",
		"email_attachments", "processing_logs", "scheduled_emails", "service_status",
	} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestSchemaIndexes(t *testing.T) {
	joined := strings.Join(IndexDefinitions, "\n")
	assert.Contains(t, joined, "idx_email_queue_queue_id")
	assert.Contains(t, joined, "status, priority, created_at")
	assert.Contains(t, joined, "INCLUDE (queue_id, to_emails, subject)")
	assert.Contains(t, joined, "WHERE is_scheduled")
	assert.Contains(t, joined, "WHERE status = 3")
	assert.Contains(t, joined, "idx_service_status_instance")
}

func TestEnsureSchema(t *testing.T) {
	t.Run("executes every statement", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		for range TableDefinitions {
			mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).
				WillReturnResult(sqlmock.NewResult(0, 0))
		}
		for range IndexDefinitions {
			mock.ExpectExec(`CREATE (UNIQUE )?INDEX IF NOT EXISTS`).
				WillReturnResult(sqlmock.NewResult(0, 0))
		}

		require.NoError(t, EnsureSchema(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces failures", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).
			WillReturnError(assert.AnError)

		assert.Error(t, EnsureSchema(context.Background(), db))
	})
}
