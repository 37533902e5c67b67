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

var historyColumnList = []string{
	"id", "queue_id", "to_emails", "cc_emails", "bcc_emails", "subject", "final_body",
	"status", "sent_at", "processing_time_ms", "retry_count", "template_id", "template_used",
	"attachment_count", "error_details", "processed_by", "created_at",
}

func TestHistoryRepository_Append(t *testing.T) {
	ctx := context.Background()
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	mock.ExpectExec(`INSERT INTO email_history`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := &domain.EmailHistory{
		QueueID:     "q-1",
		ToEmails:    "a@x.test",
		Subject:     "Hi",
		FinalBody:   "Hello",
		Status:      domain.StatusSent,
		ProcessedBy: "host-task1",
	}
	require.NoError(t, repo.Append(ctx, h))
	assert.NotEmpty(t, h.ID)
	assert.False(t, h.CreatedAt.IsZero())
}

func TestHistoryRepository_LastHourStats(t *testing.T) {
	ctx := context.Background()
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	mock.ExpectQuery(`SELECT`).
		WithArgs(domain.StatusSent, domain.StatusFailed).
		WillReturnRows(sqlmock.NewRows([]string{"sent", "failed", "avg"}).AddRow(90, 10, 250.0))

	stats, err := repo.LastHourStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 90, stats.Sent)
	assert.EqualValues(t, 10, stats.Failed)
	assert.InDelta(t, 250.0, stats.AvgProcessingMs, 0.001)
	assert.InDelta(t, 10.0, stats.FailureRatePercent(), 0.001)
}

func TestHistoryRepository_TotalCounts(t *testing.T) {
	ctx := context.Background()
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	mock.ExpectQuery(`SELECT`).
		WithArgs(domain.StatusSent, domain.StatusFailed).
		WillReturnRows(sqlmock.NewRows([]string{"sent", "failed"}).AddRow(12345, 67))

	sent, failed, err := repo.TotalCounts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 12345, sent)
	assert.EqualValues(t, 67, failed)
}

func TestHistoryRepository_SelectBefore(t *testing.T) {
	ctx := context.Background()
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	now := time.Now().UTC()
	sentAt := now.Add(-48 * time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM email_history`).
		WithArgs(sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows(historyColumnList).
			AddRow("h-1", "q-1", "a@x.test", nil, nil, "Hi", "Hello",
				domain.StatusSent, sentAt, 120, 0, nil, nil, 0, nil, "host-task1", sentAt))

	rows, err := repo.SelectBefore(ctx, now.Add(-24*time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "h-1", rows[0].ID)
	require.NotNil(t, rows[0].SentAt)
	assert.Nil(t, rows[0].ErrorDetails)
}

func TestHistoryRepository_DeleteBefore(t *testing.T) {
	ctx := context.Background()
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	mock.ExpectExec(`DELETE FROM email_history`).
		WithArgs(sqlmock.AnyArg(), 1000).
		WillReturnResult(sqlmock.NewResult(0, 42))

	count, err := repo.DeleteBefore(ctx, time.Now().UTC(), 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 42, count)
}
