package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailworker/mailworker/internal/repository/testutil"
)

func TestAttachmentRepository_ListByQueueID(t *testing.T) {
	ctx := context.Background()
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewAttachmentRepository(db)
	mock.ExpectQuery(`SELECT (.+) FROM email_attachments`).
		WithArgs("q-1").
		WillReturnRows(sqlmock.NewRows([]string{"file_name", "content_type", "content", "file_path", "is_inline", "content_id"}).
			AddRow("report.pdf", "application/pdf", "JVBERg==", nil, false, nil).
			AddRow("logo.png", "image/png", "iVBORw0KGgo=", nil, true, "logo@x"))

	atts, err := repo.ListByQueueID(ctx, "q-1")
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "report.pdf", atts[0].FileName)
	assert.False(t, atts[0].IsInline)
	assert.True(t, atts[1].IsInline)
	assert.Equal(t, "logo@x", atts[1].ContentID)
}

func TestAttachmentRepository_DeleteOrphaned(t *testing.T) {
	ctx := context.Background()
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewAttachmentRepository(db)
	mock.ExpectExec(`DELETE FROM email_attachments`).
		WithArgs(1000).
		WillReturnResult(sqlmock.NewResult(0, 9))

	count, err := repo.DeleteOrphaned(ctx, 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 9, count)
}
