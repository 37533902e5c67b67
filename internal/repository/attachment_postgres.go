package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mailworker/mailworker/internal/domain"
)

// AttachmentRepository implements domain.AttachmentRepository on
// PostgreSQL. The table holds attachment payloads the ingress stores out
// of band of the queue row's JSON blob.
type AttachmentRepository struct {
	db *sql.DB
}

// NewAttachmentRepository creates an attachment repository.
func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// ListByQueueID returns the stored attachments for a queue row.
func (r *AttachmentRepository) ListByQueueID(ctx context.Context, queueID string) ([]domain.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT file_name, content_type, content, file_path, is_inline, content_id
		FROM email_attachments
		WHERE queue_id = $1
		ORDER BY id ASC`, queueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var out []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		var contentType, content, filePath, contentID sql.NullString
		if err := rows.Scan(&a.FileName, &contentType, &content, &filePath, &a.IsInline, &contentID); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		if contentType.Valid {
			a.ContentType = contentType.String
		}
		if content.Valid {
			a.Content = content.String
		}
		if filePath.Valid {
			a.FilePath = filePath.String
		}
		if contentID.Valid {
			a.ContentID = contentID.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteOrphaned removes up to limit attachment rows whose queue row no
// longer exists.
func (r *AttachmentRepository) DeleteOrphaned(ctx context.Context, limit int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM email_attachments
		WHERE id IN (
			SELECT a.id FROM email_attachments a
			LEFT JOIN email_queue q ON q.queue_id = a.queue_id
			WHERE q.queue_id IS NULL
			LIMIT $1
		)`, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned attachments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}
