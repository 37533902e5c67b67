package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mailworker/mailworker/internal/domain"
)

const historyColumns = `id, queue_id, to_emails, cc_emails, bcc_emails, subject, final_body,
	status, sent_at, processing_time_ms, retry_count, template_id, template_used,
	attachment_count, error_details, processed_by, created_at`

// execer covers both *sql.DB and *sql.Tx so the finalize transactions in
// the queue repository can reuse the history insert.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// insertHistoryTx appends one history row within an existing transaction.
func insertHistoryTx(ctx context.Context, ex execer, h *domain.EmailHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO email_history (
			id, queue_id, to_emails, cc_emails, bcc_emails, subject, final_body,
			status, sent_at, processing_time_ms, retry_count, template_id, template_used,
			attachment_count, error_details, processed_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		h.ID, h.QueueID, h.ToEmails, h.CCEmails, h.BCCEmails, h.Subject, h.FinalBody,
		h.Status, h.SentAt, h.ProcessingTimeMs, h.RetryCount, h.TemplateID, h.TemplateUsed,
		h.AttachmentCount, h.ErrorDetails, h.ProcessedBy, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert history row: %w", err)
	}
	return nil
}

// HistoryRepository implements domain.HistoryRepository on PostgreSQL.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a history repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts a history row outside a finalize transaction.
func (r *HistoryRepository) Append(ctx context.Context, h *domain.EmailHistory) error {
	return insertHistoryTx(ctx, r.db, h)
}

// LastHourStats aggregates terminal outcomes over the trailing hour.
func (r *HistoryRepository) LastHourStats(ctx context.Context) (*domain.HourlyStats, error) {
	var stats domain.HourlyStats
	var avgMs sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = $1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = $2 THEN 1 ELSE 0 END), 0),
			AVG(processing_time_ms)
		FROM email_history
		WHERE created_at >= NOW() - INTERVAL '1 hour'`,
		domain.StatusSent, domain.StatusFailed).Scan(&stats.Sent, &stats.Failed, &avgMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly stats: %w", err)
	}
	if avgMs.Valid {
		stats.AvgProcessingMs = avgMs.Float64
	}
	return &stats, nil
}

// TotalCounts returns all-time sent and failed counts.
func (r *HistoryRepository) TotalCounts(ctx context.Context) (int64, int64, error) {
	var sent, failed int64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = $1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = $2 THEN 1 ELSE 0 END), 0)
		FROM email_history`,
		domain.StatusSent, domain.StatusFailed).Scan(&sent, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query total counts: %w", err)
	}
	return sent, failed, nil
}

// SelectBefore returns up to limit rows older than cutoff, oldest first.
func (r *HistoryRepository) SelectBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.EmailHistory, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM email_history
		WHERE created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`, historyColumns)

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history rows: %w", err)
	}
	defer rows.Close()

	var out []*domain.EmailHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// DeleteBefore removes up to limit rows older than cutoff.
func (r *HistoryRepository) DeleteBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM email_history
		WHERE id IN (
			SELECT id FROM email_history
			WHERE created_at < $1
			ORDER BY created_at ASC
			LIMIT $2
		)`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete history rows: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func scanHistory(rows *sql.Rows) (*domain.EmailHistory, error) {
	var h domain.EmailHistory
	var ccEmails, bccEmails, templateUsed, errorDetails sql.NullString
	var templateID sql.NullInt64
	var sentAt sql.NullTime

	err := rows.Scan(
		&h.ID, &h.QueueID, &h.ToEmails, &ccEmails, &bccEmails, &h.Subject, &h.FinalBody,
		&h.Status, &sentAt, &h.ProcessingTimeMs, &h.RetryCount, &templateID, &templateUsed,
		&h.AttachmentCount, &errorDetails, &h.ProcessedBy, &h.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan history row: %w", err)
	}

	if ccEmails.Valid {
		h.CCEmails = &ccEmails.String
	}
	if bccEmails.Valid {
		h.BCCEmails = &bccEmails.String
	}
	if templateID.Valid {
		h.TemplateID = &templateID.Int64
	}
	if templateUsed.Valid {
		h.TemplateUsed = &templateUsed.String
	}
	if errorDetails.Valid {
		h.ErrorDetails = &errorDetails.String
	}
	if sentAt.Valid {
		h.SentAt = &sentAt.Time
	}
	return &h, nil
}
