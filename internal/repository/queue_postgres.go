package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mailworker/mailworker/internal/domain"
)

// psql is a Squirrel StatementBuilder configured for PostgreSQL.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const queueColumns = `id, queue_id, priority, status, to_emails, cc_emails, bcc_emails,
	subject, body, is_html, template_id, template_data, requires_template_processing,
	attachments, has_embedded_images, retry_count, processing_started_at, processed_at,
	error_message, processed_by, scheduled_for, is_scheduled,
	created_at, updated_at, created_by, request_source`

// QueueRepository implements domain.QueueRepository on PostgreSQL.
type QueueRepository struct {
	db     *sql.DB
	policy domain.RetryPolicy
}

// NewQueueRepository creates a queue repository with the given retry policy.
func NewQueueRepository(db *sql.DB, policy domain.RetryPolicy) *QueueRepository {
	return &QueueRepository{db: db, policy: policy}
}

// Enqueue inserts a new queue row, generating the queue_id when missing.
func (r *QueueRepository) Enqueue(ctx context.Context, item *domain.QueueItem) error {
	if item.QueueID == "" {
		item.QueueID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	query, args, err := psql.
		Insert("email_queue").
		Columns(
			"queue_id", "priority", "status", "to_emails", "cc_emails", "bcc_emails",
			"subject", "body", "is_html", "template_id", "template_data",
			"requires_template_processing", "attachments", "has_embedded_images",
			"retry_count", "scheduled_for", "is_scheduled",
			"created_at", "updated_at", "created_by", "request_source",
		).
		Values(
			item.QueueID, item.Priority, item.Status, item.ToEmails, item.CCEmails, item.BCCEmails,
			item.Subject, item.Body, item.IsHTML, item.TemplateID, item.TemplateData,
			item.RequiresTemplateProcessing, item.Attachments, item.HasEmbeddedImages,
			item.RetryCount, item.ScheduledFor, item.IsScheduled,
			item.CreatedAt, item.UpdatedAt, item.CreatedBy, item.RequestSource,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build enqueue query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&item.ID); err != nil {
		return fmt.Errorf("failed to enqueue item: %w", err)
	}
	return nil
}

// ClaimBatch atomically claims up to limit eligible rows for workerID.
// The inner select locks rows with SKIP LOCKED so concurrent claimers
// never take the same row; UPDATE ... RETURNING does not preserve the
// select order, so the batch is re-sorted before returning.
func (r *QueueRepository) ClaimBatch(ctx context.Context, workerID string, limit int) ([]*domain.QueueItem, error) {
	query := fmt.Sprintf(`
		UPDATE email_queue
		SET status = $1, processing_started_at = NOW(), processed_by = $2, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM email_queue
			WHERE status = $3 AND (is_scheduled = FALSE OR scheduled_for <= NOW())
			ORDER BY priority DESC, created_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, queueColumns)

	rows, err := r.db.QueryContext(ctx, query, domain.StatusProcessing, workerID, domain.StatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim batch: %w", err)
	}
	defer rows.Close()

	var items []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed rows: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// MarkSent finalizes a Processing row owned by workerID and appends the
// history record in the same transaction. Returns false when the guard
// does not match (row already finalized, reclaimed or owned elsewhere).
func (r *QueueRepository) MarkSent(ctx context.Context, queueID, workerID string, hist *domain.EmailHistory) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE email_queue
		SET status = $1, processed_at = NOW(), updated_at = NOW(), error_message = NULL
		WHERE queue_id = $2 AND status = $3 AND processed_by = $4`,
		domain.StatusSent, queueID, domain.StatusProcessing, workerID)
	if err != nil {
		return false, fmt.Errorf("failed to mark sent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if hist != nil {
		if err := insertHistoryTx(ctx, tx, hist); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// MarkFailed requeues the row for retry when allowed and under the cap,
// otherwise marks it permanently Failed and appends the terminal history
// record. Retry eligibility is delayed by the policy's retry delay.
func (r *QueueRepository) MarkFailed(ctx context.Context, queueID, errorMessage string, allowRetry bool, hist *domain.EmailHistory) (domain.FailureOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.FailureOutcomeNone, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var retryCount int
	var status domain.QueueStatus
	err = tx.QueryRowContext(ctx,
		`SELECT retry_count, status FROM email_queue WHERE queue_id = $1 FOR UPDATE`,
		queueID).Scan(&retryCount, &status)
	if err == sql.ErrNoRows {
		return domain.FailureOutcomeNone, nil
	}
	if err != nil {
		return domain.FailureOutcomeNone, fmt.Errorf("failed to lock queue row: %w", err)
	}
	if status != domain.StatusProcessing {
		return domain.FailureOutcomeNone, nil
	}

	if allowRetry && retryCount < r.policy.MaxRetries {
		nextEligible := time.Now().UTC().Add(r.policy.RetryDelay)
		_, err = tx.ExecContext(ctx, `
			UPDATE email_queue
			SET status = $1, retry_count = retry_count + 1, error_message = $2,
			    processed_by = NULL, processing_started_at = NULL,
			    is_scheduled = TRUE, scheduled_for = $3, updated_at = NOW()
			WHERE queue_id = $4`,
			domain.StatusQueued, errorMessage, nextEligible, queueID)
		if err != nil {
			return domain.FailureOutcomeNone, fmt.Errorf("failed to requeue for retry: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return domain.FailureOutcomeNone, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return domain.FailureOutcomeRequeued, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE email_queue
		SET status = $1, error_message = $2, processed_at = NOW(), updated_at = NOW()
		WHERE queue_id = $3`,
		domain.StatusFailed, errorMessage, queueID)
	if err != nil {
		return domain.FailureOutcomeNone, fmt.Errorf("failed to mark failed: %w", err)
	}

	if hist != nil {
		if err := insertHistoryTx(ctx, tx, hist); err != nil {
			return domain.FailureOutcomeNone, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.FailureOutcomeNone, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return domain.FailureOutcomeTerminal, nil
}

// GetStuck returns Processing rows older than the threshold.
func (r *QueueRepository) GetStuck(ctx context.Context, threshold time.Duration) ([]*domain.QueueItem, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	query := fmt.Sprintf(`
		SELECT %s FROM email_queue
		WHERE status = $1 AND processing_started_at < $2
		ORDER BY processing_started_at ASC`, queueColumns)

	rows, err := r.db.QueryContext(ctx, query, domain.StatusProcessing, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck rows: %w", err)
	}
	defer rows.Close()

	var items []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ResetStuck moves stuck Processing rows back to Queued and clears
// ownership. retry_count is untouched: the reset is not an attempt.
func (r *QueueRepository) ResetStuck(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	result, err := r.db.ExecContext(ctx, `
		UPDATE email_queue
		SET status = $1, processed_by = NULL, processing_started_at = NULL, updated_at = NOW()
		WHERE status = $2 AND processing_started_at < $3`,
		domain.StatusQueued, domain.StatusProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck rows: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// Cancel transitions a Queued or Processing row to Cancelled. Cancelling
// a row already terminal is a no-op.
func (r *QueueRepository) Cancel(ctx context.Context, queueID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE email_queue
		SET status = $1, processed_at = NOW(), updated_at = NOW()
		WHERE queue_id = $2 AND status IN ($3, $4)`,
		domain.StatusCancelled, queueID, domain.StatusQueued, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to cancel: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var status domain.QueueStatus
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM email_queue WHERE queue_id = $1`, queueID).Scan(&status)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}
	if status.IsTerminal() {
		// Idempotent on terminal rows.
		return nil
	}
	return domain.ErrInvalidTransition
}

// GetByQueueID fetches a single row by its surface identifier.
func (r *QueueRepository) GetByQueueID(ctx context.Context, queueID string) (*domain.QueueItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM email_queue WHERE queue_id = $1`, queueColumns)
	rows, err := r.db.QueryContext(ctx, query, queueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	return scanQueueItem(rows)
}

// Statistics returns per-status counts, the oldest queued timestamp and
// the average processing time of sent rows.
func (r *QueueRepository) Statistics(ctx context.Context) (*domain.QueueStatistics, error) {
	stats := &domain.QueueStatistics{
		CountsByStatus: make(map[domain.QueueStatus]int64),
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM email_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.QueueStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.CountsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var oldest sql.NullTime
	var avgMs sql.NullFloat64
	err = r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT MIN(created_at) FROM email_queue WHERE status = $1),
			(SELECT AVG(EXTRACT(EPOCH FROM (processed_at - processing_started_at)) * 1000)
			 FROM email_queue
			 WHERE status = $2 AND processed_at IS NOT NULL AND processing_started_at IS NOT NULL)`,
		domain.StatusQueued, domain.StatusSent).Scan(&oldest, &avgMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue aggregates: %w", err)
	}
	if oldest.Valid {
		stats.OldestQueuedAt = &oldest.Time
	}
	if avgMs.Valid {
		stats.AvgProcessingMs = avgMs.Float64
	}
	return stats, nil
}

// DeleteTerminalBefore removes up to limit rows with the given terminal
// status last updated before cutoff.
func (r *QueueRepository) DeleteTerminalBefore(ctx context.Context, status domain.QueueStatus, cutoff time.Time, limit int) (int64, error) {
	if !status.IsTerminal() {
		return 0, fmt.Errorf("status %s is not terminal", status)
	}
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM email_queue
		WHERE id IN (
			SELECT id FROM email_queue
			WHERE status = $1 AND updated_at < $2
			ORDER BY updated_at ASC
			LIMIT $3
		)`, status, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal rows: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// scanQueueItem scans one row into a QueueItem.
func scanQueueItem(rows *sql.Rows) (*domain.QueueItem, error) {
	var item domain.QueueItem
	var ccEmails, bccEmails, templateData, attachments, errorMessage, processedBy, requestSource sql.NullString
	var templateID sql.NullInt64
	var processingStartedAt, processedAt, scheduledFor sql.NullTime

	err := rows.Scan(
		&item.ID, &item.QueueID, &item.Priority, &item.Status, &item.ToEmails, &ccEmails, &bccEmails,
		&item.Subject, &item.Body, &item.IsHTML, &templateID, &templateData, &item.RequiresTemplateProcessing,
		&attachments, &item.HasEmbeddedImages, &item.RetryCount, &processingStartedAt, &processedAt,
		&errorMessage, &processedBy, &scheduledFor, &item.IsScheduled,
		&item.CreatedAt, &item.UpdatedAt, &item.CreatedBy, &requestSource,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue item: %w", err)
	}

	if ccEmails.Valid {
		item.CCEmails = &ccEmails.String
	}
	if bccEmails.Valid {
		item.BCCEmails = &bccEmails.String
	}
	if templateID.Valid {
		item.TemplateID = &templateID.Int64
	}
	if templateData.Valid {
		item.TemplateData = &templateData.String
	}
	if attachments.Valid {
		item.Attachments = &attachments.String
	}
	if processingStartedAt.Valid {
		item.ProcessingStartedAt = &processingStartedAt.Time
	}
	if processedAt.Valid {
		item.ProcessedAt = &processedAt.Time
	}
	if errorMessage.Valid {
		item.ErrorMessage = &errorMessage.String
	}
	if processedBy.Valid {
		item.ProcessedBy = &processedBy.String
	}
	if scheduledFor.Valid {
		item.ScheduledFor = &scheduledFor.Time
	}
	if requestSource.Valid {
		item.RequestSource = &requestSource.String
	}
	return &item, nil
}
