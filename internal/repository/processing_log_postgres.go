package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mailworker/mailworker/internal/domain"
)

// LogRepository implements domain.LogRepository on PostgreSQL.
type LogRepository struct {
	db *sql.DB
}

// NewLogRepository creates a processing log repository.
func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Append inserts one processing log row.
func (r *LogRepository) Append(ctx context.Context, entry *domain.ProcessingLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO processing_logs (
			log_level, category, message, exception, queue_id, worker_id,
			processing_step, context_data, correlation_id, machine_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.LogLevel, entry.Category, entry.Message, entry.Exception, entry.QueueID,
		entry.WorkerID, entry.ProcessingStep, entry.ContextData, entry.CorrelationID,
		entry.MachineName, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert processing log: %w", err)
	}
	return nil
}

// DeleteBefore removes up to limit rows older than cutoff.
func (r *LogRepository) DeleteBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM processing_logs
		WHERE id IN (
			SELECT id FROM processing_logs
			WHERE created_at < $1
			ORDER BY created_at ASC
			LIMIT $2
		)`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processing logs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}
