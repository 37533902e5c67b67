package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mailworker/mailworker/internal/domain"
)

const scheduledColumns = `id, schedule_id, next_run_time, cron_expression, interval_minutes,
	is_recurring, is_active, execution_count, max_executions, last_executed_at,
	to_emails, cc_emails, bcc_emails, subject, body, is_html, priority,
	template_id, template_data, created_at, updated_at, created_by`

// ScheduledRepository implements domain.ScheduledRepository on PostgreSQL.
type ScheduledRepository struct {
	db *sql.DB
}

// NewScheduledRepository creates a scheduled email repository.
func NewScheduledRepository(db *sql.DB) *ScheduledRepository {
	return &ScheduledRepository{db: db}
}

// Create inserts a new schedule.
func (r *ScheduledRepository) Create(ctx context.Context, s *domain.ScheduledEmail) error {
	if s.ScheduleID == "" {
		s.ScheduleID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO scheduled_emails (
			schedule_id, next_run_time, cron_expression, interval_minutes,
			is_recurring, is_active, execution_count, max_executions,
			to_emails, cc_emails, bcc_emails, subject, body, is_html, priority,
			template_id, template_data, created_at, updated_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id`,
		s.ScheduleID, s.NextRunTime, s.CronExpression, s.IntervalMinutes,
		s.IsRecurring, s.IsActive, s.ExecutionCount, s.MaxExecutions,
		s.ToEmails, s.CCEmails, s.BCCEmails, s.Subject, s.Body, s.IsHTML, s.Priority,
		s.TemplateID, s.TemplateData, s.CreatedAt, s.UpdatedAt, s.CreatedBy).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

// DueBatch returns active schedules due at now and under their execution
// cap, locking them against concurrent promoters.
func (r *ScheduledRepository) DueBatch(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledEmail, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM scheduled_emails
		WHERE is_active = TRUE
		  AND next_run_time <= $1
		  AND (max_executions IS NULL OR execution_count < max_executions)
		ORDER BY next_run_time ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, scheduledColumns)

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	defer rows.Close()

	var out []*domain.ScheduledEmail
	for rows.Next() {
		s, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Promote inserts the queue row and updates the schedule row in one
// transaction. The caller mutates the schedule (execution count, last
// executed, next run or deactivation) before calling.
func (r *ScheduledRepository) Promote(ctx context.Context, s *domain.ScheduledEmail, item *domain.QueueItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if item.QueueID == "" {
		item.QueueID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	err = tx.QueryRowContext(ctx, `
		INSERT INTO email_queue (
			queue_id, priority, status, to_emails, cc_emails, bcc_emails,
			subject, body, is_html, template_id, template_data,
			requires_template_processing, attachments, has_embedded_images,
			retry_count, scheduled_for, is_scheduled,
			created_at, updated_at, created_by, request_source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id`,
		item.QueueID, item.Priority, item.Status, item.ToEmails, item.CCEmails, item.BCCEmails,
		item.Subject, item.Body, item.IsHTML, item.TemplateID, item.TemplateData,
		item.RequiresTemplateProcessing, item.Attachments, item.HasEmbeddedImages,
		item.RetryCount, item.ScheduledFor, item.IsScheduled,
		item.CreatedAt, item.UpdatedAt, item.CreatedBy, item.RequestSource).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to enqueue scheduled email: %w", err)
	}

	s.UpdatedAt = now
	_, err = tx.ExecContext(ctx, `
		UPDATE scheduled_emails
		SET next_run_time = $1, is_active = $2, execution_count = $3,
		    last_executed_at = $4, updated_at = $5
		WHERE schedule_id = $6`,
		s.NextRunTime, s.IsActive, s.ExecutionCount, s.LastExecutedAt, s.UpdatedAt, s.ScheduleID)
	if err != nil {
		return fmt.Errorf("failed to advance schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanScheduled(rows *sql.Rows) (*domain.ScheduledEmail, error) {
	var s domain.ScheduledEmail
	var cronExpr, ccEmails, bccEmails, templateData, createdBy sql.NullString
	var intervalMinutes, maxExecutions sql.NullInt64
	var templateID sql.NullInt64
	var lastExecutedAt sql.NullTime

	err := rows.Scan(
		&s.ID, &s.ScheduleID, &s.NextRunTime, &cronExpr, &intervalMinutes,
		&s.IsRecurring, &s.IsActive, &s.ExecutionCount, &maxExecutions, &lastExecutedAt,
		&s.ToEmails, &ccEmails, &bccEmails, &s.Subject, &s.Body, &s.IsHTML, &s.Priority,
		&templateID, &templateData, &s.CreatedAt, &s.UpdatedAt, &createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	if cronExpr.Valid {
		s.CronExpression = &cronExpr.String
	}
	if intervalMinutes.Valid {
		v := int(intervalMinutes.Int64)
		s.IntervalMinutes = &v
	}
	if maxExecutions.Valid {
		v := int(maxExecutions.Int64)
		s.MaxExecutions = &v
	}
	if lastExecutedAt.Valid {
		s.LastExecutedAt = &lastExecutedAt.Time
	}
	if ccEmails.Valid {
		s.CCEmails = &ccEmails.String
	}
	if bccEmails.Valid {
		s.BCCEmails = &bccEmails.String
	}
	if templateID.Valid {
		s.TemplateID = &templateID.Int64
	}
	if templateData.Valid {
		s.TemplateData = &templateData.String
	}
	if createdBy.Valid {
		s.CreatedBy = createdBy.String
	}
	return &s, nil
}
