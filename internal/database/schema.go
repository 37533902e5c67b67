package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TableDefinitions contains the SQL statements to create the worker's
// tables. Soft references only: no REFERENCES constraints, the worker
// never traverses relationships at runtime.
var TableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS email_queue (
		id BIGSERIAL PRIMARY KEY,
		queue_id UUID NOT NULL,
		priority SMALLINT NOT NULL DEFAULT 2,
		status SMALLINT NOT NULL DEFAULT 0,
		to_emails TEXT NOT NULL,
		cc_emails TEXT,
		bcc_emails TEXT,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		is_html BOOLEAN NOT NULL DEFAULT FALSE,
		template_id BIGINT,
		template_data TEXT,
		requires_template_processing BOOLEAN NOT NULL DEFAULT FALSE,
		attachments TEXT,
		has_embedded_images BOOLEAN NOT NULL DEFAULT FALSE,
		retry_count INTEGER NOT NULL DEFAULT 0,
		processing_started_at TIMESTAMPTZ,
		processed_at TIMESTAMPTZ,
		error_message TEXT,
		processed_by VARCHAR(255),
		scheduled_for TIMESTAMPTZ,
		is_scheduled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		created_by VARCHAR(255) NOT NULL DEFAULT '',
		request_source VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS email_templates (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		category VARCHAR(100) NOT NULL DEFAULT '',
		subject_template TEXT NOT NULL,
		body_template TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		created_by VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS email_history (
		id UUID PRIMARY KEY,
		queue_id UUID NOT NULL,
		to_emails TEXT NOT NULL,
		cc_emails TEXT,
		bcc_emails TEXT,
		subject TEXT NOT NULL,
		final_body TEXT NOT NULL,
		status SMALLINT NOT NULL,
		sent_at TIMESTAMPTZ,
		processing_time_ms BIGINT NOT NULL DEFAULT 0,
		retry_count INTEGER NOT NULL DEFAULT 0,
		template_id BIGINT,
		template_used VARCHAR(100),
		attachment_count INTEGER NOT NULL DEFAULT 0,
		error_details TEXT,
		processed_by VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS email_attachments (
		id BIGSERIAL PRIMARY KEY,
		queue_id UUID NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		content_type VARCHAR(255),
		content TEXT,
		file_path TEXT,
		is_inline BOOLEAN NOT NULL DEFAULT FALSE,
		content_id VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS processing_logs (
		id BIGSERIAL PRIMARY KEY,
		log_level VARCHAR(20) NOT NULL,
		category VARCHAR(100) NOT NULL,
		message TEXT NOT NULL,
		exception TEXT,
		queue_id UUID,
		worker_id VARCHAR(255),
		processing_step VARCHAR(50),
		context_data TEXT,
		correlation_id VARCHAR(255),
		machine_name VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_emails (
		id BIGSERIAL PRIMARY KEY,
		schedule_id UUID NOT NULL UNIQUE,
		next_run_time TIMESTAMPTZ NOT NULL,
		cron_expression VARCHAR(100),
		interval_minutes INTEGER,
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		execution_count INTEGER NOT NULL DEFAULT 0,
		max_executions INTEGER,
		last_executed_at TIMESTAMPTZ,
		to_emails TEXT NOT NULL,
		cc_emails TEXT,
		bcc_emails TEXT,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		is_html BOOLEAN NOT NULL DEFAULT FALSE,
		priority SMALLINT NOT NULL DEFAULT 2,
		template_id BIGINT,
		template_data TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		created_by VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS service_status (
		id BIGSERIAL PRIMARY KEY,
		service_name VARCHAR(100) NOT NULL,
		machine_name VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL,
		last_heartbeat TIMESTAMPTZ NOT NULL,
		queue_depth BIGINT NOT NULL DEFAULT 0,
		emails_per_hour BIGINT NOT NULL DEFAULT 0,
		error_rate_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_processing_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
		disk_free_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		uptime_seconds BIGINT NOT NULL DEFAULT 0,
		total_processed BIGINT NOT NULL DEFAULT 0,
		total_failed BIGINT NOT NULL DEFAULT 0,
		is_paused BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// IndexDefinitions creates the indexes the claim and maintenance queries
// depend on.
var IndexDefinitions = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_email_queue_queue_id ON email_queue (queue_id)`,
	`CREATE INDEX IF NOT EXISTS idx_email_queue_claim
		ON email_queue (status, priority, created_at)
		INCLUDE (queue_id, to_emails, subject)`,
	`CREATE INDEX IF NOT EXISTS idx_email_queue_scheduled
		ON email_queue (scheduled_for) WHERE is_scheduled`,
	`CREATE INDEX IF NOT EXISTS idx_email_queue_failed_retry
		ON email_queue (retry_count) WHERE status = 3`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_email_templates_active_name
		ON email_templates (name) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS idx_email_history_queue_id ON email_history (queue_id)`,
	`CREATE INDEX IF NOT EXISTS idx_email_history_created_at ON email_history (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_email_attachments_queue_id ON email_attachments (queue_id)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_logs_created_at ON processing_logs (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_logs_queue_id ON processing_logs (queue_id)`,
	`CREATE INDEX IF NOT EXISTS idx_scheduled_emails_due
		ON scheduled_emails (next_run_time) WHERE is_active`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_service_status_instance
		ON service_status (service_name, machine_name)`,
}

// EnsureSchema creates tables and indexes that do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range TableDefinitions {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, stmt := range IndexDefinitions {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Connect opens the database, applies sane pool limits and verifies
// connectivity.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}
