package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mailworker/mailworker/internal/domain"
)

// ServiceStatusRepository implements domain.ServiceStatusRepository on
// PostgreSQL.
type ServiceStatusRepository struct {
	db *sql.DB
}

// NewServiceStatusRepository creates a service status repository.
func NewServiceStatusRepository(db *sql.DB) *ServiceStatusRepository {
	return &ServiceStatusRepository{db: db}
}

// Upsert inserts or updates the row for (service_name, machine_name).
// The persisted pause flag is preserved across heartbeats.
func (r *ServiceStatusRepository) Upsert(ctx context.Context, s *domain.ServiceStatus) error {
	s.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_status (
			service_name, machine_name, status, last_heartbeat, queue_depth,
			emails_per_hour, error_rate_percent, avg_processing_ms,
			disk_free_percent, uptime_seconds, total_processed, total_failed,
			is_paused, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (service_name, machine_name) DO UPDATE SET
			status = EXCLUDED.status,
			last_heartbeat = EXCLUDED.last_heartbeat,
			queue_depth = EXCLUDED.queue_depth,
			emails_per_hour = EXCLUDED.emails_per_hour,
			error_rate_percent = EXCLUDED.error_rate_percent,
			avg_processing_ms = EXCLUDED.avg_processing_ms,
			disk_free_percent = EXCLUDED.disk_free_percent,
			uptime_seconds = EXCLUDED.uptime_seconds,
			total_processed = EXCLUDED.total_processed,
			total_failed = EXCLUDED.total_failed,
			updated_at = EXCLUDED.updated_at`,
		s.ServiceName, s.MachineName, s.Status, s.LastHeartbeat, s.QueueDepth,
		s.EmailsPerHour, s.ErrorRatePercent, s.AvgProcessingMs,
		s.DiskFreePercent, s.UptimeSeconds, s.TotalProcessed, s.TotalFailed,
		s.IsPaused, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert service status: %w", err)
	}
	return nil
}

// SetPaused persists the pause flag for a service instance.
func (r *ServiceStatusRepository) SetPaused(ctx context.Context, serviceName, machineName string, paused bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE service_status
		SET is_paused = $1, updated_at = NOW()
		WHERE service_name = $2 AND machine_name = $3`,
		paused, serviceName, machineName)
	if err != nil {
		return fmt.Errorf("failed to set pause flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IsPaused reads the persisted pause flag. A missing row is not paused.
func (r *ServiceStatusRepository) IsPaused(ctx context.Context, serviceName, machineName string) (bool, error) {
	var paused bool
	err := r.db.QueryRowContext(ctx, `
		SELECT is_paused FROM service_status
		WHERE service_name = $1 AND machine_name = $2`,
		serviceName, machineName).Scan(&paused)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read pause flag: %w", err)
	}
	return paused, nil
}

// DeleteBefore removes heartbeat rows not updated since cutoff.
func (r *ServiceStatusRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM service_status WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete service status rows: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}
