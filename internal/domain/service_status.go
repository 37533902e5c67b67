package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination mocks/mock_service_status_repository.go -package mocks github.com/mailworker/mailworker/internal/domain ServiceStatusRepository

// Service health states reported on heartbeat rows.
const (
	ServiceStateHealthy  = "healthy"
	ServiceStateDegraded = "degraded"
	ServiceStateDown     = "down"
)

// ServiceStatus is the per (service_name, machine_name) heartbeat row.
type ServiceStatus struct {
	ID          int64  `json:"id"`
	ServiceName string `json:"service_name"`
	MachineName string `json:"machine_name"`
	Status      string `json:"status"`

	LastHeartbeat    time.Time `json:"last_heartbeat"`
	QueueDepth       int64     `json:"queue_depth"`
	EmailsPerHour    int64     `json:"emails_per_hour"`
	ErrorRatePercent float64   `json:"error_rate_percent"`
	AvgProcessingMs  float64   `json:"avg_processing_ms"`

	DiskFreePercent float64 `json:"disk_free_percent"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	TotalProcessed  int64   `json:"total_processed"`
	TotalFailed     int64   `json:"total_failed"`

	// IsPaused suspends claiming on the dispatch loop when set.
	IsPaused bool `json:"is_paused"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ServiceStatusRepository upserts heartbeat rows and carries the
// persisted pause flag checked by the dispatch loop.
type ServiceStatusRepository interface {
	// Upsert inserts or updates the row for (service_name, machine_name).
	Upsert(ctx context.Context, s *ServiceStatus) error

	// SetPaused persists the pause flag for a service instance.
	SetPaused(ctx context.Context, serviceName, machineName string, paused bool) error

	// IsPaused reads the persisted pause flag. A missing row is not paused.
	IsPaused(ctx context.Context, serviceName, machineName string) (bool, error)

	// DeleteBefore removes heartbeat rows not updated since cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
