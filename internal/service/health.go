package service

import (
	"context"
	"database/sql"
	"sync"
	"syscall"
	"time"

	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/pkg/logger"
	"github.com/mailworker/mailworker/pkg/mailer"
)

// Alert thresholds for aggregate symptoms.
const (
	queueDepthWarning      = 1000
	queueDepthCritical     = 5000
	failureRateThreshold   = 10.0 // percent
	slowProcessingPerHour  = 10
	slowProcessingMinDepth = 100
)

// HealthConfig tunes the health loop.
type HealthConfig struct {
	CheckInterval     time.Duration
	MaxProcessingTime time.Duration
	ServiceName       string

	// DiskFreeThresholdPercent raises an alert when free space on the
	// monitored path drops below it.
	DiskFreeThresholdPercent float64
	DiskPath                 string
}

// diskFreeFunc measures free disk space as a percentage. Injectable for
// tests.
type diskFreeFunc func(path string) (float64, error)

// HealthMonitor probes dependencies, recovers stuck items, aggregates
// throughput metrics, reports heartbeats and raises alerts.
type HealthMonitor struct {
	db          *sql.DB
	transport   mailer.Transport
	queueRepo   domain.QueueRepository
	historyRepo domain.HistoryRepository
	statusRepo  domain.ServiceStatusRepository
	alerter     *Alerter
	config      HealthConfig
	machineName string
	logger      logger.Logger

	startedAt time.Time
	diskFree  diskFreeFunc

	stopChan    chan struct{}
	stoppedChan chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewHealthMonitor creates the health loop.
func NewHealthMonitor(
	db *sql.DB,
	transport mailer.Transport,
	queueRepo domain.QueueRepository,
	historyRepo domain.HistoryRepository,
	statusRepo domain.ServiceStatusRepository,
	alerter *Alerter,
	config HealthConfig,
	machineName string,
	log logger.Logger,
) *HealthMonitor {
	if config.CheckInterval <= 0 {
		config.CheckInterval = 5 * time.Minute
	}
	if config.MaxProcessingTime <= 0 {
		config.MaxProcessingTime = 10 * time.Minute
	}
	if config.DiskPath == "" {
		config.DiskPath = "/"
	}
	return &HealthMonitor{
		db:          db,
		transport:   transport,
		queueRepo:   queueRepo,
		historyRepo: historyRepo,
		statusRepo:  statusRepo,
		alerter:     alerter,
		config:      config,
		machineName: machineName,
		logger:      log,
		startedAt:   time.Now().UTC(),
		diskFree:    statfsDiskFree,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start begins the health loop.
func (h *HealthMonitor) Start(ctx context.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		h.logger.Warn("Health monitor already running")
		return
	}
	h.running = true
	h.mu.Unlock()

	h.logger.WithField("check_interval", h.config.CheckInterval.String()).
		Info("Starting health monitor")

	go h.run(ctx)
}

// Stop gracefully stops the loop.
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	h.logger.Info("Stopping health monitor...")
	close(h.stopChan)
	<-h.stoppedChan
	h.logger.Info("Health monitor stopped")
}

func (h *HealthMonitor) run(ctx context.Context) {
	defer close(h.stoppedChan)

	ticker := time.NewTicker(h.config.CheckInterval)
	defer ticker.Stop()

	h.check(ctx)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Health monitor context cancelled")
			return
		case <-h.stopChan:
			return
		case <-ticker.C:
			h.check(ctx)
		}
	}
}

// check runs one health pass: probes, stuck recovery, aggregation,
// heartbeat and alert evaluation.
func (h *HealthMonitor) check(ctx context.Context) {
	state := domain.ServiceStateHealthy

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.WithField("error", err.Error()).Error("Database probe failed")
		// Without the database nothing below can run.
		return
	}

	if err := h.transport.Ping(ctx); err != nil {
		h.logger.WithField("error", err.Error()).Warn("SMTP probe failed")
		state = domain.ServiceStateDegraded
	}

	if reset, err := h.queueRepo.ResetStuck(ctx, h.config.MaxProcessingTime); err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to reset stuck items")
		state = domain.ServiceStateDegraded
	} else if reset > 0 {
		h.logger.WithField("count", reset).Warn("Reset stuck items back to queued")
	}

	stats, err := h.queueRepo.Statistics(ctx)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to query queue statistics")
		return
	}
	hourly, err := h.historyRepo.LastHourStats(ctx)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to query hourly stats")
		return
	}
	totalSent, totalFailed, err := h.historyRepo.TotalCounts(ctx)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to query total counts")
		return
	}

	diskFreePercent, err := h.diskFree(h.config.DiskPath)
	if err != nil {
		h.logger.WithField("error", err.Error()).Warn("Failed to measure disk space")
		diskFreePercent = 100
	}

	depth := stats.CountsByStatus[domain.StatusQueued]
	now := time.Now().UTC()

	status := &domain.ServiceStatus{
		ServiceName:      h.config.ServiceName,
		MachineName:      h.machineName,
		Status:           state,
		LastHeartbeat:    now,
		QueueDepth:       depth,
		EmailsPerHour:    hourly.Sent,
		ErrorRatePercent: hourly.FailureRatePercent(),
		AvgProcessingMs:  hourly.AvgProcessingMs,
		DiskFreePercent:  diskFreePercent,
		UptimeSeconds:    int64(now.Sub(h.startedAt).Seconds()),
		TotalProcessed:   totalSent,
		TotalFailed:      totalFailed,
	}
	if err := h.statusRepo.Upsert(ctx, status); err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to upsert service status")
	}

	h.evaluateAlerts(ctx, depth, hourly, diskFreePercent, now)
}

func (h *HealthMonitor) evaluateAlerts(ctx context.Context, depth int64, hourly *domain.HourlyStats, diskFreePercent float64, now time.Time) {
	base := Alert{
		Service:  h.config.ServiceName,
		Machine:  h.machineName,
		RaisedAt: now,
	}

	switch {
	case depth > queueDepthCritical:
		alert := base
		alert.Key = "queue_depth_critical"
		alert.Severity = AlertSeverityCritical
		alert.Message = "queue depth critical"
		alert.Value = float64(depth)
		alert.Threshold = queueDepthCritical
		h.alerter.Raise(ctx, alert)
	case depth > queueDepthWarning:
		alert := base
		alert.Key = "queue_depth_warning"
		alert.Severity = AlertSeverityWarning
		alert.Message = "queue depth elevated"
		alert.Value = float64(depth)
		alert.Threshold = queueDepthWarning
		h.alerter.Raise(ctx, alert)
	}

	if rate := hourly.FailureRatePercent(); rate > failureRateThreshold {
		alert := base
		alert.Key = "failure_rate"
		alert.Severity = AlertSeverityWarning
		alert.Message = "failure rate above threshold"
		alert.Value = rate
		alert.Threshold = failureRateThreshold
		h.alerter.Raise(ctx, alert)
	}

	if hourly.Sent < slowProcessingPerHour && depth > slowProcessingMinDepth {
		alert := base
		alert.Key = "slow_processing"
		alert.Severity = AlertSeverityWarning
		alert.Message = "processing rate low while queue is backed up"
		alert.Value = float64(hourly.Sent)
		alert.Threshold = slowProcessingPerHour
		h.alerter.Raise(ctx, alert)
	}

	if h.config.DiskFreeThresholdPercent > 0 && diskFreePercent < h.config.DiskFreeThresholdPercent {
		alert := base
		alert.Key = "disk_free"
		alert.Severity = AlertSeverityCritical
		alert.Message = "free disk space below threshold"
		alert.Value = diskFreePercent
		alert.Threshold = h.config.DiskFreeThresholdPercent
		h.alerter.Raise(ctx, alert)
	}
}

// statfsDiskFree returns the percentage of free space on the filesystem
// holding path.
func statfsDiskFree(path string) (float64, error) {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(path, &fs); err != nil {
		return 0, err
	}
	if fs.Blocks == 0 {
		return 100, nil
	}
	return float64(fs.Bavail) / float64(fs.Blocks) * 100, nil
}
