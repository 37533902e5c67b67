package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/pkg/logger"
)

// CleanupConfig tunes the retention loop.
type CleanupConfig struct {
	EmailHistoryRetentionDays    int
	ProcessingLogRetentionDays   int
	FailedEmailRetentionDays     int
	SuccessfulEmailRetentionDays int
	ServiceStatusRetentionDays   int

	Interval time.Duration
	// AlignTime is the "HH:MM" wall-clock time of the first run, UTC.
	AlignTime string
	BatchSize int

	Archive ArchiveConfig

	// AggressiveThresholdPercent halves retention windows for a run when
	// disk usage reaches it. Zero disables aggressive mode.
	AggressiveThresholdPercent float64
	DiskPath                   string
}

// CleanupWorker archives and prunes aged rows across all tables.
type CleanupWorker struct {
	queueRepo      domain.QueueRepository
	historyRepo    domain.HistoryRepository
	logRepo        domain.LogRepository
	attachmentRepo domain.AttachmentRepository
	statusRepo     domain.ServiceStatusRepository

	config  CleanupConfig
	archive *archiveWriter
	logger  logger.Logger

	diskFree diskFreeFunc

	stopChan    chan struct{}
	stoppedChan chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewCleanupWorker creates the cleanup loop.
func NewCleanupWorker(
	queueRepo domain.QueueRepository,
	historyRepo domain.HistoryRepository,
	logRepo domain.LogRepository,
	attachmentRepo domain.AttachmentRepository,
	statusRepo domain.ServiceStatusRepository,
	config CleanupConfig,
	log logger.Logger,
) *CleanupWorker {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	if config.DiskPath == "" {
		config.DiskPath = "/"
	}
	return &CleanupWorker{
		queueRepo:      queueRepo,
		historyRepo:    historyRepo,
		logRepo:        logRepo,
		attachmentRepo: attachmentRepo,
		statusRepo:     statusRepo,
		config:         config,
		archive:        newArchiveWriter(config.Archive),
		logger:         log,
		diskFree:       statfsDiskFree,
		stopChan:       make(chan struct{}),
		stoppedChan:    make(chan struct{}),
	}
}

// Start begins the cleanup loop, aligned to the configured wall-clock
// time in UTC.
func (c *CleanupWorker) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.logger.Warn("Cleanup worker already running")
		return
	}
	c.running = true
	c.mu.Unlock()

	delay := delayUntilAligned(time.Now().UTC(), c.config.AlignTime)
	c.logger.WithFields(map[string]interface{}{
		"interval":    c.config.Interval.String(),
		"first_delay": delay.String(),
	}).Info("Starting cleanup worker")

	go c.run(ctx, delay)
}

// Stop gracefully stops the loop.
func (c *CleanupWorker) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	c.logger.Info("Stopping cleanup worker...")
	close(c.stopChan)
	<-c.stoppedChan
	c.logger.Info("Cleanup worker stopped")
}

// delayUntilAligned returns how long to wait until the next occurrence
// of the "HH:MM" alignment in UTC. An empty or invalid alignment means
// run immediately.
func delayUntilAligned(now time.Time, align string) time.Duration {
	if align == "" {
		return 0
	}
	at, err := time.Parse("15:04", align)
	if err != nil {
		return 0
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func (c *CleanupWorker) run(ctx context.Context, initialDelay time.Duration) {
	defer close(c.stoppedChan)

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-c.stopChan:
		return
	case <-timer.C:
	}

	c.runCleanup(ctx)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Cleanup worker context cancelled")
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.runCleanup(ctx)
		}
	}
}

// runCleanup executes one pass over every retention target.
func (c *CleanupWorker) runCleanup(ctx context.Context) {
	start := time.Now()
	now := start.UTC()

	// Aggressive mode shortens every window when disk fills up.
	factor := 1.0
	if c.config.AggressiveThresholdPercent > 0 {
		if free, err := c.diskFree(c.config.DiskPath); err == nil {
			used := 100 - free
			if used >= c.config.AggressiveThresholdPercent {
				factor = 0.5
				c.logger.WithField("disk_used_percent", used).
					Warn("Disk usage above threshold, shortening retention for this run")
			}
		}
	}

	cutoff := func(days int) time.Time {
		return now.Add(-time.Duration(float64(days)*24*factor) * time.Hour)
	}

	total := int64(0)
	total += c.cleanHistory(ctx, cutoff(c.config.EmailHistoryRetentionDays), now)
	total += c.batched(ctx, "processing logs", func() (int64, error) {
		return c.logRepo.DeleteBefore(ctx, cutoff(c.config.ProcessingLogRetentionDays), c.config.BatchSize)
	})
	total += c.batched(ctx, "failed emails", func() (int64, error) {
		return c.queueRepo.DeleteTerminalBefore(ctx, domain.StatusFailed, cutoff(c.config.FailedEmailRetentionDays), c.config.BatchSize)
	})
	total += c.batched(ctx, "sent emails", func() (int64, error) {
		return c.queueRepo.DeleteTerminalBefore(ctx, domain.StatusSent, cutoff(c.config.SuccessfulEmailRetentionDays), c.config.BatchSize)
	})
	total += c.batched(ctx, "orphaned attachments", func() (int64, error) {
		return c.attachmentRepo.DeleteOrphaned(ctx, c.config.BatchSize)
	})

	if deleted, err := c.statusRepo.DeleteBefore(ctx, cutoff(c.config.ServiceStatusRetentionDays)); err != nil {
		c.logger.WithField("error", err.Error()).Error("Failed to clean service status rows")
	} else {
		total += deleted
	}

	c.logger.WithFields(map[string]interface{}{
		"deleted": total,
		"elapsed": time.Since(start).String(),
	}).Info("Cleanup pass finished")
}

// cleanHistory archives (when enabled) and deletes aged history rows in
// batches.
func (c *CleanupWorker) cleanHistory(ctx context.Context, cutoff time.Time, runDate time.Time) int64 {
	var total int64
	for {
		select {
		case <-ctx.Done():
			return total
		default:
		}

		if c.config.Archive.Enabled {
			rows, err := c.historyRepo.SelectBefore(ctx, cutoff, c.config.BatchSize)
			if err != nil {
				c.logger.WithField("error", err.Error()).Error("Failed to select history for archive")
				return total
			}
			if len(rows) == 0 {
				return total
			}
			if err := c.archive.WriteBatch(rows, runDate); err != nil {
				// Never delete rows that failed to archive.
				c.logger.WithField("error", err.Error()).Error("Failed to write archive")
				return total
			}
		}

		deleted, err := c.historyRepo.DeleteBefore(ctx, cutoff, c.config.BatchSize)
		if err != nil {
			c.logger.WithField("error", err.Error()).Error("Failed to delete history rows")
			return total
		}
		total += deleted
		if deleted < int64(c.config.BatchSize) {
			return total
		}
	}
}

// batched repeats a delete until it returns fewer rows than a full batch.
func (c *CleanupWorker) batched(ctx context.Context, what string, fn func() (int64, error)) int64 {
	var total int64
	for {
		select {
		case <-ctx.Done():
			return total
		default:
		}

		deleted, err := fn()
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"target": what,
				"error":  err.Error(),
			}).Error(fmt.Sprintf("Failed to clean %s", what))
			return total
		}
		total += deleted
		if deleted < int64(c.config.BatchSize) {
			return total
		}
	}
}
