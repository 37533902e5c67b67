package service

import (
	"context"
	"sync"
	"time"

	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/pkg/logger"
)

// SchedulerConfig tunes the scheduled email promotion loop.
type SchedulerConfig struct {
	CheckInterval time.Duration
	BatchSize     int
	ServiceName   string
}

// Scheduler promotes due ScheduledEmail rows into the queue. Each
// promotion (enqueue + schedule advance) is a single transaction.
type Scheduler struct {
	scheduledRepo domain.ScheduledRepository
	config        SchedulerConfig
	logger        logger.Logger

	stopChan    chan struct{}
	stoppedChan chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewScheduler creates the scheduler loop.
func NewScheduler(scheduledRepo domain.ScheduledRepository, config SchedulerConfig, log logger.Logger) *Scheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &Scheduler{
		scheduledRepo: scheduledRepo,
		config:        config,
		logger:        log,
		stopChan:      make(chan struct{}),
		stoppedChan:   make(chan struct{}),
	}
}

// Start begins the promotion loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Scheduler already running")
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithField("check_interval", s.config.CheckInterval.String()).
		Info("Starting scheduler")

	go s.run(ctx)
}

// Stop gracefully stops the loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler...")
	close(s.stopChan)
	<-s.stoppedChan
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.stoppedChan)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	s.promoteDue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.promoteDue(ctx)
		}
	}
}

// promoteDue enqueues every due schedule and advances or deactivates it.
func (s *Scheduler) promoteDue(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.scheduledRepo.DueBatch(ctx, now, s.config.BatchSize)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to query due schedules")
		return
	}
	if len(due) == 0 {
		return
	}

	promoted := 0
	for _, sched := range due {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.promoteOne(ctx, sched, now); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"schedule_id": sched.ScheduleID,
				"error":       err.Error(),
			}).Error("Failed to promote schedule")
			continue
		}
		promoted++
	}

	if promoted > 0 {
		s.logger.WithField("count", promoted).Info("Promoted scheduled emails")
	}
}

func (s *Scheduler) promoteOne(ctx context.Context, sched *domain.ScheduledEmail, now time.Time) error {
	item := sched.ToQueueItem(s.config.ServiceName)

	sched.ExecutionCount++
	executedAt := now
	sched.LastExecutedAt = &executedAt

	if sched.IsRecurring && !sched.ExecutionsExhausted() {
		next, err := sched.NextRun(now)
		if err != nil {
			// A schedule that can no longer compute its next run is
			// deactivated after this execution.
			s.logger.WithFields(map[string]interface{}{
				"schedule_id": sched.ScheduleID,
				"error":       err.Error(),
			}).Warn("Deactivating schedule with invalid recurrence")
			sched.IsActive = false
		} else {
			sched.NextRunTime = next
		}
	} else {
		sched.IsActive = false
	}

	return s.scheduledRepo.Promote(ctx, sched, item)
}
