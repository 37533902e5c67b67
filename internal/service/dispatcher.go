package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/pkg/logger"
)

// DispatcherConfig tunes the dispatch loop.
type DispatcherConfig struct {
	PollingInterval      time.Duration
	BatchSize            int
	MaxConcurrentWorkers int
	ServiceName          string
}

// itemProcessor is the per-item pipeline entry point.
type itemProcessor interface {
	Process(ctx context.Context, item *domain.QueueItem, workerID string)
}

// Dispatcher is the periodic claim-and-fan-out loop. Each tick claims a
// batch, hands every item to a worker task bounded by a semaphore, and
// waits for the whole batch before claiming again.
type Dispatcher struct {
	queueRepo  domain.QueueRepository
	statusRepo domain.ServiceStatusRepository
	pipeline   itemProcessor
	config     DispatcherConfig
	hostname   string
	logger     logger.Logger

	slots   *semaphore.Weighted
	tick    atomic.Int64
	claimed atomic.Int64

	stopChan    chan struct{}
	stoppedChan chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewDispatcher creates the dispatch loop.
func NewDispatcher(
	queueRepo domain.QueueRepository,
	statusRepo domain.ServiceStatusRepository,
	pipeline itemProcessor,
	config DispatcherConfig,
	hostname string,
	log logger.Logger,
) *Dispatcher {
	if config.PollingInterval <= 0 {
		config.PollingInterval = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.MaxConcurrentWorkers <= 0 {
		config.MaxConcurrentWorkers = 5
	}
	return &Dispatcher{
		queueRepo:   queueRepo,
		statusRepo:  statusRepo,
		pipeline:    pipeline,
		config:      config,
		hostname:    hostname,
		logger:      log,
		slots:       semaphore.NewWeighted(int64(config.MaxConcurrentWorkers)),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start begins polling. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		d.logger.Warn("Dispatcher already running")
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.WithFields(map[string]interface{}{
		"polling_interval":       d.config.PollingInterval.String(),
		"batch_size":             d.config.BatchSize,
		"max_concurrent_workers": d.config.MaxConcurrentWorkers,
	}).Info("Starting dispatcher")

	go d.run(ctx)
}

// Stop waits for the in-flight batch to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("Stopping dispatcher...")
	close(d.stopChan)
	<-d.stoppedChan
	d.logger.Info("Dispatcher stopped")
}

// TotalClaimed reports how many items this instance has claimed.
func (d *Dispatcher) TotalClaimed() int64 {
	return d.claimed.Load()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.stoppedChan)

	ticker := time.NewTicker(d.config.PollingInterval)
	defer ticker.Stop()

	// Drain immediately on start, then on every tick.
	d.dispatchBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher context cancelled")
			return
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.dispatchBatch(ctx)
		}
	}
}

// dispatchBatch claims one batch and processes it to completion. The
// wait-all barrier keeps the in-flight backlog bounded by one batch.
func (d *Dispatcher) dispatchBatch(ctx context.Context) {
	if d.isPaused(ctx) {
		d.logger.Debug("Dispatcher paused, skipping claim")
		return
	}

	workerID := fmt.Sprintf("%s-task%d", d.hostname, d.tick.Add(1))

	items, err := d.queueRepo.ClaimBatch(ctx, workerID, d.config.BatchSize)
	if err != nil {
		// Persistence errors abort the tick; the next tick retries.
		d.logger.WithField("error", err.Error()).Error("Failed to claim batch")
		return
	}
	if len(items) == 0 {
		return
	}
	d.claimed.Add(int64(len(items)))

	d.logger.WithFields(map[string]interface{}{
		"worker_id": workerID,
		"count":     len(items),
	}).Debug("Claimed batch")

	var wg sync.WaitGroup
	for _, item := range items {
		// A cancelled context stops admitting work; claimed rows left in
		// Processing are recovered by the stuck reset on restart.
		if err := d.slots.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(it *domain.QueueItem) {
			defer wg.Done()
			defer d.slots.Release(1)
			// Shutdown stops admitting work but lets the in-flight send
			// finish; the pipeline's own deadline still bounds it.
			d.pipeline.Process(context.WithoutCancel(ctx), it, workerID)
		}(item)
	}
	wg.Wait()
}

// isPaused checks the persisted pause flag for this instance. Errors are
// logged and treated as not paused so a broken status table never halts
// delivery.
func (d *Dispatcher) isPaused(ctx context.Context) bool {
	paused, err := d.statusRepo.IsPaused(ctx, d.config.ServiceName, d.hostname)
	if err != nil {
		d.logger.WithField("error", err.Error()).Warn("Failed to read pause flag")
		return false
	}
	return paused
}
