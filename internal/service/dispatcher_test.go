package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/internal/domain/mocks"
	"github.com/mailworker/mailworker/pkg/logger"
)

// fakeProcessor records processed items and can simulate slow work.
type fakeProcessor struct {
	mu        sync.Mutex
	processed []string
	workerIDs map[string]bool
	delay     time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeProcessor(delay time.Duration) *fakeProcessor {
	return &fakeProcessor{workerIDs: map[string]bool{}, delay: delay}
}

func (f *fakeProcessor) Process(ctx context.Context, item *domain.QueueItem, workerID string) {
	current := f.inFlight.Add(1)
	for {
		max := f.maxInFlight.Load()
		if current <= max || f.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.inFlight.Add(-1)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, item.QueueID)
	f.workerIDs[workerID] = true
}

func newTestDispatcher(queueRepo domain.QueueRepository, statusRepo domain.ServiceStatusRepository, processor itemProcessor, workers int) *Dispatcher {
	return NewDispatcher(queueRepo, statusRepo, processor,
		DispatcherConfig{
			PollingInterval:      time.Hour, // ticks driven manually in tests
			BatchSize:            10,
			MaxConcurrentWorkers: workers,
			ServiceName:          "mailworker",
		},
		"host", logger.NewSilentLogger())
}

func TestDispatcherProcessesClaimedBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queueRepo := mocks.NewMockQueueRepository(ctrl)
	statusRepo := mocks.NewMockServiceStatusRepository(ctrl)
	processor := newFakeProcessor(0)

	items := []*domain.QueueItem{
		{QueueID: "q-1"}, {QueueID: "q-2"}, {QueueID: "q-3"},
	}

	statusRepo.EXPECT().IsPaused(gomock.Any(), "mailworker", "host").Return(false, nil)
	queueRepo.EXPECT().ClaimBatch(gomock.Any(), "host-task1", 10).Return(items, nil)

	d := newTestDispatcher(queueRepo, statusRepo, processor, 5)
	d.dispatchBatch(context.Background())

	assert.ElementsMatch(t, []string{"q-1", "q-2", "q-3"}, processor.processed)
	assert.True(t, processor.workerIDs["host-task1"])
	assert.EqualValues(t, 3, d.TotalClaimed())
}

func TestDispatcherWorkerIDAdvancesPerTick(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queueRepo := mocks.NewMockQueueRepository(ctrl)
	statusRepo := mocks.NewMockServiceStatusRepository(ctrl)
	processor := newFakeProcessor(0)

	statusRepo.EXPECT().IsPaused(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).Times(2)
	queueRepo.EXPECT().ClaimBatch(gomock.Any(), "host-task1", 10).Return(nil, nil)
	queueRepo.EXPECT().ClaimBatch(gomock.Any(), "host-task2", 10).Return(nil, nil)

	d := newTestDispatcher(queueRepo, statusRepo, processor, 5)
	d.dispatchBatch(context.Background())
	d.dispatchBatch(context.Background())
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queueRepo := mocks.NewMockQueueRepository(ctrl)
	statusRepo := mocks.NewMockServiceStatusRepository(ctrl)
	processor := newFakeProcessor(20 * time.Millisecond)

	items := make([]*domain.QueueItem, 8)
	for i := range items {
		items[i] = &domain.QueueItem{QueueID: string(rune('a' + i))}
	}

	statusRepo.EXPECT().IsPaused(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	queueRepo.EXPECT().ClaimBatch(gomock.Any(), gomock.Any(), 10).Return(items, nil)

	d := newTestDispatcher(queueRepo, statusRepo, processor, 2)
	d.dispatchBatch(context.Background())

	require.Len(t, processor.processed, 8)
	assert.LessOrEqual(t, processor.maxInFlight.Load(), int32(2))
}

func TestDispatcherSkipsWhenPaused(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queueRepo := mocks.NewMockQueueRepository(ctrl)
	statusRepo := mocks.NewMockServiceStatusRepository(ctrl)

	statusRepo.EXPECT().IsPaused(gomock.Any(), "mailworker", "host").Return(true, nil)
	// No ClaimBatch expectation: a paused instance must not claim.

	d := newTestDispatcher(queueRepo, statusRepo, newFakeProcessor(0), 5)
	d.dispatchBatch(context.Background())
}

func TestDispatcherToleratesClaimErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queueRepo := mocks.NewMockQueueRepository(ctrl)
	statusRepo := mocks.NewMockServiceStatusRepository(ctrl)

	statusRepo.EXPECT().IsPaused(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	queueRepo.EXPECT().ClaimBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, assert.AnError)

	d := newTestDispatcher(queueRepo, statusRepo, newFakeProcessor(0), 5)
	d.dispatchBatch(context.Background())
	assert.Zero(t, d.TotalClaimed())
}

func TestDispatcherPauseFlagErrorMeansNotPaused(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queueRepo := mocks.NewMockQueueRepository(ctrl)
	statusRepo := mocks.NewMockServiceStatusRepository(ctrl)

	statusRepo.EXPECT().IsPaused(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, assert.AnError)
	queueRepo.EXPECT().ClaimBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	d := newTestDispatcher(queueRepo, statusRepo, newFakeProcessor(0), 5)
	d.dispatchBatch(context.Background())
}

func TestDispatcherStartStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queueRepo := mocks.NewMockQueueRepository(ctrl)
	statusRepo := mocks.NewMockServiceStatusRepository(ctrl)

	// The immediate drain on start.
	statusRepo.EXPECT().IsPaused(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	queueRepo.EXPECT().ClaimBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	d := newTestDispatcher(queueRepo, statusRepo, newFakeProcessor(0), 5)
	d.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	d.Stop()

	// A second stop is a no-op.
	d.Stop()
}
