package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/internal/domain/mocks"
	"github.com/mailworker/mailworker/pkg/logger"
)

func newTestScheduler(repo domain.ScheduledRepository) *Scheduler {
	return NewScheduler(repo, SchedulerConfig{
		CheckInterval: time.Hour,
		BatchSize:     50,
		ServiceName:   "mailworker",
	}, logger.NewSilentLogger())
}

func TestSchedulerPromotesRecurringCron(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockScheduledRepository(ctrl)
	expr := "0 9 * * *"
	sched := &domain.ScheduledEmail{
		ScheduleID:     "s-1",
		CronExpression: &expr,
		IsRecurring:    true,
		IsActive:       true,
		ExecutionCount: 4,
		ToEmails:       "a@x.test",
		Subject:        "Digest",
		Body:           "content",
		Priority:       domain.PriorityNormal,
	}

	repo.EXPECT().DueBatch(gomock.Any(), gomock.Any(), 50).Return([]*domain.ScheduledEmail{sched}, nil)
	repo.EXPECT().Promote(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *domain.ScheduledEmail, item *domain.QueueItem) error {
			assert.Equal(t, 5, s.ExecutionCount)
			assert.True(t, s.IsActive)
			require.NotNil(t, s.LastExecutedAt)
			assert.True(t, s.NextRunTime.After(time.Now().UTC()))
			assert.Equal(t, 9, s.NextRunTime.Hour())

			assert.Equal(t, domain.StatusQueued, item.Status)
			assert.Equal(t, "a@x.test", item.ToEmails)
			assert.Equal(t, "mailworker", item.CreatedBy)
			return nil
		})

	newTestScheduler(repo).promoteDue(context.Background())
}

func TestSchedulerPromotesInterval(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockScheduledRepository(ctrl)
	interval := 30
	sched := &domain.ScheduledEmail{
		ScheduleID:      "s-2",
		IntervalMinutes: &interval,
		IsRecurring:     true,
		IsActive:        true,
		ToEmails:        "a@x.test",
	}

	before := time.Now().UTC()
	repo.EXPECT().DueBatch(gomock.Any(), gomock.Any(), 50).Return([]*domain.ScheduledEmail{sched}, nil)
	repo.EXPECT().Promote(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *domain.ScheduledEmail, _ *domain.QueueItem) error {
			assert.True(t, s.NextRunTime.After(before.Add(29*time.Minute)))
			return nil
		})

	newTestScheduler(repo).promoteDue(context.Background())
}

func TestSchedulerDeactivatesOneShot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockScheduledRepository(ctrl)
	sched := &domain.ScheduledEmail{
		ScheduleID:  "s-3",
		IsRecurring: false,
		IsActive:    true,
		ToEmails:    "a@x.test",
	}

	repo.EXPECT().DueBatch(gomock.Any(), gomock.Any(), 50).Return([]*domain.ScheduledEmail{sched}, nil)
	repo.EXPECT().Promote(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *domain.ScheduledEmail, _ *domain.QueueItem) error {
			assert.False(t, s.IsActive)
			assert.Equal(t, 1, s.ExecutionCount)
			return nil
		})

	newTestScheduler(repo).promoteDue(context.Background())
}

func TestSchedulerDeactivatesAtExecutionCap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockScheduledRepository(ctrl)
	max := 5
	interval := 10
	sched := &domain.ScheduledEmail{
		ScheduleID:      "s-4",
		IntervalMinutes: &interval,
		IsRecurring:     true,
		IsActive:        true,
		ExecutionCount:  4,
		MaxExecutions:   &max,
		ToEmails:        "a@x.test",
	}

	repo.EXPECT().DueBatch(gomock.Any(), gomock.Any(), 50).Return([]*domain.ScheduledEmail{sched}, nil)
	repo.EXPECT().Promote(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *domain.ScheduledEmail, _ *domain.QueueItem) error {
			// The fifth execution reaches the cap.
			assert.Equal(t, 5, s.ExecutionCount)
			assert.False(t, s.IsActive)
			return nil
		})

	newTestScheduler(repo).promoteDue(context.Background())
}

func TestSchedulerContinuesPastPromotionErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockScheduledRepository(ctrl)
	first := &domain.ScheduledEmail{ScheduleID: "s-bad", ToEmails: "a@x.test"}
	second := &domain.ScheduledEmail{ScheduleID: "s-good", ToEmails: "b@x.test"}

	repo.EXPECT().DueBatch(gomock.Any(), gomock.Any(), 50).
		Return([]*domain.ScheduledEmail{first, second}, nil)
	repo.EXPECT().Promote(gomock.Any(), first, gomock.Any()).Return(assert.AnError)
	repo.EXPECT().Promote(gomock.Any(), second, gomock.Any()).Return(nil)

	newTestScheduler(repo).promoteDue(context.Background())
}

func TestSchedulerToleratesQueryErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockScheduledRepository(ctrl)
	repo.EXPECT().DueBatch(gomock.Any(), gomock.Any(), 50).Return(nil, assert.AnError)

	newTestScheduler(repo).promoteDue(context.Background())
}
