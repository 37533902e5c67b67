package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/internal/domain/mocks"
	"github.com/mailworker/mailworker/pkg/logger"
	"github.com/mailworker/mailworker/pkg/mailer"
	pkgmocks "github.com/mailworker/mailworker/pkg/mocks"
)

type healthFixture struct {
	transport   *pkgmocks.MockTransport
	queueRepo   *mocks.MockQueueRepository
	historyRepo *mocks.MockHistoryRepository
	statusRepo  *mocks.MockServiceStatusRepository
	monitor     *HealthMonitor
}

func newHealthFixture(t *testing.T) (*healthFixture, *gomock.Controller, func()) {
	ctrl := gomock.NewController(t)

	db, _, err := sqlmock.New()
	require.NoError(t, err)

	f := &healthFixture{
		transport:   pkgmocks.NewMockTransport(ctrl),
		queueRepo:   mocks.NewMockQueueRepository(ctrl),
		historyRepo: mocks.NewMockHistoryRepository(ctrl),
		statusRepo:  mocks.NewMockServiceStatusRepository(ctrl),
	}

	alerter := NewAlerter(f.transport, AlerterConfig{}, logger.NewSilentLogger())
	f.monitor = NewHealthMonitor(db, f.transport, f.queueRepo, f.historyRepo, f.statusRepo, alerter,
		HealthConfig{
			CheckInterval:            time.Hour,
			MaxProcessingTime:        10 * time.Minute,
			ServiceName:              "mailworker",
			DiskFreeThresholdPercent: 10,
		},
		"host-a", logger.NewSilentLogger())
	f.monitor.diskFree = func(string) (float64, error) { return 55, nil }

	return f, ctrl, func() { db.Close() }
}

func queueStats(depth int64) *domain.QueueStatistics {
	return &domain.QueueStatistics{
		CountsByStatus: map[domain.QueueStatus]int64{domain.StatusQueued: depth},
	}
}

func TestHealthCheckReportsHeartbeat(t *testing.T) {
	f, ctrl, cleanup := newHealthFixture(t)
	defer ctrl.Finish()
	defer cleanup()

	ctx := context.Background()

	f.transport.EXPECT().Ping(ctx).Return(nil)
	f.queueRepo.EXPECT().ResetStuck(ctx, 10*time.Minute).Return(int64(2), nil)
	f.queueRepo.EXPECT().Statistics(ctx).Return(queueStats(42), nil)
	f.historyRepo.EXPECT().LastHourStats(ctx).
		Return(&domain.HourlyStats{Sent: 120, Failed: 6, AvgProcessingMs: 310}, nil)
	f.historyRepo.EXPECT().TotalCounts(ctx).Return(int64(9000), int64(150), nil)

	var status *domain.ServiceStatus
	f.statusRepo.EXPECT().Upsert(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, s *domain.ServiceStatus) error {
			status = s
			return nil
		})

	f.monitor.check(ctx)

	require.NotNil(t, status)
	assert.Equal(t, "mailworker", status.ServiceName)
	assert.Equal(t, "host-a", status.MachineName)
	assert.Equal(t, domain.ServiceStateHealthy, status.Status)
	assert.EqualValues(t, 42, status.QueueDepth)
	assert.EqualValues(t, 120, status.EmailsPerHour)
	assert.InDelta(t, 4.76, status.ErrorRatePercent, 0.01)
	assert.InDelta(t, 310, status.AvgProcessingMs, 0.001)
	assert.InDelta(t, 55, status.DiskFreePercent, 0.001)
	assert.EqualValues(t, 9000, status.TotalProcessed)
	assert.EqualValues(t, 150, status.TotalFailed)
	assert.False(t, status.LastHeartbeat.IsZero())
}

func TestHealthCheckDegradedOnSMTPFailure(t *testing.T) {
	f, ctrl, cleanup := newHealthFixture(t)
	defer ctrl.Finish()
	defer cleanup()

	ctx := context.Background()

	f.transport.EXPECT().Ping(ctx).Return(assert.AnError)
	f.queueRepo.EXPECT().ResetStuck(ctx, gomock.Any()).Return(int64(0), nil)
	f.queueRepo.EXPECT().Statistics(ctx).Return(queueStats(0), nil)
	f.historyRepo.EXPECT().LastHourStats(ctx).Return(&domain.HourlyStats{}, nil)
	f.historyRepo.EXPECT().TotalCounts(ctx).Return(int64(0), int64(0), nil)

	var status *domain.ServiceStatus
	f.statusRepo.EXPECT().Upsert(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, s *domain.ServiceStatus) error {
			status = s
			return nil
		})

	f.monitor.check(ctx)

	require.NotNil(t, status)
	assert.Equal(t, domain.ServiceStateDegraded, status.Status)
}

func TestHealthCheckRaisesAlerts(t *testing.T) {
	t.Run("critical queue depth emails the operator", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		transport := pkgmocks.NewMockTransport(ctrl)
		queueRepo := mocks.NewMockQueueRepository(ctrl)
		historyRepo := mocks.NewMockHistoryRepository(ctrl)
		statusRepo := mocks.NewMockServiceStatusRepository(ctrl)

		alerter := NewAlerter(transport, AlerterConfig{AlertEmail: "ops@x.test"}, logger.NewSilentLogger())
		monitor := NewHealthMonitor(db, transport, queueRepo, historyRepo, statusRepo, alerter,
			HealthConfig{ServiceName: "mailworker"}, "host-a", logger.NewSilentLogger())
		monitor.diskFree = func(string) (float64, error) { return 55, nil }

		ctx := context.Background()
		transport.EXPECT().Ping(ctx).Return(nil)
		queueRepo.EXPECT().ResetStuck(ctx, gomock.Any()).Return(int64(0), nil)
		queueRepo.EXPECT().Statistics(ctx).Return(queueStats(6000), nil)
		historyRepo.EXPECT().LastHourStats(ctx).Return(&domain.HourlyStats{Sent: 500}, nil)
		historyRepo.EXPECT().TotalCounts(ctx).Return(int64(0), int64(0), nil)
		statusRepo.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)

		var alertMail *mailer.Envelope
		transport.EXPECT().Send(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, env *mailer.Envelope) mailer.SendResult {
				alertMail = env
				return mailer.SendResult{Disposition: mailer.DispositionOK}
			})

		monitor.check(ctx)

		require.NotNil(t, alertMail)
		assert.Equal(t, []string{"ops@x.test"}, alertMail.To)
		assert.Contains(t, alertMail.Subject, "critical")
		assert.Contains(t, alertMail.Subject, "queue_depth_critical")
	})
}
