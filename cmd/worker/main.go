package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/mailworker/mailworker/config"
	"github.com/mailworker/mailworker/internal/database"
	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/internal/repository"
	"github.com/mailworker/mailworker/internal/service"
	"github.com/mailworker/mailworker/pkg/logger"
	"github.com/mailworker/mailworker/pkg/mailer"
)

// osExit is a variable to allow mocking os.Exit in tests.
var osExit = os.Exit

func main() {
	osExit(run())
}

func run() int {
	// The only accepted argument is an optional env file path.
	opts := config.LoadOptions{EnvFile: ".env"}
	if len(os.Args) > 1 {
		opts.EnvFile = os.Args[1]
	}

	cfg, err := config.LoadWithOptions(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	log := logger.NewLogger(cfg.LogLevel)
	log.WithField("version", cfg.Version).Info("Starting mail worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithField("error", err.Error()).Error("Database connection failed")
		return 1
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.WithField("error", err.Error()).Error("Schema setup failed")
		return 1
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}

	queueRepo := repository.NewQueueRepository(db, domain.RetryPolicy{
		MaxRetries: cfg.Processing.MaxRetryAttempts,
		RetryDelay: cfg.Processing.RetryDelay,
	})
	templateRepo := repository.NewTemplateRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	logRepo := repository.NewLogRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	scheduledRepo := repository.NewScheduledRepository(db)
	statusRepo := repository.NewServiceStatusRepository(db)

	transport := mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:                cfg.SMTP.Host,
		Port:                cfg.SMTP.Port,
		Username:            cfg.SMTP.Username,
		Password:            cfg.SMTP.Password,
		UseSSL:              cfg.SMTP.UseSSL,
		UseTLS:              cfg.SMTP.UseTLS,
		Timeout:             cfg.SMTP.Timeout,
		ValidateCertificate: cfg.SMTP.ValidateCertificate,
		SenderEmail:         cfg.SMTP.SenderEmail,
		SenderName:          cfg.SMTP.SenderName,
		DefaultReplyTo:      cfg.SMTP.DefaultReplyTo,
		MaxConnections:      cfg.SMTP.MaxConnections,
		PoolIdle:            cfg.SMTP.PoolIdle,
	})

	pipeline := service.NewPipeline(
		queueRepo, templateRepo, attachmentRepo, logRepo, transport,
		service.PipelineConfig{
			MaxProcessingTime:    cfg.Processing.MaxProcessingTime,
			MaxAttachmentSizeMB:  cfg.Processing.MaxAttachmentSizeMB,
			MaxEmailSizeMB:       cfg.Processing.MaxEmailSizeMB,
			MaxRecipientsPerMail: cfg.Processing.MaxRecipientsPerMail,
		},
		hostname, log,
	)

	dispatcher := service.NewDispatcher(queueRepo, statusRepo, pipeline,
		service.DispatcherConfig{
			PollingInterval:      cfg.Processing.PollingInterval,
			BatchSize:            cfg.Processing.BatchSize,
			MaxConcurrentWorkers: cfg.Processing.MaxConcurrentWorkers,
			ServiceName:          cfg.Worker.ServiceName,
		},
		hostname, log,
	)

	scheduler := service.NewScheduler(scheduledRepo,
		service.SchedulerConfig{
			CheckInterval: cfg.Worker.ScheduledCheckInterval,
			BatchSize:     cfg.Processing.BatchSize,
			ServiceName:   cfg.Worker.ServiceName,
		},
		log,
	)

	cleanup := service.NewCleanupWorker(queueRepo, historyRepo, logRepo, attachmentRepo, statusRepo,
		service.CleanupConfig{
			EmailHistoryRetentionDays:    cfg.Cleanup.EmailHistoryRetentionDays,
			ProcessingLogRetentionDays:   cfg.Cleanup.ProcessingLogRetentionDays,
			FailedEmailRetentionDays:     cfg.Cleanup.FailedEmailRetentionDays,
			SuccessfulEmailRetentionDays: cfg.Cleanup.SuccessfulEmailRetentionDays,
			ServiceStatusRetentionDays:   cfg.Cleanup.ServiceStatusRetentionDays,
			Interval:                     cfg.Cleanup.Interval,
			AlignTime:                    cfg.Cleanup.Time,
			BatchSize:                    cfg.Cleanup.BatchSize,
			Archive: service.ArchiveConfig{
				Enabled:       cfg.Cleanup.Archive.Enabled,
				Path:          cfg.Cleanup.Archive.Path,
				Format:        cfg.Cleanup.Archive.Format,
				Compress:      cfg.Cleanup.Archive.Compress,
				MaxFileSizeMB: cfg.Cleanup.Archive.MaxFileSizeMB,
			},
			AggressiveThresholdPercent: cfg.Cleanup.AggressiveThresholdPercent,
		},
		log,
	)

	alerter := service.NewAlerter(transport,
		service.AlerterConfig{
			AlertEmail:    cfg.Worker.AlertEmail,
			SenderEmail:   cfg.SMTP.SenderEmail,
			WebhookURL:    cfg.Worker.WebhookURL,
			WebhookSecret: cfg.Worker.WebhookSecret,
		},
		log,
	)

	health := service.NewHealthMonitor(db, transport, queueRepo, historyRepo, statusRepo, alerter,
		service.HealthConfig{
			CheckInterval:            cfg.Worker.HealthCheckInterval,
			MaxProcessingTime:        cfg.Processing.MaxProcessingTime,
			ServiceName:              cfg.Worker.ServiceName,
			DiskFreeThresholdPercent: 10,
		},
		hostname, log,
	)

	dispatcher.Start(ctx)
	scheduler.Start(ctx)
	cleanup.Start(ctx)
	health.Start(ctx)

	log.WithFields(map[string]interface{}{
		"service": cfg.Worker.ServiceName,
		"machine": hostname,
	}).Info("Mail worker running")

	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Ordered stop: no new claims, then the auxiliary loops.
	dispatcher.Stop()
	scheduler.Stop()
	cleanup.Stop()
	health.Stop()

	log.Info("Mail worker stopped")
	return 0
}
