package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const VERSION = "1.0"

type Config struct {
	Database   DatabaseConfig
	Processing ProcessingConfig
	SMTP       SMTPConfig
	Cleanup    CleanupConfig
	Worker     WorkerConfig

	Environment string
	LogLevel    string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type ProcessingConfig struct {
	PollingInterval      time.Duration
	BatchSize            int
	MaxConcurrentWorkers int
	MaxRetryAttempts     int
	RetryDelay           time.Duration
	MaxProcessingTime    time.Duration
	MaxAttachmentSizeMB  int
	MaxEmailSizeMB       int
	MaxRecipientsPerMail int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	UseSSL              bool
	UseTLS              bool
	Timeout             time.Duration
	ValidateCertificate bool
	RetryAttempts       int
	MaxConnections      int
	PoolIdle            time.Duration

	SenderEmail    string
	SenderName     string
	DefaultReplyTo string
}

type ArchiveConfig struct {
	Enabled       bool
	Path          string
	Format        string // "json" or "csv"
	Compress      bool
	MaxFileSizeMB int
}

type CleanupConfig struct {
	EmailHistoryRetentionDays    int
	ProcessingLogRetentionDays   int
	FailedEmailRetentionDays     int
	SuccessfulEmailRetentionDays int
	ServiceStatusRetentionDays   int

	Interval time.Duration
	// Time is the "HH:MM" wall-clock alignment of the first run, UTC.
	Time      string
	BatchSize int

	Archive ArchiveConfig

	// AggressiveThresholdPercent shortens retention for a run when disk
	// usage reaches this percentage. Zero disables aggressive mode.
	AggressiveThresholdPercent float64
}

type WorkerConfig struct {
	ServiceName            string
	ScheduledCheckInterval time.Duration
	HealthCheckInterval    time.Duration

	StatusReportEmail string
	AlertEmail        string
	WebhookURL        string
	WebhookSecret     string
}

// LoadOptions controls configuration loading behaviour.
type LoadOptions struct {
	// EnvFile is an optional .env style file loaded before the
	// environment. Missing files are ignored.
	EnvFile string
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

// LoadWithOptions loads the configuration with the specified options.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	// Database defaults
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mailworker")
	v.SetDefault("DB_SSLMODE", "require")

	// Processing defaults
	v.SetDefault("POLLING_INTERVAL_S", 30)
	v.SetDefault("BATCH_SIZE", 10)
	v.SetDefault("MAX_CONCURRENT_WORKERS", 5)
	v.SetDefault("MAX_RETRY_ATTEMPTS", 3)
	v.SetDefault("RETRY_DELAY_MINUTES", 5)
	v.SetDefault("MAX_PROCESSING_TIME_MINUTES", 10)
	v.SetDefault("MAX_ATTACHMENT_SIZE_MB", 25)
	v.SetDefault("MAX_EMAIL_SIZE_MB", 25)
	v.SetDefault("MAX_RECIPIENTS_PER_EMAIL", 100)

	// SMTP defaults
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USE_SSL", false)
	v.SetDefault("SMTP_USE_TLS", true)
	v.SetDefault("SMTP_TIMEOUT_S", 30)
	v.SetDefault("SMTP_VALIDATE_CERTIFICATE", true)
	v.SetDefault("SMTP_RETRY_ATTEMPTS", 3)
	v.SetDefault("SMTP_MAX_CONNECTIONS", 5)
	v.SetDefault("SMTP_POOL_IDLE_MINUTES", 5)
	v.SetDefault("SMTP_SENDER_NAME", "Mail Worker")

	// Cleanup defaults
	v.SetDefault("EMAIL_HISTORY_RETENTION_DAYS", 90)
	v.SetDefault("PROCESSING_LOG_RETENTION_DAYS", 30)
	v.SetDefault("FAILED_EMAIL_RETENTION_DAYS", 30)
	v.SetDefault("SUCCESSFUL_EMAIL_RETENTION_DAYS", 7)
	v.SetDefault("SERVICE_STATUS_RETENTION_DAYS", 7)
	v.SetDefault("CLEANUP_INTERVAL_HOURS", 24)
	v.SetDefault("CLEANUP_TIME", "02:00")
	v.SetDefault("CLEANUP_BATCH_SIZE", 1000)
	v.SetDefault("ARCHIVE_ENABLED", false)
	v.SetDefault("ARCHIVE_PATH", "/var/lib/mailworker/archive")
	v.SetDefault("ARCHIVE_FORMAT", "json")
	v.SetDefault("ARCHIVE_COMPRESS", false)
	v.SetDefault("ARCHIVE_MAX_FILE_SIZE_MB", 100)
	v.SetDefault("AGGRESSIVE_THRESHOLD_PERCENT", 0)

	// Worker defaults
	v.SetDefault("SERVICE_NAME", "mailworker")
	v.SetDefault("SCHEDULED_CHECK_INTERVAL_MINUTES", 1)
	v.SetDefault("HEALTH_CHECK_INTERVAL_MINUTES", 5)

	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VERSION", VERSION)

	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}
		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			// The env file is optional.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Processing: ProcessingConfig{
			PollingInterval:      time.Duration(v.GetInt("POLLING_INTERVAL_S")) * time.Second,
			BatchSize:            v.GetInt("BATCH_SIZE"),
			MaxConcurrentWorkers: v.GetInt("MAX_CONCURRENT_WORKERS"),
			MaxRetryAttempts:     v.GetInt("MAX_RETRY_ATTEMPTS"),
			RetryDelay:           time.Duration(v.GetInt("RETRY_DELAY_MINUTES")) * time.Minute,
			MaxProcessingTime:    time.Duration(v.GetInt("MAX_PROCESSING_TIME_MINUTES")) * time.Minute,
			MaxAttachmentSizeMB:  v.GetInt("MAX_ATTACHMENT_SIZE_MB"),
			MaxEmailSizeMB:       v.GetInt("MAX_EMAIL_SIZE_MB"),
			MaxRecipientsPerMail: v.GetInt("MAX_RECIPIENTS_PER_EMAIL"),
		},
		SMTP: SMTPConfig{
			Host:                v.GetString("SMTP_HOST"),
			Port:                v.GetInt("SMTP_PORT"),
			Username:            v.GetString("SMTP_USERNAME"),
			Password:            v.GetString("SMTP_PASSWORD"),
			UseSSL:              v.GetBool("SMTP_USE_SSL"),
			UseTLS:              v.GetBool("SMTP_USE_TLS"),
			Timeout:             time.Duration(v.GetInt("SMTP_TIMEOUT_S")) * time.Second,
			ValidateCertificate: v.GetBool("SMTP_VALIDATE_CERTIFICATE"),
			RetryAttempts:       v.GetInt("SMTP_RETRY_ATTEMPTS"),
			MaxConnections:      v.GetInt("SMTP_MAX_CONNECTIONS"),
			PoolIdle:            time.Duration(v.GetInt("SMTP_POOL_IDLE_MINUTES")) * time.Minute,
			SenderEmail:         v.GetString("SMTP_SENDER_EMAIL"),
			SenderName:          v.GetString("SMTP_SENDER_NAME"),
			DefaultReplyTo:      v.GetString("SMTP_DEFAULT_REPLY_TO"),
		},
		Cleanup: CleanupConfig{
			EmailHistoryRetentionDays:    v.GetInt("EMAIL_HISTORY_RETENTION_DAYS"),
			ProcessingLogRetentionDays:   v.GetInt("PROCESSING_LOG_RETENTION_DAYS"),
			FailedEmailRetentionDays:     v.GetInt("FAILED_EMAIL_RETENTION_DAYS"),
			SuccessfulEmailRetentionDays: v.GetInt("SUCCESSFUL_EMAIL_RETENTION_DAYS"),
			ServiceStatusRetentionDays:   v.GetInt("SERVICE_STATUS_RETENTION_DAYS"),
			Interval:                     time.Duration(v.GetInt("CLEANUP_INTERVAL_HOURS")) * time.Hour,
			Time:                         v.GetString("CLEANUP_TIME"),
			BatchSize:                    v.GetInt("CLEANUP_BATCH_SIZE"),
			Archive: ArchiveConfig{
				Enabled:       v.GetBool("ARCHIVE_ENABLED"),
				Path:          v.GetString("ARCHIVE_PATH"),
				Format:        v.GetString("ARCHIVE_FORMAT"),
				Compress:      v.GetBool("ARCHIVE_COMPRESS"),
				MaxFileSizeMB: v.GetInt("ARCHIVE_MAX_FILE_SIZE_MB"),
			},
			AggressiveThresholdPercent: v.GetFloat64("AGGRESSIVE_THRESHOLD_PERCENT"),
		},
		Worker: WorkerConfig{
			ServiceName:            v.GetString("SERVICE_NAME"),
			ScheduledCheckInterval: time.Duration(v.GetInt("SCHEDULED_CHECK_INTERVAL_MINUTES")) * time.Minute,
			HealthCheckInterval:    time.Duration(v.GetInt("HEALTH_CHECK_INTERVAL_MINUTES")) * time.Minute,
			StatusReportEmail:      v.GetString("STATUS_REPORT_EMAIL"),
			AlertEmail:             v.GetString("ALERT_EMAIL"),
			WebhookURL:             v.GetString("WEBHOOK_URL"),
			WebhookSecret:          v.GetString("WEBHOOK_SECRET"),
		},
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Version:     v.GetString("VERSION"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the settings without which the worker cannot start.
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.DBName == "" {
		return fmt.Errorf("DB_HOST and DB_NAME must be set")
	}
	if c.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST must be set")
	}
	if c.SMTP.SenderEmail == "" {
		return fmt.Errorf("SMTP_SENDER_EMAIL must be set")
	}
	if c.Cleanup.Time != "" {
		if _, err := time.Parse("15:04", c.Cleanup.Time); err != nil {
			return fmt.Errorf("CLEANUP_TIME must be HH:MM: %w", err)
		}
	}
	if f := c.Cleanup.Archive.Format; f != "json" && f != "csv" {
		return fmt.Errorf("ARCHIVE_FORMAT must be json or csv, got %q", f)
	}
	if c.Processing.BatchSize <= 0 || c.Processing.MaxConcurrentWorkers <= 0 {
		return fmt.Errorf("BATCH_SIZE and MAX_CONCURRENT_WORKERS must be positive")
	}
	return nil
}
