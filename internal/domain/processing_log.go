package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination mocks/mock_log_repository.go -package mocks github.com/mailworker/mailworker/internal/domain LogRepository

// Processing steps recorded on log rows.
const (
	StepClaim       = "claim"
	StepAttachments = "attachments"
	StepTemplate    = "template"
	StepCIDImages   = "cid_images"
	StepCompose     = "compose"
	StepSMTPSend    = "smtp_send"
	StepFinalize    = "finalize"
)

// ProcessingLog is one structured event in the processing trail.
type ProcessingLog struct {
	ID             int64     `json:"id"`
	LogLevel       string    `json:"log_level"`
	Category       string    `json:"category"`
	Message        string    `json:"message"`
	Exception      *string   `json:"exception,omitempty"`
	QueueID        *string   `json:"queue_id,omitempty"`
	WorkerID       *string   `json:"worker_id,omitempty"`
	ProcessingStep *string   `json:"processing_step,omitempty"`
	ContextData    *string   `json:"context_data,omitempty"`
	CorrelationID  *string   `json:"correlation_id,omitempty"`
	MachineName    string    `json:"machine_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// LogRepository appends and prunes processing log rows.
type LogRepository interface {
	Append(ctx context.Context, entry *ProcessingLog) error

	// DeleteBefore removes up to limit rows older than cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
