package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination mocks/mock_history_repository.go -package mocks github.com/mailworker/mailworker/internal/domain HistoryRepository

// EmailHistory is the append-only record of one processed attempt.
// Exactly one row is written per terminal transition (Sent or
// permanently Failed).
type EmailHistory struct {
	ID               string      `json:"id"`
	QueueID          string      `json:"queue_id"`
	ToEmails         string      `json:"to_emails"`
	CCEmails         *string     `json:"cc_emails,omitempty"`
	BCCEmails        *string     `json:"bcc_emails,omitempty"`
	Subject          string      `json:"subject"`
	FinalBody        string      `json:"final_body"`
	Status           QueueStatus `json:"status"`
	SentAt           *time.Time  `json:"sent_at,omitempty"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
	RetryCount       int         `json:"retry_count"`
	TemplateID       *int64      `json:"template_id,omitempty"`
	TemplateUsed     *string     `json:"template_used,omitempty"`
	AttachmentCount  int         `json:"attachment_count"`
	ErrorDetails     *string     `json:"error_details,omitempty"`
	ProcessedBy      string      `json:"processed_by"`
	CreatedAt        time.Time   `json:"created_at"`
}

// HourlyStats aggregates the last hour of terminal outcomes.
type HourlyStats struct {
	Sent            int64   `json:"sent"`
	Failed          int64   `json:"failed"`
	AvgProcessingMs float64 `json:"avg_processing_ms"`
}

// FailureRatePercent returns failed / (sent + failed) as a percentage.
func (s *HourlyStats) FailureRatePercent() float64 {
	total := s.Sent + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(total) * 100
}

// HistoryRepository reads and prunes the history table. Appends happen
// inside the queue repository's finalize transactions.
type HistoryRepository interface {
	// Append inserts a history row outside a finalize transaction.
	// Used by tooling and tests; the pipeline writes history via
	// QueueRepository.MarkSent / MarkFailed.
	Append(ctx context.Context, h *EmailHistory) error

	// LastHourStats aggregates terminal outcomes over the trailing hour.
	LastHourStats(ctx context.Context) (*HourlyStats, error)

	// TotalCounts returns all-time sent and failed counts.
	TotalCounts(ctx context.Context) (sent, failed int64, err error)

	// SelectBefore returns up to limit rows older than cutoff, oldest
	// first. Used by the archival writer.
	SelectBefore(ctx context.Context, cutoff time.Time, limit int) ([]*EmailHistory, error)

	// DeleteBefore removes up to limit rows older than cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
