package domain

import (
	"context"
	"strings"
	"time"
)

//go:generate mockgen -destination mocks/mock_queue_repository.go -package mocks github.com/mailworker/mailworker/internal/domain QueueRepository

// QueueStatus represents the lifecycle state of a queued email.
// The numeric values are fixed on the wire and in the database.
type QueueStatus int16

const (
	StatusQueued     QueueStatus = 0
	StatusProcessing QueueStatus = 1
	StatusSent       QueueStatus = 2
	StatusFailed     QueueStatus = 3
	StatusCancelled  QueueStatus = 4
	StatusScheduled  QueueStatus = 5
)

func (s QueueStatus) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusProcessing:
		return "processing"
	case StatusSent:
		return "sent"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s QueueStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether the state machine permits moving from one
// status to another. Transitions are monotonic except Failed -> Queued
// (retry) and Processing -> Queued (stuck reset).
func CanTransition(from, to QueueStatus) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusSent || to == StatusFailed || to == StatusQueued || to == StatusCancelled
	case StatusFailed:
		return to == StatusQueued
	case StatusScheduled:
		return to == StatusQueued
	default:
		return false
	}
}

// QueuePriority orders claims within the queue. Higher values are claimed first.
type QueuePriority int16

const (
	PriorityLow      QueuePriority = 1
	PriorityNormal   QueuePriority = 2
	PriorityHigh     QueuePriority = 3
	PriorityCritical QueuePriority = 4
)

func (p QueuePriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// QueueItem is the durable unit of work: one email send request.
type QueueItem struct {
	ID       int64         `json:"id"`
	QueueID  string        `json:"queue_id"`
	Priority QueuePriority `json:"priority"`
	Status   QueueStatus   `json:"status"`

	ToEmails  string  `json:"to_emails"`
	CCEmails  *string `json:"cc_emails,omitempty"`
	BCCEmails *string `json:"bcc_emails,omitempty"`
	Subject   string  `json:"subject"`
	Body      string  `json:"body"`
	IsHTML    bool    `json:"is_html"`

	TemplateID                 *int64  `json:"template_id,omitempty"`
	TemplateData               *string `json:"template_data,omitempty"`
	RequiresTemplateProcessing bool    `json:"requires_template_processing"`

	// Attachments is a JSON-serialized list of Attachment.
	Attachments       *string `json:"attachments,omitempty"`
	HasEmbeddedImages bool    `json:"has_embedded_images"`

	RetryCount          int        `json:"retry_count"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
	ErrorMessage        *string    `json:"error_message,omitempty"`
	ProcessedBy         *string    `json:"processed_by,omitempty"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	IsScheduled  bool       `json:"is_scheduled"`

	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CreatedBy     string    `json:"created_by"`
	RequestSource *string   `json:"request_source,omitempty"`
}

// SplitRecipients splits a comma or semicolon separated address list,
// trimming whitespace and dropping empty entries.
func SplitRecipients(list string) []string {
	if list == "" {
		return nil
	}
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// RecipientCount returns the total number of to/cc/bcc addresses.
func (i *QueueItem) RecipientCount() int {
	n := len(SplitRecipients(i.ToEmails))
	if i.CCEmails != nil {
		n += len(SplitRecipients(*i.CCEmails))
	}
	if i.BCCEmails != nil {
		n += len(SplitRecipients(*i.BCCEmails))
	}
	return n
}

// FailureOutcome is the value-typed result of MarkFailed.
type FailureOutcome int

const (
	// FailureOutcomeNone means the row was not in a failable state (no-op).
	FailureOutcomeNone FailureOutcome = iota
	// FailureOutcomeRequeued means the row went back to Queued for a retry.
	FailureOutcomeRequeued
	// FailureOutcomeTerminal means the row reached Failed permanently.
	FailureOutcomeTerminal
)

// QueueStatistics aggregates the current queue state.
type QueueStatistics struct {
	CountsByStatus  map[QueueStatus]int64 `json:"counts_by_status"`
	OldestQueuedAt  *time.Time            `json:"oldest_queued_at,omitempty"`
	AvgProcessingMs float64               `json:"avg_processing_ms"`
}

// Depth returns the number of rows waiting for delivery: Queued plus
// Scheduled.
func (s *QueueStatistics) Depth() int64 {
	return s.CountsByStatus[StatusQueued] + s.CountsByStatus[StatusScheduled]
}

// RetryPolicy bounds the retry behaviour of MarkFailed.
type RetryPolicy struct {
	MaxRetries int
	RetryDelay time.Duration
}

// QueueRepository is the single data-access surface for queue rows.
// All status mutations go through it; claim and finalize operations are
// atomic against concurrent workers.
type QueueRepository interface {
	// Enqueue inserts a new row. A missing QueueID is generated.
	Enqueue(ctx context.Context, item *QueueItem) error

	// ClaimBatch atomically selects up to limit eligible Queued rows
	// (priority DESC, created_at ASC), marks them Processing and stamps
	// processing_started_at and processed_by. Safe against concurrent
	// claimers via row locking with SKIP LOCKED.
	ClaimBatch(ctx context.Context, workerID string, limit int) ([]*QueueItem, error)

	// MarkSent finalizes a Processing row owned by workerID and appends
	// the history record in the same transaction. Returns false when the
	// row is no longer in Processing or is owned by another worker.
	MarkSent(ctx context.Context, queueID, workerID string, hist *EmailHistory) (bool, error)

	// MarkFailed either requeues the row for retry (when allowed and
	// under the retry cap, with eligibility delayed by the retry delay)
	// or marks it permanently Failed and appends the terminal history
	// record in the same transaction.
	MarkFailed(ctx context.Context, queueID, errorMessage string, allowRetry bool, hist *EmailHistory) (FailureOutcome, error)

	// GetStuck returns Processing rows whose processing_started_at is
	// older than the threshold.
	GetStuck(ctx context.Context, threshold time.Duration) ([]*QueueItem, error)

	// ResetStuck moves stuck Processing rows back to Queued and clears
	// ownership. The reset does not consume a retry attempt.
	ResetStuck(ctx context.Context, threshold time.Duration) (int64, error)

	// Cancel transitions a Queued or Processing row to Cancelled.
	// Cancelling a terminal row is a no-op.
	Cancel(ctx context.Context, queueID string) error

	// GetByQueueID fetches a single row by its surface identifier.
	GetByQueueID(ctx context.Context, queueID string) (*QueueItem, error)

	// Statistics returns per-status counts, oldest queued age and
	// average processing time.
	Statistics(ctx context.Context) (*QueueStatistics, error)

	// DeleteTerminalBefore removes up to limit rows with the given
	// terminal status older than cutoff. Used by the cleanup loop.
	DeleteTerminalBefore(ctx context.Context, status QueueStatus, cutoff time.Time, limit int) (int64, error)
}
