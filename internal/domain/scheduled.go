package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

//go:generate mockgen -destination mocks/mock_scheduled_repository.go -package mocks github.com/mailworker/mailworker/internal/domain ScheduledRepository

// ScheduledEmail declares a future or recurring send. Each due execution
// enqueues a fresh QueueItem carrying the payload below.
type ScheduledEmail struct {
	ID         int64  `json:"id"`
	ScheduleID string `json:"schedule_id"`

	NextRunTime     time.Time  `json:"next_run_time"`
	CronExpression  *string    `json:"cron_expression,omitempty"`
	IntervalMinutes *int       `json:"interval_minutes,omitempty"`
	IsRecurring     bool       `json:"is_recurring"`
	IsActive        bool       `json:"is_active"`
	ExecutionCount  int        `json:"execution_count"`
	MaxExecutions   *int       `json:"max_executions,omitempty"`
	LastExecutedAt  *time.Time `json:"last_executed_at,omitempty"`

	// Email payload.
	ToEmails     string        `json:"to_emails"`
	CCEmails     *string       `json:"cc_emails,omitempty"`
	BCCEmails    *string       `json:"bcc_emails,omitempty"`
	Subject      string        `json:"subject"`
	Body         string        `json:"body"`
	IsHTML       bool          `json:"is_html"`
	Priority     QueuePriority `json:"priority"`
	TemplateID   *int64        `json:"template_id,omitempty"`
	TemplateData *string       `json:"template_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// NextRun computes the next execution time after the given instant, from
// the 5-field cron expression when present, otherwise from the interval.
func (s *ScheduledEmail) NextRun(after time.Time) (time.Time, error) {
	if s.CronExpression != nil && *s.CronExpression != "" {
		schedule, err := cron.ParseStandard(*s.CronExpression)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", *s.CronExpression, err)
		}
		return schedule.Next(after), nil
	}
	if s.IntervalMinutes != nil && *s.IntervalMinutes > 0 {
		return after.Add(time.Duration(*s.IntervalMinutes) * time.Minute), nil
	}
	return time.Time{}, fmt.Errorf("schedule %s has neither cron expression nor interval", s.ScheduleID)
}

// ExecutionsExhausted reports whether the schedule reached its cap.
func (s *ScheduledEmail) ExecutionsExhausted() bool {
	return s.MaxExecutions != nil && s.ExecutionCount >= *s.MaxExecutions
}

// ToQueueItem builds the queue row for one execution of this schedule.
func (s *ScheduledEmail) ToQueueItem(createdBy string) *QueueItem {
	return &QueueItem{
		Priority:                   s.Priority,
		Status:                     StatusQueued,
		ToEmails:                   s.ToEmails,
		CCEmails:                   s.CCEmails,
		BCCEmails:                  s.BCCEmails,
		Subject:                    s.Subject,
		Body:                       s.Body,
		IsHTML:                     s.IsHTML,
		TemplateID:                 s.TemplateID,
		TemplateData:               s.TemplateData,
		RequiresTemplateProcessing: s.TemplateID != nil,
		CreatedBy:                  createdBy,
	}
}

// ScheduledRepository selects due schedules and promotes them into the
// queue. Promote must enqueue and advance the schedule atomically.
type ScheduledRepository interface {
	Create(ctx context.Context, s *ScheduledEmail) error

	// DueBatch returns active schedules whose next_run_time has passed
	// and whose execution cap is not reached, locking them against
	// concurrent promoters.
	DueBatch(ctx context.Context, now time.Time, limit int) ([]*ScheduledEmail, error)

	// Promote inserts the queue row and updates the schedule row
	// (execution count, last executed, next run or deactivation) in a
	// single transaction. The schedule's mutated fields are expected to
	// be set by the caller before the call.
	Promote(ctx context.Context, s *ScheduledEmail, item *QueueItem) error
}
