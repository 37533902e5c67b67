package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueStatusString(t *testing.T) {
	assert.Equal(t, "queued", StatusQueued.String())
	assert.Equal(t, "processing", StatusProcessing.String())
	assert.Equal(t, "sent", StatusSent.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "cancelled", StatusCancelled.String())
	assert.Equal(t, "scheduled", StatusScheduled.String())
	assert.Equal(t, "unknown", QueueStatus(42).String())
}

func TestQueueStatusWireValues(t *testing.T) {
	assert.EqualValues(t, 0, StatusQueued)
	assert.EqualValues(t, 1, StatusProcessing)
	assert.EqualValues(t, 2, StatusSent)
	assert.EqualValues(t, 3, StatusFailed)
	assert.EqualValues(t, 4, StatusCancelled)
	assert.EqualValues(t, 5, StatusScheduled)
}

func TestQueueStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusSent.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.False(t, StatusScheduled.IsTerminal())
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to QueueStatus }{
		{StatusQueued, StatusProcessing},
		{StatusQueued, StatusCancelled},
		{StatusProcessing, StatusSent},
		{StatusProcessing, StatusFailed},
		{StatusProcessing, StatusQueued}, // stuck reset
		{StatusProcessing, StatusCancelled},
		{StatusFailed, StatusQueued}, // retry
		{StatusScheduled, StatusQueued},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	denied := []struct{ from, to QueueStatus }{
		{StatusSent, StatusQueued},
		{StatusSent, StatusProcessing},
		{StatusCancelled, StatusQueued},
		{StatusQueued, StatusSent},
		{StatusQueued, StatusFailed},
		{StatusScheduled, StatusProcessing},
		{StatusFailed, StatusProcessing},
	}
	for _, tt := range denied {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestQueuePriorityString(t *testing.T) {
	assert.Equal(t, "low", PriorityLow.String())
	assert.Equal(t, "normal", PriorityNormal.String())
	assert.Equal(t, "high", PriorityHigh.String())
	assert.Equal(t, "critical", PriorityCritical.String())
}

func TestSplitRecipients(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "a@x.test", []string{"a@x.test"}},
		{"commas", "a@x.test,b@x.test", []string{"a@x.test", "b@x.test"}},
		{"semicolons", "a@x.test;b@x.test", []string{"a@x.test", "b@x.test"}},
		{"mixed with spaces", "a@x.test, b@x.test ; c@x.test", []string{"a@x.test", "b@x.test", "c@x.test"}},
		{"trailing separators", "a@x.test,;", []string{"a@x.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitRecipients(tt.in))
		})
	}
}

func TestQueueItemRecipientCount(t *testing.T) {
	cc := "b@x.test;c@x.test"
	bcc := "d@x.test"
	item := &QueueItem{
		ToEmails:  "a@x.test",
		CCEmails:  &cc,
		BCCEmails: &bcc,
	}
	assert.Equal(t, 4, item.RecipientCount())

	assert.Equal(t, 1, (&QueueItem{ToEmails: "a@x.test"}).RecipientCount())
}

func TestQueueStatisticsDepth(t *testing.T) {
	stats := &QueueStatistics{
		CountsByStatus: map[QueueStatus]int64{
			StatusQueued:    7,
			StatusScheduled: 3,
			StatusSent:      100,
		},
	}
	assert.EqualValues(t, 10, stats.Depth())

	oldest := time.Now().UTC().Add(-time.Hour)
	stats.OldestQueuedAt = &oldest
	assert.NotNil(t, stats.OldestQueuedAt)
}
