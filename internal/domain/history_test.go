package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHourlyStatsFailureRate(t *testing.T) {
	assert.Zero(t, (&HourlyStats{}).FailureRatePercent())
	assert.InDelta(t, 10.0, (&HourlyStats{Sent: 90, Failed: 10}).FailureRatePercent(), 0.001)
	assert.InDelta(t, 100.0, (&HourlyStats{Failed: 5}).FailureRatePercent(), 0.001)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("attachments", "too large")
	assert.Equal(t, "attachments: too large", err.Error())
	assert.True(t, IsValidationError(err))
	assert.True(t, IsValidationError(fmt.Errorf("stage: %w", err)))
	assert.False(t, IsValidationError(errors.New("plain")))

	bare := &ValidationError{Reason: "broken"}
	assert.Equal(t, "broken", bare.Error())
}

func TestTemplateValidate(t *testing.T) {
	valid := &Template{Name: "welcome", SubjectTemplate: "s", BodyTemplate: "b"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&Template{SubjectTemplate: "s", BodyTemplate: "b"}).Validate())
	assert.Error(t, (&Template{Name: "n", BodyTemplate: "b"}).Validate())
	assert.Error(t, (&Template{Name: "n", SubjectTemplate: "s"}).Validate())
}
