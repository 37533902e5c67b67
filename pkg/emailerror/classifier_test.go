package emailerror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, NewClassifier().Classify(nil))
}

func TestClassifyPermanent(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		err  error
	}{
		{"550 mailbox", errors.New("550 5.1.1 mailbox unavailable")},
		{"551", errors.New("551: user not local")},
		{"554 rejected", errors.New("554 transaction failed")},
		{"user unknown", errors.New("recipient rejected: user unknown")},
		{"auth failure", errors.New("authentication failed with code: 535")},
		{"tls verification", errors.New("x509: certificate signed by unknown authority")},
		{"tls handshake", errors.New("tls handshake failed: remote error")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(tt.err)
			require.NotNil(t, result)
			assert.Equal(t, SeverityPermanent, result.Severity)
			assert.False(t, result.Retryable())
		})
	}
}

func TestClassifyTransient(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		err  error
	}{
		{"421 unavailable", errors.New("421 service temporarily unavailable")},
		{"450 busy", errors.New("450 mailbox busy")},
		{"451 local error", errors.New("451: local error in processing")},
		{"connection refused", errors.New("dial tcp: connection refused")},
		{"connection reset", errors.New("read: connection reset by peer")},
		{"timeout", errors.New("i/o timeout while reading response")},
		{"greylisted", errors.New("451 greylisted, try again later")},
		{"context deadline", context.DeadlineExceeded},
		{"wrapped deadline", fmt.Errorf("send: %w", context.DeadlineExceeded)},
		{"unknown", errors.New("something odd happened")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(tt.err)
			require.NotNil(t, result)
			assert.Equal(t, SeverityTransient, result.Severity)
			assert.True(t, result.Retryable())
		})
	}
}

func TestClassifyFallsBackToReplyCode(t *testing.T) {
	c := NewClassifier()

	perm := c.Classify(errors.New("server said 599 no thanks"))
	assert.Equal(t, SeverityPermanent, perm.Severity)
	assert.Equal(t, 599, perm.SMTPCode)

	transient := c.Classify(errors.New("server said 442 slow down"))
	assert.Equal(t, SeverityTransient, transient.Severity)
	assert.Equal(t, 442, transient.SMTPCode)
}

func TestExtractSMTPCode(t *testing.T) {
	assert.Equal(t, 550, extractSMTPCode("550 5.1.1 no such user"))
	assert.Equal(t, 451, extractSMTPCode("temporary: 451: try later"))
	assert.Equal(t, 0, extractSMTPCode("no code in here"))
	assert.Equal(t, 0, extractSMTPCode("retried 3 times"))
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	inner := errors.New("550 mailbox unavailable")
	wrapped := fmt.Errorf("send failed: %w", inner)
	result := NewClassifier().Classify(wrapped)

	assert.Equal(t, wrapped.Error(), result.Error())
	assert.True(t, errors.Is(result, inner))
}
