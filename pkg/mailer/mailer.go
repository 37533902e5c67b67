// Package mailer composes MIME messages and delivers them over SMTP.
package mailer

import (
	"context"
	"time"
)

//go:generate mockgen -destination=../mocks/mock_transport.go -package=mocks github.com/mailworker/mailworker/pkg/mailer Transport

// Disposition is the tagged outcome of one delivery attempt.
type Disposition int

const (
	// DispositionOK means the server accepted the message.
	DispositionOK Disposition = iota
	// DispositionTransient means the attempt may be retried (timeout,
	// 4xx reply, connection reset).
	DispositionTransient
	// DispositionPermanent means retrying is pointless (5xx reply,
	// authentication or TLS verification failure).
	DispositionPermanent
)

func (d Disposition) String() string {
	switch d {
	case DispositionOK:
		return "ok"
	case DispositionTransient:
		return "transient_error"
	case DispositionPermanent:
		return "permanent_error"
	default:
		return "unknown"
	}
}

// SendResult reports one delivery attempt.
type SendResult struct {
	Disposition Disposition
	Err         error
	Duration    time.Duration
}

// Part is one MIME part carried by an envelope: a regular attachment or
// an inline part referenced from the HTML body by its Content-ID.
type Part struct {
	FileName    string
	ContentType string
	ContentID   string
	Data        []byte
	Inline      bool
}

// Envelope is a fully rendered message ready for delivery.
type Envelope struct {
	From     string
	FromName string
	ReplyTo  string
	To       []string
	CC       []string
	BCC      []string

	Subject string
	Body    string
	IsHTML  bool

	// MessageID is carried in the X-Message-ID header for correlation.
	MessageID string

	Parts []Part
}

// Recipients returns every envelope recipient (to + cc + bcc).
func (e *Envelope) Recipients() []string {
	out := make([]string, 0, len(e.To)+len(e.CC)+len(e.BCC))
	out = append(out, e.To...)
	out = append(out, e.CC...)
	out = append(out, e.BCC...)
	return out
}

// Transport delivers envelopes. Implementations classify failures so the
// pipeline can decide between retry and permanent failure.
type Transport interface {
	// Send delivers one envelope. The result is value-typed; Err is set
	// for both transient and permanent dispositions.
	Send(ctx context.Context, env *Envelope) SendResult

	// Ping verifies connectivity to the server without sending.
	Ping(ctx context.Context) error
}
