package emailerror

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// Classifier classifies SMTP send errors into transient and permanent
// failures for retry decisions.
type Classifier struct{}

// NewClassifier creates a new error classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Permanent failure patterns: 5xx replies, auth and TLS verification.
var permanentPatterns = []string{
	"550 ",
	"550:",
	"551 ",
	"551:",
	"552 ",
	"552:",
	"553 ",
	"553:",
	"554 ",
	"554:",
	"5.1.1", // mailbox does not exist
	"5.1.2", // bad destination mailbox
	"5.1.3", // bad destination mailbox syntax
	"5.2.1", // mailbox disabled
	"5.2.2", // mailbox full
	"5.7.1", // delivery not authorized
	"mailbox unavailable",
	"mailbox not found",
	"user unknown",
	"no such user",
	"recipient rejected",
	"does not exist",
	"authentication failed",
	"auth failed",
	"login failed",
	"invalid credentials",
	"certificate verify failed",
	"certificate is not trusted",
	"x509:",
	"tls handshake",
	"tls verification",
}

// Transient failure patterns: 4xx replies, timeouts, connection issues.
var transientPatterns = []string{
	"421 ",
	"421:",
	"450 ",
	"450:",
	"451 ",
	"451:",
	"452 ",
	"452:",
	"4.7.1",
	"connection refused",
	"connection reset",
	"connection timeout",
	"broken pipe",
	"timed out",
	"timeout",
	"service unavailable",
	"try again later",
	"temporary failure",
	"greylisted",
	"greylist",
	"too many connections",
}

// Matches an SMTP reply code like "550 " or "451:", or one that ends the
// string as in "rejected with code: 550".
var smtpCodeRegex = regexp.MustCompile(`\b([245]\d{2})(?:[ :-]|$)`)

// extractSMTPCode pulls the first SMTP reply code out of an error string.
func extractSMTPCode(errStr string) int {
	m := smtpCodeRegex.FindStringSubmatch(errStr)
	if m == nil {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

// Classify analyzes a send error. nil input yields nil.
func (c *Classifier) Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	result := &ClassifiedError{
		Original: err,
		SMTPCode: extractSMTPCode(errStr),
	}

	// Context and network timeouts are always transient.
	if errors.Is(err, context.DeadlineExceeded) {
		result.Severity = SeverityTransient
		return result
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		result.Severity = SeverityTransient
		return result
	}

	if containsAny(errStr, permanentPatterns) {
		result.Severity = SeverityPermanent
		return result
	}
	if containsAny(errStr, transientPatterns) {
		result.Severity = SeverityTransient
		return result
	}

	// Fall back to the reply code class.
	switch {
	case result.SMTPCode >= 500:
		result.Severity = SeverityPermanent
	case result.SMTPCode >= 400:
		result.Severity = SeverityTransient
	default:
		// Unknown errors are treated as transient so a flaky network
		// never burns an item permanently.
		result.Severity = SeverityTransient
	}
	return result
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
