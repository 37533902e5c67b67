package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	svix "github.com/standard-webhooks/standard-webhooks/libraries/go"

	"github.com/google/uuid"
	"github.com/mailworker/mailworker/pkg/logger"
	"github.com/mailworker/mailworker/pkg/mailer"
)

// Alert severities.
const (
	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"
)

// Alert is one aggregate symptom raised by the health loop.
type Alert struct {
	Key       string    `json:"key"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Service   string    `json:"service"`
	Machine   string    `json:"machine"`
	RaisedAt  time.Time `json:"raised_at"`
}

// AlerterConfig wires the alert destinations. Either may be empty.
type AlerterConfig struct {
	AlertEmail    string
	SenderEmail   string
	WebhookURL    string
	WebhookSecret string

	// Cooldown suppresses repeats of the same alert key.
	Cooldown time.Duration
}

// Alerter dispatches alerts by email and signed webhook.
type Alerter struct {
	transport  mailer.Transport
	httpClient *http.Client
	config     AlerterConfig
	logger     logger.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewAlerter creates an alert dispatcher.
func NewAlerter(transport mailer.Transport, config AlerterConfig, log logger.Logger) *Alerter {
	if config.Cooldown <= 0 {
		config.Cooldown = time.Hour
	}
	return &Alerter{
		transport:  transport,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		config:     config,
		logger:     log,
		lastSent:   make(map[string]time.Time),
	}
}

// Raise dispatches an alert unless the same key fired within the
// cooldown window.
func (a *Alerter) Raise(ctx context.Context, alert Alert) {
	a.mu.Lock()
	if last, ok := a.lastSent[alert.Key]; ok && time.Since(last) < a.config.Cooldown {
		a.mu.Unlock()
		return
	}
	a.lastSent[alert.Key] = time.Now()
	a.mu.Unlock()

	a.logger.WithFields(map[string]interface{}{
		"alert":    alert.Key,
		"severity": alert.Severity,
		"value":    alert.Value,
	}).Warn(alert.Message)

	if a.config.AlertEmail != "" {
		a.sendEmail(ctx, alert)
	}
	if a.config.WebhookURL != "" {
		a.sendWebhook(ctx, alert)
	}
}

func (a *Alerter) sendEmail(ctx context.Context, alert Alert) {
	body := fmt.Sprintf(
		"Alert: %s\nSeverity: %s\nService: %s on %s\nValue: %.2f (threshold %.2f)\nRaised: %s\n",
		alert.Message, alert.Severity, alert.Service, alert.Machine,
		alert.Value, alert.Threshold, alert.RaisedAt.Format(time.RFC3339))

	result := a.transport.Send(ctx, &mailer.Envelope{
		To:      []string{a.config.AlertEmail},
		Subject: fmt.Sprintf("[%s] %s alert: %s", alert.Service, alert.Severity, alert.Key),
		Body:    body,
	})
	if result.Err != nil {
		a.logger.WithFields(map[string]interface{}{
			"alert": alert.Key,
			"error": result.Err.Error(),
		}).Error("Failed to send alert email")
	}
}

// sendWebhook posts the alert JSON signed per the standard-webhooks
// scheme so receivers can verify origin.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		a.logger.WithField("error", err.Error()).Error("Failed to marshal alert payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		a.logger.WithField("error", err.Error()).Error("Failed to build alert webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	if a.config.WebhookSecret != "" {
		wh, err := svix.NewWebhook(a.config.WebhookSecret)
		if err != nil {
			a.logger.WithField("error", err.Error()).Error("Failed to create webhook signer")
			return
		}
		msgID := "msg_" + uuid.New().String()
		now := time.Now().UTC()
		signature, err := wh.Sign(msgID, now, payload)
		if err != nil {
			a.logger.WithField("error", err.Error()).Error("Failed to sign alert webhook")
			return
		}
		req.Header.Set("Webhook-Id", msgID)
		req.Header.Set("Webhook-Timestamp", fmt.Sprintf("%d", now.Unix()))
		req.Header.Set("Webhook-Signature", signature)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.WithFields(map[string]interface{}{
			"alert": alert.Key,
			"error": err.Error(),
		}).Error("Failed to deliver alert webhook")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		a.logger.WithFields(map[string]interface{}{
			"alert":  alert.Key,
			"status": resp.StatusCode,
		}).Warn("Alert webhook rejected")
	}
}
