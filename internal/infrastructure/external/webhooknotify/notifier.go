package webhooknotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/application/port"
	"github.com/expensetrack/approval-engine/internal/approval"
)

// Notifier delivers engine notification requests to an external webhook.
// The receiving system owns channel selection and message wording; this
// side just posts the event.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// Config holds notifier configuration
type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

// NewNotifier creates a webhook notifier
func NewNotifier(cfg Config, logger *zap.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Notify posts the event to the webhook. Callers treat failures as
// fire-and-forget; this method only reports them.
func (n *Notifier) Notify(ctx context.Context, notification approval.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug("Notification delivered",
		zap.String("event", string(notification.Event)),
		zap.String("report_id", notification.ReportID),
		zap.String("recipient_id", notification.RecipientID))
	return nil
}

// NopNotifier discards notifications; used when no webhook is configured
type NopNotifier struct {
	logger *zap.Logger
}

// NewNopNotifier creates a notifier that only logs
func NewNopNotifier(logger *zap.Logger) *NopNotifier {
	return &NopNotifier{logger: logger}
}

// Notify logs the event and drops it
func (n *NopNotifier) Notify(ctx context.Context, notification approval.Notification) error {
	n.logger.Info("Notification (delivery disabled)",
		zap.String("event", string(notification.Event)),
		zap.String("report_id", notification.ReportID),
		zap.String("recipient_id", notification.RecipientID))
	return nil
}

// Verify interface compliance
var (
	_ port.Notifier = (*Notifier)(nil)
	_ port.Notifier = (*NopNotifier)(nil)
)
