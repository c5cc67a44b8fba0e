package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/injectguard/injectguard/pkg/infra/httpx"
	"github.com/sirupsen/logrus"
)

var ErrFailedNotifierCall = errors.New("notifier call failed")

// Notification is the payload dispatched to the external alerting webhook.
// It deliberately carries no raw matched value: the receiver gets the
// classification, not the attacker's input.
type Notification struct {
	AttemptID  string           `json:"attempt_id"`
	Kind       attempt.Kind     `json:"kind"`
	Severity   attempt.Severity `json:"severity"`
	Endpoint   string           `json:"endpoint"`
	Field      string           `json:"field"`
	IPAddress  string           `json:"ip_address"`
	OccurredAt time.Time        `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type WebhookCredentials struct {
	URL   string
	Token string
}

type webhookNotifier struct {
	client         httpx.Client
	logger         *logrus.Logger
	circuitBreaker httpx.CircuitBreaker
	credentials    WebhookCredentials
}

func NewWebhookNotifier(
	client httpx.Client,
	logger *logrus.Logger,
	circuitBreaker httpx.CircuitBreaker,
	credentials WebhookCredentials,
) Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &webhookNotifier{
		client:         client,
		logger:         logger,
		circuitBreaker: circuitBreaker,
		credentials:    credentials,
	}
}

func (n *webhookNotifier) Notify(ctx context.Context, notification Notification) error {
	err := n.circuitBreaker.Execute(func() error {
		return n.executeRequest(ctx, notification)
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			n.logger.WithError(err).Error("alert notification failed (circuit breaker)")
		}
		return err
	}
	return nil
}

func (n *webhookNotifier) executeRequest(ctx context.Context, notification Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.credentials.URL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if n.credentials.Token != "" {
		req.Header.Set("Token", n.credentials.Token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call alert webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		n.logger.WithField("status_code", resp.StatusCode).Error("alert webhook returned non-2xx status")
		return fmt.Errorf("%w: status %d", ErrFailedNotifierCall, resp.StatusCode)
	}

	return nil
}

// noopNotifier is used when no webhook is configured: escalation decisions
// still run (and are recorded) but nothing leaves the process.
type noopNotifier struct{}

func NewNoopNotifier() Notifier {
	return noopNotifier{}
}

func (noopNotifier) Notify(context.Context, Notification) error {
	return nil
}
