package alert_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/injectguard/injectguard/pkg/alert"
	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/injectguard/injectguard/pkg/infra/httpx"
	"github.com/injectguard/injectguard/pkg/infra/httpx/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testNotification() alert.Notification {
	return alert.Notification{
		AttemptID:  fixedAttemptID.String(),
		Kind:       attempt.KindSQLInjection,
		Severity:   attempt.SeverityCritical,
		Endpoint:   "/api/v1/orders",
		Field:      "body.customerName",
		IPAddress:  "203.0.113.7",
		OccurredAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func httpResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}
}

func TestWebhookNotifierSendsClassificationOnly(t *testing.T) {
	client := new(mocks.MockHTTPClient)
	breaker := httpx.NewCircuitBreaker("alert-webhook", time.Minute, 3)

	var captured *http.Request
	client.On("Do", mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(0).(*http.Request)
	}).Return(httpResponse(http.StatusOK), nil).Once()

	notifier := alert.NewWebhookNotifier(client, testLogger(), breaker, alert.WebhookCredentials{
		URL:   "https://alerts.example.com/hooks/security",
		Token: "hook-token",
	})

	require.NoError(t, notifier.Notify(context.Background(), testNotification()))
	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))
	assert.Equal(t, "hook-token", captured.Header.Get("Token"))

	body, err := io.ReadAll(captured.Body)
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "sql_injection", payload["kind"])
	assert.Equal(t, "critical", payload["severity"])
	assert.NotContains(t, string(body), "DROP TABLE", "raw input must never leave the process")
}

func TestWebhookNotifierRejectsNon2xx(t *testing.T) {
	client := new(mocks.MockHTTPClient)
	breaker := httpx.NewCircuitBreaker("alert-webhook", time.Minute, 3)

	client.On("Do", mock.Anything).Return(httpResponse(http.StatusBadGateway), nil).Once()

	notifier := alert.NewWebhookNotifier(client, testLogger(), breaker, alert.WebhookCredentials{
		URL: "https://alerts.example.com/hooks/security",
	})

	err := notifier.Notify(context.Background(), testNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, alert.ErrFailedNotifierCall)
}

func TestWebhookNotifierTripsBreakerAfterConsecutiveFailures(t *testing.T) {
	client := new(mocks.MockHTTPClient)
	breaker := httpx.NewCircuitBreaker("alert-webhook", time.Minute, 2)

	client.On("Do", mock.Anything).Return(httpResponse(http.StatusInternalServerError), nil)

	notifier := alert.NewWebhookNotifier(client, testLogger(), breaker, alert.WebhookCredentials{
		URL: "https://alerts.example.com/hooks/security",
	})

	for i := 0; i < 2; i++ {
		require.Error(t, notifier.Notify(context.Background(), testNotification()))
	}

	// The open breaker must short-circuit the third call.
	require.Error(t, notifier.Notify(context.Background(), testNotification()))
	client.AssertNumberOfCalls(t, "Do", 2)
}
