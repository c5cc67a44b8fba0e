package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/injectguard/injectguard/pkg/alert"
	"github.com/injectguard/injectguard/pkg/detection"
	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAlertService struct {
	mock.Mock
}

func (m *mockAlertService) Process(
	ctx context.Context,
	detections []detection.Detection,
	reqCtx alert.RequestContext,
) (alert.Result, error) {
	args := m.Called(ctx, detections, reqCtx)
	result, _ := args.Get(0).(alert.Result)
	return result, args.Error(1)
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestProcessAlertHandler_Success(t *testing.T) {
	service := new(mockAlertService)
	handler := NewProcessAlertHandler(silentLogger(), service)

	app := fiber.New()
	app.Post("/api/v1/alerts", handler.Handle)

	reqBody := map[string]interface{}{
		"type":          "sql_injection",
		"severity":      "critical",
		"pattern":       "sql_statement_terminator",
		"field":         "body.comment",
		"matched_value": "'; DROP TABLE users; --",
		"endpoint":      "/api/v1/orders",
		"method":        "POST",
		"ip_address":    "203.0.113.7",
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	service.On("Process", mock.Anything, mock.MatchedBy(func(detections []detection.Detection) bool {
		return len(detections) == 1 &&
			detections[0].Kind == attempt.KindSQLInjection &&
			detections[0].Severity == attempt.SeverityCritical
	}), mock.MatchedBy(func(reqCtx alert.RequestContext) bool {
		return reqCtx.IPAddress == "203.0.113.7" && reqCtx.Endpoint == "/api/v1/orders"
	})).Return(alert.Result{AttemptID: "a-1", AlertSent: true}, nil)

	req := httptest.NewRequest("POST", "/api/v1/alerts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "a-1", payload["attempt_id"])
	assert.Equal(t, true, payload["alert_sent"])
}

func TestProcessAlertHandler_MissingFields(t *testing.T) {
	service := new(mockAlertService)
	handler := NewProcessAlertHandler(silentLogger(), service)

	app := fiber.New()
	app.Post("/api/v1/alerts", handler.Handle)

	body, err := json.Marshal(map[string]interface{}{"type": "sql_injection"})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/alerts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	service.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessAlertHandler_InvalidSeverity(t *testing.T) {
	service := new(mockAlertService)
	handler := NewProcessAlertHandler(silentLogger(), service)

	app := fiber.New()
	app.Post("/api/v1/alerts", handler.Handle)

	body, err := json.Marshal(map[string]interface{}{
		"type":       "sql_injection",
		"severity":   "catastrophic",
		"ip_address": "203.0.113.7",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/alerts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
