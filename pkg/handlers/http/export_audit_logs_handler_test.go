package http

import (
	"encoding/csv"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/injectguard/injectguard/pkg/domain/auditlog"
	auditmocks "github.com/injectguard/injectguard/pkg/domain/auditlog/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExportAuditLogsHandler_StreamsCSV(t *testing.T) {
	repo := new(auditmocks.MockRepository)
	handler := NewExportAuditLogsHandler(silentLogger(), repo)

	app := fiber.New()
	app.Get("/api/v1/audit/export", handler.Handle)

	resourceID := "res-1"
	entries := []auditlog.AuditLog{
		{
			ID:         uuid.New(),
			AdminID:    "admin-1",
			AdminEmail: "admin@example.com",
			Action:     auditlog.ActionAlertSent,
			Category:   auditlog.CategorySecurityAlert,
			Resource:   "injection_attempt",
			ResourceID: &resourceID,
			Details:    `{"kind":"sql_injection"}`,
			IPAddress:  "203.0.113.7",
			UserAgent:  "curl/8.5",
			CreatedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:        uuid.New(),
			AdminID:   "admin-2",
			Action:    auditlog.ActionRetentionRun,
			Category:  auditlog.CategoryAdminAction,
			Resource:  "retention",
			Details:   `says "quoted, with commas"`,
			CreatedAt: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		},
	}

	repo.On("Save", mock.Anything, mock.MatchedBy(func(entry *auditlog.AuditLog) bool {
		return entry.Action == auditlog.ActionExport && entry.Resource == "audit_logs"
	})).Return(nil)
	repo.On("ForEachBatch", mock.Anything, 500, mock.Anything).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(logs []auditlog.AuditLog) error)
			require.NoError(t, fn(entries))
		}).
		Return(nil)

	req := httptest.NewRequest("GET", "/api/v1/audit/export", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "audit_logs.csv")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"ID", "Timestamp", "AdminId", "AdminEmail", "Action",
		"Resource", "ResourceId", "Details", "IPAddress", "UserAgent",
	}, records[0])

	first := records[1]
	assert.Equal(t, entries[0].ID.String(), first[0])
	assert.Equal(t, "2026-08-30T12:00:00Z", first[1])
	assert.Equal(t, "admin-1", first[2])
	assert.Equal(t, "security_alert_sent", first[4])
	assert.Equal(t, "res-1", first[6])

	second := records[2]
	assert.Equal(t, `says "quoted, with commas"`, second[7], "csv quoting must survive round-trip")

	repo.AssertExpectations(t)
}
