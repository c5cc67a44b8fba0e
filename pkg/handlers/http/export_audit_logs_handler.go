package http

import (
	"bufio"
	"context"
	"encoding/csv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/injectguard/injectguard/pkg/domain/auditlog"
	"github.com/injectguard/injectguard/pkg/middleware"
	"github.com/sirupsen/logrus"
)

const exportBatchSize = 500

var exportHeader = []string{
	"ID", "Timestamp", "AdminId", "AdminEmail", "Action",
	"Resource", "ResourceId", "Details", "IPAddress", "UserAgent",
}

type exportAuditLogsHandler struct {
	logger *logrus.Logger
	repo   auditlog.Repository
}

// NewExportAuditLogsHandler streams the full audit trail as CSV, newest
// first, in fixed-size batches so the table never sits in memory. The export
// itself lands in the audit trail before the first row is written.
func NewExportAuditLogsHandler(logger *logrus.Logger, repo auditlog.Repository) Handler {
	return &exportAuditLogsHandler{
		logger: logger,
		repo:   repo,
	}
}

func (s *exportAuditLogsHandler) Handle(c *fiber.Ctx) error {
	s.recordExport(c)

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="audit_logs.csv"`)

	// The stream writer runs after the handler returns; the request context
	// is gone by then, so the walk gets its own deadline.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		writer := csv.NewWriter(w)
		if err := writer.Write(exportHeader); err != nil {
			s.logger.WithError(err).Error("Failed to write export header")
			return
		}

		err := s.repo.ForEachBatch(ctx, exportBatchSize, func(logs []auditlog.AuditLog) error {
			for _, entry := range logs {
				if err := writer.Write(exportRow(entry)); err != nil {
					return err
				}
			}
			writer.Flush()
			return writer.Error()
		})
		if err != nil {
			s.logger.WithError(err).Error("Audit log export aborted")
			return
		}

		writer.Flush()
	})

	return nil
}

func (s *exportAuditLogsHandler) recordExport(c *fiber.Ctx) {
	adminID, _ := c.Locals(middleware.AdminIDContextKey).(string)
	adminEmail, _ := c.Locals(middleware.AdminEmailContextKey).(string)

	entry := &auditlog.AuditLog{
		AdminID:    adminID,
		AdminEmail: adminEmail,
		Action:     auditlog.ActionExport,
		Category:   auditlog.CategoryAdminAction,
		Resource:   "audit_logs",
		IPAddress:  c.IP(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	}
	if err := s.repo.Save(c.Context(), entry); err != nil {
		s.logger.WithError(err).Error("Failed to record audit export")
	}
}

func exportRow(entry auditlog.AuditLog) []string {
	resourceID := ""
	if entry.ResourceID != nil {
		resourceID = *entry.ResourceID
	}
	return []string{
		entry.ID.String(),
		entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.AdminID,
		entry.AdminEmail,
		entry.Action,
		entry.Resource,
		resourceID,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
	}
}
