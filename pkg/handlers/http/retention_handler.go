package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/injectguard/injectguard/pkg/domain/auditlog"
	"github.com/injectguard/injectguard/pkg/retention"
	"github.com/sirupsen/logrus"
)

type retentionHandler struct {
	logger    *logrus.Logger
	manager   *retention.Manager
	auditLogs auditlog.Repository
}

// NewRetentionHandler triggers a rotation on demand, outside the schedule.
func NewRetentionHandler(logger *logrus.Logger, manager *retention.Manager, auditLogs auditlog.Repository) Handler {
	return &retentionHandler{
		logger:    logger,
		manager:   manager,
		auditLogs: auditLogs,
	}
}

func (s *retentionHandler) Handle(c *fiber.Ctx) error {
	report, err := s.manager.Rotate(c.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to run retention rotation")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to run retention"})
	}

	remaining, err := s.auditLogs.Count(c.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to count remaining audit logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count audit logs"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deleted": report,
		"stats": fiber.Map{
			"audit_logs_remaining": remaining,
		},
	})
}
