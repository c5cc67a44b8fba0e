package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/injectguard/injectguard/pkg/alert"
	"github.com/injectguard/injectguard/pkg/detection"
	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/sirupsen/logrus"
)

type processAlertRequest struct {
	Type         string  `json:"type"`
	Severity     string  `json:"severity"`
	Pattern      string  `json:"pattern"`
	Field        string  `json:"field"`
	MatchedValue string  `json:"matched_value"`
	Endpoint     string  `json:"endpoint"`
	Method       string  `json:"method"`
	IPAddress    string  `json:"ip_address"`
	UserAgent    string  `json:"user_agent"`
	UserID       *string `json:"user_id"`
}

type processAlertHandler struct {
	logger  *logrus.Logger
	service alert.Service
}

// NewProcessAlertHandler accepts detections reported by external sensors
// (sidecars, edge proxies) and runs them through the same pipeline the
// in-process guard uses.
func NewProcessAlertHandler(logger *logrus.Logger, service alert.Service) Handler {
	return &processAlertHandler{
		logger:  logger,
		service: service,
	}
}

func (s *processAlertHandler) Handle(c *fiber.Ctx) error {
	var req processAlertRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.WithError(err).Error("Failed to parse alert request")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Type == "" || req.Severity == "" || req.IPAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "type, severity and ip_address are required",
		})
	}
	severity := attempt.Severity(req.Severity)
	if !severity.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid severity"})
	}

	detections := []detection.Detection{
		{
			Field:        req.Field,
			MatchedValue: req.MatchedValue,
			Kind:         attempt.Kind(req.Type),
			Severity:     severity,
			Pattern:      req.Pattern,
		},
	}
	reqCtx := alert.RequestContext{
		Endpoint:  req.Endpoint,
		Method:    req.Method,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		UserID:    req.UserID,
	}

	result, err := s.service.Process(c.Context(), detections, reqCtx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to process alert")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process alert"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"attempt_id": result.AttemptID,
		"alert_sent": result.AlertSent,
	})
}
