package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/sirupsen/logrus"
)

const maxPageSize = 500

type listAttemptsHandler struct {
	logger *logrus.Logger
	repo   attempt.Repository
}

// NewListAttemptsHandler serves the forensic listing: newest attempts first,
// filterable by type, severity and IP fragment, with aggregate stats computed
// from the store on every call.
func NewListAttemptsHandler(logger *logrus.Logger, repo attempt.Repository) Handler {
	return &listAttemptsHandler{
		logger: logger,
		repo:   repo,
	}
}

func (s *listAttemptsHandler) Handle(c *fiber.Ctx) error {
	filter := attempt.Filter{
		Type:       attempt.Kind(c.Query("type")),
		Severity:   attempt.Severity(c.Query("severity")),
		IPContains: c.Query("ip"),
	}
	// Clamp here so the echoed pagination always matches the rows served.
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > maxPageSize {
		limit = 50
	}

	attempts, total, err := s.repo.Query(c.Context(), filter, page, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list injection attempts")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list attempts"})
	}

	stats, err := s.repo.Stats(c.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to compute attempt stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute stats"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"attempts": attempts,
		"total":    total,
		"page":     page,
		"limit":    limit,
		"stats":    stats,
	})
}
