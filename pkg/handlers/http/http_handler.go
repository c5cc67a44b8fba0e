package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	// Alerts
	ProcessAlertHandler Handler

	// Attempts
	ListAttemptsHandler Handler

	// Retention
	RetentionHandler Handler

	// Audit
	ExportAuditLogsHandler Handler
}
