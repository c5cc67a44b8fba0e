package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	handlers "github.com/injectguard/injectguard/pkg/handlers/http"
	"github.com/injectguard/injectguard/pkg/middleware"

	"github.com/sirupsen/logrus"

	"github.com/injectguard/injectguard/pkg/config"
)

type (
	AdminServerDI struct {
		MiddlewareTransport middleware.Transport
		HandlerTransport    handlers.HandlerTransport
		Config              *config.Config
		Logger              *logrus.Logger
	}
	AdminServer struct {
		*BaseServer
		middlewareTransport middleware.Transport
		handlerTransport    handlers.HandlerTransport
	}
)

func NewAdminServer(di AdminServerDI) *AdminServer {
	return &AdminServer{
		BaseServer:          NewBaseServer(di.Config, di.Logger),
		middlewareTransport: di.MiddlewareTransport,
		handlerTransport:    di.HandlerTransport,
	}
}

func (s *AdminServer) Run() error {
	// Set up routes
	s.setupRoutes()
	s.setupHealthCheck()
	s.setupMetricsEndpoint()
	// Start the server
	addr := fmt.Sprintf(":%d", s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("Starting admin server")
	return s.Router.Listen(addr)
}

func (s *AdminServer) setupRoutes() {
	baseRouter := s.Router.Group("")
	s.addRoutes(baseRouter)
}

func (s *AdminServer) addRoutes(router fiber.Router) {
	v1 := router.Group("/api/v1")
	v1.Use(s.middlewareTransport.AuthMiddleware.Middleware())
	{
		// Alert ingestion carries raw attack payloads; the guard would
		// block its own reports.
		v1.Post("/alerts", s.handlerTransport.ProcessAlertHandler.Handle)

		attempts := v1.Group("/attempts")
		attempts.Use(s.middlewareTransport.GuardMiddleware.Middleware())
		{
			attempts.Get("", s.handlerTransport.ListAttemptsHandler.Handle)
		}

		v1.Post("/retention", s.handlerTransport.RetentionHandler.Handle)

		audit := v1.Group("/audit")
		audit.Use(s.middlewareTransport.GuardMiddleware.Middleware())
		{
			audit.Get("/export", s.handlerTransport.ExportAuditLogsHandler.Handle)
		}
	}
}

func (s *AdminServer) Shutdown() error {
	return s.Router.Shutdown()
}
