package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/injectguard/injectguard/pkg/guard"
)

type guardMiddleware struct {
	guard *guard.Guard
}

// NewGuardMiddleware mounts the injection guard on a router group. The
// endpoint label is taken from the request path of whatever route it
// protects.
func NewGuardMiddleware(g *guard.Guard) Middleware {
	return &guardMiddleware{guard: g}
}

func (m *guardMiddleware) Middleware() fiber.Handler {
	return m.guard.Middleware("")
}
