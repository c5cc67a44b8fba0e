package middleware_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/injectguard/injectguard/pkg/config"
	"github.com/injectguard/injectguard/pkg/infra/jwt"
	"github.com/injectguard/injectguard/pkg/middleware"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T, manager jwt.Manager) *fiber.App {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New()
	auth := middleware.NewAdminAuthMiddleware(logger, manager)
	app.Get("/protected", auth.Middleware(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"admin_id":    c.Locals(middleware.AdminIDContextKey),
			"admin_email": c.Locals(middleware.AdminEmailContextKey),
		})
	})
	return app
}

func TestAdminAuthMiddleware(t *testing.T) {
	manager := jwt.NewJwtManager(&config.ServerConfig{SecretKey: "test-secret"})
	app := testApp(t, manager)

	t.Run("rejects missing header", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects non-bearer header", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic abc123")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects forged token", func(t *testing.T) {
		forged := jwt.NewJwtManager(&config.ServerConfig{SecretKey: "other-secret"})
		token, err := forged.CreateToken("admin-1", "admin@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects unsigned token", func(t *testing.T) {
		claims := jwtlib.RegisteredClaims{Subject: "admin-1"}
		token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).
			SignedString(jwtlib.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		claims := jwtlib.RegisteredClaims{
			Subject:   "admin-1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(-time.Hour)),
		}
		token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).
			SignedString([]byte("test-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("accepts valid token and exposes identity", func(t *testing.T) {
		token, err := manager.CreateToken("admin-1", "admin@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "admin-1")
		assert.Contains(t, string(body), "admin@example.com")
	})
}
