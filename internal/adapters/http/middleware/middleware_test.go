package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"loanbook/internal/config"
	"loanbook/internal/pkg/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitedApp(limits config.RateLimitConfig) *fiber.App {
	cfg := &config.Config{AppMode: "dev", Service: config.ServiceLoan, RateLimit: limits}

	app := fiber.New()
	Setup(app, cfg, Options{Logger: logging.Discard()})
	app.Get("/open", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/protected", RequireAuth(newVerifier()), CallerRateLimiter(cfg, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func status(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestSetup_AnonymousRequestsLimitedPerIP(t *testing.T) {
	app := rateLimitedApp(config.RateLimitConfig{Max: 2, Window: time.Minute, CallerMax: 100})

	assert.Equal(t, fiber.StatusOK, status(t, app, "/open", ""))
	assert.Equal(t, fiber.StatusOK, status(t, app, "/open", ""))
	assert.Equal(t, fiber.StatusTooManyRequests, status(t, app, "/open", ""))
}

// A peer service forwards many users' calls from one address; only the
// per-user budget applies to them.
func TestSetup_BearerRequestsSkipIPLimit(t *testing.T) {
	app := rateLimitedApp(config.RateLimitConfig{Max: 2, Window: time.Minute, CallerMax: 100})

	for i := 0; i < 60; i++ {
		require.Equal(t, fiber.StatusOK, status(t, app, "/protected", "officer"), "request %d", i+1)
	}
}

func TestCallerRateLimiter_CountsEachUserSeparately(t *testing.T) {
	app := rateLimitedApp(config.RateLimitConfig{Max: 100, Window: time.Minute, CallerMax: 3})

	for i := 0; i < 3; i++ {
		require.Equal(t, fiber.StatusOK, status(t, app, "/protected", "reader"))
	}
	assert.Equal(t, fiber.StatusTooManyRequests, status(t, app, "/protected", "reader"))
	assert.Equal(t, fiber.StatusOK, status(t, app, "/protected", "officer"))
}
