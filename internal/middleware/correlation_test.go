package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-rubric-api/internal/middleware"
)

func newCorrelationApp(seen *string) *fiber.App {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		*seen = middleware.CorrelationIDFromContext(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestCorrelationIDKeepsIncomingHeader(t *testing.T) {
	var seen string
	app := newCorrelationApp(&seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "grading-run-17")
	resp, err := app.Test(req)
	require.NoError(t, err)

	require.Equal(t, "grading-run-17", resp.Header.Get("X-Correlation-ID"))
	require.Equal(t, "grading-run-17", seen)
}

func TestCorrelationIDReplacesUnusableHeader(t *testing.T) {
	var seen string
	app := newCorrelationApp(&seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", strings.Repeat("a", 200))
	resp, err := app.Test(req)
	require.NoError(t, err)

	issued := resp.Header.Get("X-Correlation-ID")
	_, parseErr := uuid.Parse(issued)
	require.NoError(t, parseErr)
	require.Equal(t, issued, seen)
}

func TestCorrelationIDFallsBackToRequestID(t *testing.T) {
	var seen string
	app := newCorrelationApp(&seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-9")
	_, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-9", seen)
}
