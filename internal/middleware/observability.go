package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-api/internal/observability"
)

// Observability records request metrics and an access log line for every path under prefix. The
// scrape endpoint and anything else outside prefix is not measured.
func Observability(logger zerolog.Logger, prefix string) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), prefix) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		// A returned *fiber.Error is written later by the app's error handler.
		status := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); ok {
			status = fiberErr.Code
		}

		observeRequest(c.Method(), routeTemplate(c), status, time.Since(start))
		accessLog(logger, c, status, time.Since(start))

		return err
	}
}

func observeRequest(method, route string, status int, elapsed time.Duration) {
	statusLabel := strconv.Itoa(status)
	observability.APIRequests().WithLabelValues(method, route, statusLabel).Inc()
	observability.APILatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
	if status >= fiber.StatusBadRequest {
		observability.APIErrors().WithLabelValues(method, route, statusLabel).Inc()
	}
}

func accessLog(logger zerolog.Logger, c *fiber.Ctx, status int, elapsed time.Duration) {
	var event *zerolog.Event
	switch {
	case status >= fiber.StatusInternalServerError:
		event = logger.Error()
	case status >= fiber.StatusBadRequest:
		event = logger.Warn()
	default:
		event = logger.Debug()
	}

	event = event.
		Str("correlation_id", GetCorrelationID(c)).
		Str("method", c.Method()).
		Str("route", routeTemplate(c)).
		Int("status", status).
		Dur("latency", elapsed)
	if userID, ok := c.Locals("user_id").(uint); ok {
		event = event.Uint("user_id", userID)
	}
	if draftID := c.Params("id"); draftID != "" && strings.Contains(c.Path(), "/drafts/") {
		event = event.Str("draft_id", draftID)
	}
	event.Msg("request")
}

// routeTemplate keeps metric cardinality bounded by labelling with the registered path.
func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return "unmatched"
}
