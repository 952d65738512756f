package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLog writes one structured log line per completed request.
func AccessLog(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		}
		if id, ok := c.Locals(RequestIDHeader).(string); ok && id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}

		if err != nil {
			logger.Error("request", append(attrs, slog.Any("error", err))...)
			return err
		}
		logger.Info("request", attrs...)
		return nil
	}
}
