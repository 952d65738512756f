package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayPrefix      = "replay:v1:"
	pendingMarker     = "__pending__"

	replayStoreTimeout = 2 * time.Second
)

type replayRecord struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency replays a previously captured response when a client retries a
// mutating request with the same Idempotency-Key. Requests without the header
// pass through untouched; Lightning payments are not safely retryable, so
// clients that care must opt in.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyHeader)
		if key == "" {
			return c.Next()
		}
		cacheKey := replayPrefix + key

		ctx, cancel := context.WithTimeout(context.Background(), replayStoreTimeout)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			return replay(c, key, cached, logger)
		case !errors.Is(err, redis.Nil):
			logger.Error("replay lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "replay store failure")
		}

		if err := cache.SetNX(ctx, cacheKey, pendingMarker, ttl).Err(); err != nil {
			logger.Error("replay reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "replay store failure")
		}

		if err := c.Next(); err != nil {
			release(cache, cacheKey)
			return err
		}

		if err := capture(c, cache, cacheKey, ttl); err != nil {
			logger.Error("replay capture failed", slog.String("key", key), slog.Any("error", err))
			release(cache, cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "replay store failure")
		}
		return nil
	}
}

func replay(c *fiber.Ctx, key, cached string, logger *slog.Logger) error {
	if cached == pendingMarker {
		return fiber.NewError(fiber.StatusConflict, "duplicate request still processing")
	}

	var rec replayRecord
	if err := json.Unmarshal([]byte(cached), &rec); err != nil {
		logger.Warn("undecodable replay record", slog.String("key", key), slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}

	for header, value := range rec.Headers {
		if strings.EqualFold(header, fiber.HeaderContentLength) {
			continue
		}
		c.Set(header, value)
	}
	return c.Status(rec.Status).SendString(rec.Body)
}

func capture(c *fiber.Ctx, cache *redis.Client, cacheKey string, ttl time.Duration) error {
	rec := replayRecord{
		Status:  c.Response().StatusCode(),
		Body:    string(c.Response().Body()),
		Headers: map[string]string{},
	}
	c.Response().Header.VisitAll(func(k, v []byte) {
		rec.Headers[string(k)] = string(v)
	})

	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), replayStoreTimeout)
	defer cancel()
	return cache.Set(ctx, cacheKey, payload, ttl).Err()
}

func release(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), replayStoreTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey)
}
