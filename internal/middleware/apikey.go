package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// APIKey guards all routes behind a single bearer token. The bridge serves
// one wallet account, so a shared token replaces per-user authentication.
func APIKey(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || presented == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid bearer token")
		}
		return c.Next()
	}
}
