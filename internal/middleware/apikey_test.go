package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newGuardedApp() *fiber.App {
	app := fiber.New()
	app.Use(APIKey("s3cret"))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app
}

func TestAPIKeyAcceptsMatchingToken(t *testing.T) {
	app := newGuardedApp()

	req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer s3cret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAPIKeyRejectsMissingOrWrongToken(t *testing.T) {
	app := newGuardedApp()

	cases := map[string]string{
		"missing": "",
		"wrong":   "Bearer nope",
		"scheme":  "Basic s3cret",
	}
	for name, header := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
		if header != "" {
			req.Header.Set(fiber.HeaderAuthorization, header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, resp.StatusCode)
		}
	}
}
