package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/satsplit/satsplit/internal/session"
)

// RegisterSessionRoutes wires wallet connection lifecycle endpoints.
func RegisterSessionRoutes(r fiber.Router, h *session.Handler) {
	r.Post("/session", h.Connect)
	r.Get("/session", h.Status)
	r.Delete("/session", h.Disconnect)
}
