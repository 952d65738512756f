package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/satsplit/satsplit/internal/reconcile"
)

// RegisterAccountRoutes wires account-wide reconciliation and balance
// endpoints.
func RegisterAccountRoutes(r fiber.Router, h *reconcile.Handler) {
	r.Post("/reconcile", h.Sync)
	r.Get("/account/balance", h.AccountBalance)
}
