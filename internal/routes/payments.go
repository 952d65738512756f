package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/satsplit/satsplit/internal/payments"
)

// RegisterPaymentRoutes wires payment and invoice endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/wallets/:walletId/payments", h.Send)
	r.Post("/wallets/:walletId/invoices", h.Receive)
}
