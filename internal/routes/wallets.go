package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/satsplit/satsplit/internal/reconcile"
	"github.com/satsplit/satsplit/internal/subwallet"
)

// RegisterWalletRoutes wires sub-wallet CRUD, funding and read views.
func RegisterWalletRoutes(r fiber.Router, h *subwallet.Handler, rh *reconcile.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets", h.List)
	r.Get("/wallets/:walletId", h.Get)
	r.Delete("/wallets/:walletId", h.Delete)
	r.Post("/wallets/:walletId/fund", h.Fund)
	r.Get("/wallets/:walletId/balance", rh.WalletBalance)
	r.Get("/wallets/:walletId/transactions", rh.WalletTransactions)
}
