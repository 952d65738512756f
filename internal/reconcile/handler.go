package reconcile

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/satsplit/satsplit/internal/nwc"
	"github.com/satsplit/satsplit/internal/subwallet"
)

// Handler exposes reconciliation and balance endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler builds a reconciliation HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Sync runs a reconciliation pass for the active account.
func (h *Handler) Sync(c *fiber.Ctx) error {
	report, err := h.engine.Sync(c.UserContext())
	if err != nil {
		if errors.Is(err, subwallet.ErrNotConnected) {
			return fiber.NewError(http.StatusConflict, "no wallet account is active")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(report)
}

// WalletBalance resolves one sub-wallet's displayable balance. An unknown
// balance is a sentinel in the payload, not an error.
func (h *Handler) WalletBalance(c *fiber.Ctx) error {
	balance, known, err := h.engine.WalletBalance(c.UserContext(), c.Params("walletId"))
	if err != nil {
		if errors.Is(err, subwallet.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "sub-wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id":    c.Params("walletId"),
		"balance_msat": balance,
		"known":        known,
	})
}

// WalletTransactions lists the remote transactions attributed to a
// sub-wallet.
func (h *Handler) WalletTransactions(c *fiber.Ctx) error {
	txs, err := h.engine.WalletTransactions(c.UserContext(), c.Params("walletId"))
	if err != nil {
		switch {
		case errors.Is(err, subwallet.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "sub-wallet not found")
		case errors.Is(err, subwallet.ErrNotConnected):
			return fiber.NewError(http.StatusConflict, "no wallet account is active")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": txs})
}

// AccountBalance returns the raw remote balance, possibly cached.
func (h *Handler) AccountBalance(c *fiber.Ctx) error {
	balance, cached, err := h.engine.AccountBalance(c.UserContext())
	if err != nil {
		switch {
		case errors.Is(err, subwallet.ErrNotConnected):
			return fiber.NewError(http.StatusConflict, "no wallet account is active")
		case errors.Is(err, nwc.ErrNetwork):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance_msat": balance,
		"cached":       cached,
	})
}
