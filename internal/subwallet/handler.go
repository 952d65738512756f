package subwallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes sub-wallet CRUD and funding endpoints.
type Handler struct {
	ledger *Ledger
}

// NewHandler builds a sub-wallet HTTP handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type createRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	BudgetMsat  int64    `json:"budget_msat"`
}

type fundRequest struct {
	AmountMsat int64 `json:"amount_msat"`
}

type walletResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Permissions  []string  `json:"permissions,omitempty"`
	BudgetMsat   int64     `json:"budget_msat,omitempty"`
	FundingMsat  int64     `json:"funding_msat"`
	SpentMsat    int64     `json:"spent_msat"`
	ReceivedMsat int64     `json:"received_msat"`
	BalanceMsat  int64     `json:"balance_msat"`
	CreatedAt    time.Time `json:"created_at"`
	Status       string    `json:"status"`
}

func toResponse(w SubWallet) walletResponse {
	return walletResponse{
		ID:           w.ID,
		Name:         w.Name,
		Permissions:  w.Permissions,
		BudgetMsat:   w.BudgetMsat,
		FundingMsat:  w.FundingMsat,
		SpentMsat:    w.SpentMsat,
		ReceivedMsat: w.ReceivedMsat,
		BalanceMsat:  w.BalanceMsat(),
		CreatedAt:    w.CreatedAt,
		Status:       w.Status,
	}
}

// Create provisions a sub-wallet under the active account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	w, err := h.ledger.Create(c.UserContext(), Config{
		Name:        req.Name,
		Permissions: req.Permissions,
		BudgetMsat:  req.BudgetMsat,
	})
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			return fiber.NewError(http.StatusConflict, "no wallet account is active")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// List returns all sub-wallets in creation order.
func (h *Handler) List(c *fiber.Ctx) error {
	wallets := h.ledger.List()
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toResponse(w))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"wallets": out})
}

// Get returns one sub-wallet.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, ok := h.ledger.Get(c.Params("walletId"))
	if !ok {
		return fiber.NewError(http.StatusNotFound, "sub-wallet not found")
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}

// Delete removes a sub-wallet entirely.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.ledger.Delete(c.UserContext(), c.Params("walletId")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "sub-wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// Fund allocates an amount from the shared balance to the sub-wallet.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req fundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	w, err := h.ledger.Fund(c.UserContext(), c.Params("walletId"), req.AmountMsat)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "sub-wallet not found")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}
