package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/satsplit/satsplit/internal/lnurl"
	"github.com/satsplit/satsplit/internal/nwc"
	"github.com/satsplit/satsplit/internal/subwallet"
)

// Handler exposes payment and invoice endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sendRequest struct {
	Invoice    string `json:"invoice"`
	Address    string `json:"address"`
	AmountMsat int64  `json:"amount_msat"`
}

type receiveRequest struct {
	AmountMsat  int64  `json:"amount_msat"`
	Description string `json:"description"`
}

// Send pays an invoice or Lightning Address from a sub-wallet.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Send(c.UserContext(), SendInput{
		WalletID:   c.Params("walletId"),
		Invoice:    req.Invoice,
		Address:    req.Address,
		AmountMsat: req.AmountMsat,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"remote_id":       res.RemoteID,
		"payment_request": res.PaymentRequest,
		"amount_msat":     res.AmountMsat,
		"completed_at":    res.CompletedAt,
	})
}

// Receive issues an invoice whose settlement will be attributed to the
// sub-wallet.
func (h *Handler) Receive(c *fiber.Ctx) error {
	var req receiveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Receive(c.UserContext(), ReceiveInput{
		WalletID:    c.Params("walletId"),
		AmountMsat:  req.AmountMsat,
		Description: req.Description,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"payment_request": res.PaymentRequest,
		"remote_id":       res.RemoteID,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, subwallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "sub-wallet not found")
	case errors.Is(err, subwallet.ErrNotConnected):
		return fiber.NewError(http.StatusConflict, "no wallet account is active")
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient sub-wallet funds")
	case errors.Is(err, lnurl.ErrResolution):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, nwc.ErrProtocol), errors.Is(err, nwc.ErrNetwork):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
