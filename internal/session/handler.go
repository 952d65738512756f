package session

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/satsplit/satsplit/internal/nwc"
)

// Handler exposes session lifecycle endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler builds a session HTTP handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type connectRequest struct {
	Descriptor string `json:"descriptor"`
}

// Connect establishes the wallet connection from an NWC descriptor.
func (h *Handler) Connect(c *fiber.Ctx) error {
	var req connectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	identity, err := h.manager.Connect(c.UserContext(), req.Descriptor)
	if err != nil {
		if errors.Is(err, nwc.ErrConnection) {
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"account_id": identity})
}

// Status reports the current connection state.
func (h *Handler) Status(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"connected":  h.manager.IsConnected(),
		"account_id": h.manager.Identity(),
	})
}

// Disconnect drops the session while retaining sub-wallet data.
func (h *Handler) Disconnect(c *fiber.Ctx) error {
	if err := h.manager.Disconnect(c.UserContext()); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}
