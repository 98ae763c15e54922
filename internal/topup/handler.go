package topup

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes top-up endpoints: partner-facing initiation and verify,
// plus the provider-facing callback.
type Handler struct {
	service *Service
}

// NewHandler constructs a top-up handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initiateRequest struct {
	MSISDN string `json:"msisdn"`
	Amount int64  `json:"amount"`
}

// Initiate pushes a top-up prompt to the customer's phone.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	partnerID, _ := c.Locals("partner_id").(string)

	rec, err := h.service.Initiate(c.UserContext(), InitiateInput{
		PartnerID: partnerID,
		MSISDN:    req.MSISDN,
		Amount:    req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			return fiber.NewError(http.StatusBadRequest, "amount and msisdn are required")
		case errors.Is(err, ErrExternalCallFailed):
			return fiber.NewError(http.StatusBadGateway, "provider unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(topupJSON(rec))
}

// Callback receives the provider's push-payment result webhook.
func (h *Handler) Callback(c *fiber.Ctx) error {
	cb, err := ParseCallback(c.Body())
	if err != nil {
		if err := h.service.RecordMalformed(c.UserContext(), c.Body()); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "retry")
		}
		return c.SendString("OK")
	}
	if err := h.service.HandleCallback(c.UserContext(), cb); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "retry")
	}
	return c.SendString("OK")
}

// Verify queries the provider for the top-up's status. A still-pending answer
// returns the record unchanged with 200; the caller retries later.
func (h *Handler) Verify(c *fiber.Ctx) error {
	rec, err := h.service.Verify(c.UserContext(), c.Params("id"))
	switch {
	case err == nil, errors.Is(err, ErrStillPending):
		return c.JSON(topupJSON(rec))
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "top-up not found")
	case errors.Is(err, ErrExternalCallFailed):
		return fiber.NewError(http.StatusBadGateway, "provider unavailable, still pending")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// Get returns the current state of a top-up.
func (h *Handler) Get(c *fiber.Ctx) error {
	rec, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "top-up not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(topupJSON(rec))
}

func topupJSON(rec Record) fiber.Map {
	return fiber.Map{
		"id":        rec.ID,
		"reference": rec.Reference,
		"status":    rec.Status,
		"amount":    rec.Amount,
		"receipt":   rec.Receipt,
	}
}
