package disbursement

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes disbursement endpoints: partner-facing initiation and the
// provider-facing result/timeout webhooks.
type Handler struct {
	service    *Service
	reconciler *Reconciler
}

// NewHandler constructs a disbursement handler.
func NewHandler(service *Service, reconciler *Reconciler) *Handler {
	return &Handler{service: service, reconciler: reconciler}
}

type initiateRequest struct {
	Amount        int64  `json:"amount"`
	MSISDN        string `json:"msisdn"`
	RecipientName string `json:"recipient_name"`
	Origin        string `json:"origin"`
	Remarks       string `json:"remarks"`
}

// Initiate submits a payout for the authenticated partner.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	partnerID, _ := c.Locals("partner_id").(string)

	res, err := h.service.Initiate(c.UserContext(), InitiateInput{
		PartnerID:     partnerID,
		Amount:        req.Amount,
		MSISDN:        req.MSISDN,
		RecipientName: req.RecipientName,
		Origin:        req.Origin,
		Remarks:       req.Remarks,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			return fiber.NewError(http.StatusBadRequest, "amount and msisdn are required")
		case errors.Is(err, ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient wallet balance")
		case errors.Is(err, ErrExternalCallFailed):
			return fiber.NewError(http.StatusBadGateway, "provider unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":              res.ID,
		"conversation_id": res.ConversationID,
		"status":          res.Status,
		"amount":          res.Amount,
	})
}

// Get returns the current state of a disbursement request.
func (h *Handler) Get(c *fiber.Ctx) error {
	req, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "disbursement not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"id":              req.ID,
		"conversation_id": req.ConversationID,
		"status":          req.Status,
		"amount":          req.Amount,
		"result_code":     req.ResultCode,
		"result_desc":     req.ResultDesc,
		"receipt":         req.TransactionReceipt,
	})
}

// ResultCallback receives the provider's result webhook. The provider offers
// no authentication; the body is acknowledged with 200 "OK" once the outcome
// is durably persisted, on any payload.
func (h *Handler) ResultCallback(c *fiber.Ctx) error {
	cb, err := ParseResult(c.Body())
	if err != nil {
		// Malformed payloads are still acknowledged so the provider stops
		// retrying a body that will never parse, but only once the raw
		// bytes are kept for forensic replay.
		if err := h.reconciler.RecordMalformed(c.UserContext(), "disbursement_result", c.Body()); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "retry")
		}
		return c.SendString("OK")
	}
	if err := h.reconciler.HandleResult(c.UserContext(), cb); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "retry")
	}
	return c.SendString("OK")
}

// TimeoutCallback receives the provider's queue-timeout webhook.
func (h *Handler) TimeoutCallback(c *fiber.Ctx) error {
	cb, err := ParseTimeout(c.Body())
	if err != nil {
		if err := h.reconciler.RecordMalformed(c.UserContext(), "disbursement_timeout", c.Body()); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "retry")
		}
		return c.SendString("OK")
	}
	if err := h.reconciler.HandleTimeout(c.UserContext(), cb); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "retry")
	}
	return c.SendString("OK")
}
