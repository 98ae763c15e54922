package wallet

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/cbsvault/paymentvault/internal/ledger"
)

// Handler exposes the wallet query and manual-adjustment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance returns the authenticated partner's wallet.
func (h *Handler) Balance(c *fiber.Ctx) error {
	partnerID, _ := c.Locals("partner_id").(string)
	w, err := h.service.Balance(c.UserContext(), partnerID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"wallet_id": w.ID,
		"balance":   w.CurrentBalance,
		"currency":  w.Currency,
	})
}

// Transactions lists the authenticated partner's recent ledger entries.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	partnerID, _ := c.Locals("partner_id").(string)
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	txs, err := h.service.Transactions(c.UserContext(), partnerID, limit)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(txs))
	for _, tx := range txs {
		out = append(out, fiber.Map{
			"id":             tx.ID,
			"type":           tx.Type,
			"amount":         tx.Amount,
			"reference":      tx.Reference,
			"status":         tx.Status,
			"balance_before": tx.BalanceBefore,
			"balance_after":  tx.BalanceAfter,
			"created_at":     tx.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"transactions": out})
}

type adjustRequest struct {
	PartnerID     string `json:"partner_id"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
	Reference     string `json:"reference"`
	AllowNegative bool   `json:"allow_negative"`
}

// ManualCredit adds funds to a partner wallet from the dashboard.
func (h *Handler) ManualCredit(c *fiber.Ctx) error {
	return h.adjust(c, h.service.ManualCredit)
}

// ManualDebit removes funds from a partner wallet from the dashboard.
func (h *Handler) ManualDebit(c *fiber.Ctx) error {
	return h.adjust(c, h.service.ManualDebit)
}

func (h *Handler) adjust(c *fiber.Ctx, op func(context.Context, AdjustInput) (ledger.ApplyResult, error)) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := op(c.UserContext(), AdjustInput{
		PartnerID:     req.PartnerID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		Reference:     req.Reference,
		AllowNegative: req.AllowNegative,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be positive")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error":  "insufficient_funds",
				"reason": "insufficient balance for manual allocation",
			})
		case errors.Is(err, ledger.ErrAlreadyProcessed):
			return c.Status(http.StatusOK).JSON(fiber.Map{
				"transaction_id": res.TransactionID,
				"balance":        res.NewBalance,
				"duplicate":      true,
			})
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"balance":        res.NewBalance,
	})
}
