package partner

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes operator-facing partner endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a partner handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type onboardRequest struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	APIKey    string `json:"api_key"`
}

// Onboard registers a partner. The API key is stored hashed and never
// returned again.
func (h *Handler) Onboard(c *fiber.Ctx) error {
	var req onboardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	p, err := h.service.Onboard(c.UserContext(), OnboardInput{
		Name:      req.Name,
		ShortName: req.ShortName,
		APIKey:    req.APIKey,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":         p.ID,
		"name":       p.Name,
		"short_name": p.ShortName,
		"is_active":  p.IsActive,
	})
}

// Get fetches a partner by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "partner not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"id":         p.ID,
		"name":       p.Name,
		"short_name": p.ShortName,
		"is_active":  p.IsActive,
		"created_at": p.CreatedAt,
	})
}
