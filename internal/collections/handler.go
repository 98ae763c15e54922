package collections

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the provider-facing notification webhook.
type Handler struct {
	service *Service
}

// NewHandler constructs a collections handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Notify receives a paybill payment notification. Rejections still return
// 200 with a negative acknowledgement; only persistence failures return 500
// so the provider retries.
func (h *Handler) Notify(c *fiber.Ctx) error {
	var n Notification
	if err := c.BodyParser(&n); err != nil {
		if err := h.service.RecordMalformed(c.UserContext(), c.Body()); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "retry")
		}
		return c.JSON(Rejected("malformed payload"))
	}
	ack, err := h.service.Handle(c.UserContext(), n, c.Body())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "retry")
	}
	return c.JSON(ack)
}
