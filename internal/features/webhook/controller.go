package webhook

import (
	"strconv"

	"go-venue/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type WebhookController struct {
	Service WebhookService
}

func NewWebhookController(service WebhookService) *WebhookController {
	return &WebhookController{Service: service}
}

// HandleEvent godoc
func (ctrl *WebhookController) HandleEvent(c *fiber.Ctx) error {
	var event Event
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := ctrl.Service.ProcessEvent(c.Context(), &event)
	if err != nil {
		return c.Status(api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": result,
	})
}

// HandleBulk godoc
func (ctrl *WebhookController) HandleBulk(c *fiber.Ctx) error {
	var bulk BulkEvent
	if err := c.BodyParser(&bulk); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := ctrl.Service.ProcessBulk(c.Context(), &bulk)
	if err != nil {
		return c.Status(api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": result,
	})
}

// ListDeliveries godoc
func (ctrl *WebhookController) ListDeliveries(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)

	deliveries, err := ctrl.Service.ListDeliveries(c.Context(), limit)
	if err != nil {
		return c.Status(api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": deliveries,
	})
}
