package webhook

import (
	"go-venue/internal/common/api"
	"go-venue/internal/config"
	"go-venue/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WebhookApi struct {
	controller *WebhookController
	config     *config.Config
}

func NewWebhookApi(controller *WebhookController, config *config.Config) api.Route {
	return &WebhookApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers the webhook ingestion routes
func (h *WebhookApi) Setup(app *fiber.App) {
	group := app.Group("/api/webhooks", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/events", h.controller.HandleEvent)
	group.Post("/events/bulk", h.controller.HandleBulk)
	group.Get("/deliveries", h.controller.ListDeliveries)
}
