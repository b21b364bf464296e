package sync

import (
	"go-venue/internal/common/api"
	"go-venue/internal/config"
	"go-venue/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SyncApi struct {
	controller *SyncController
	config     *config.Config
}

func NewSyncApi(controller *SyncController, config *config.Config) api.Route {
	return &SyncApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all sync routes
func (h *SyncApi) Setup(app *fiber.App) {
	group := app.Group("/api/sync", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/trigger", h.controller.TriggerSync)
	group.Get("/health", h.controller.GetHealth)
	group.Get("/stats", h.controller.GetStats)
	group.Post("/cleanup", h.controller.Cleanup)
}
