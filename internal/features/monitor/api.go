package monitor

import (
	"go-venue/internal/common/api"
	"go-venue/internal/config"
	"go-venue/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type MonitorApi struct {
	controller *MonitorController
	config     *config.Config
}

func NewMonitorApi(controller *MonitorController, config *config.Config) api.Route {
	return &MonitorApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers the monitoring routes
func (h *MonitorApi) Setup(app *fiber.App) {
	group := app.Group("/api/monitoring", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/health", h.controller.GetHealth)
	group.Get("/alerts", h.controller.ListAlerts)
	group.Post("/alerts/:id/resolve", h.controller.ResolveAlert)

	group.Get("/alerts/live", websocket.New(h.controller.StreamAlerts))
}
