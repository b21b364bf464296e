package stats

import (
	"go-venue/internal/common/api"
	"go-venue/internal/config"
	"go-venue/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type StatsApi struct {
	controller *StatsController
	config     *config.Config
}

func NewStatsApi(controller *StatsController, config *config.Config) api.Route {
	return &StatsApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers the reporting routes
func (h *StatsApi) Setup(app *fiber.App) {
	group := app.Group("/api/monitoring", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/stats", h.controller.GetStats)
	group.Get("/issues", h.controller.GetIssues)
	group.Get("/performance", h.controller.GetPerformance)
	group.Get("/report/export", h.controller.ExportReport)
}
