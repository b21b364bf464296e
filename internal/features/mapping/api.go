package mapping

import (
	"go-venue/internal/common/api"
	"go-venue/internal/config"
	"go-venue/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type MappingApi struct {
	controller *MappingController
	config     *config.Config
}

func NewMappingApi(controller *MappingController, config *config.Config) api.Route {
	return &MappingApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers the administrative mapping routes
func (h *MappingApi) Setup(app *fiber.App) {
	group := app.Group("/api/mappings", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/", h.controller.CreateMapping)
	group.Get("/", h.controller.ListMappings)
	group.Get("/duplicates", h.controller.ListDuplicates)
	group.Post("/bulk-status", h.controller.BulkUpdateStatus)
	group.Get("/:id", h.controller.GetMapping)
	group.Put("/:id", h.controller.UpdateMapping)
	group.Delete("/:id", h.controller.DeleteMapping)
	group.Post("/:id/deactivate", h.controller.DeactivateMapping)
}
