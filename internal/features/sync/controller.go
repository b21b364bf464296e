package sync

import (
	"strconv"

	common_api "go-venue/internal/common/api"
	"go-venue/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	Service SyncService
}

func NewSyncController(service SyncService) *SyncController {
	return &SyncController{Service: service}
}

type triggerRequest struct {
	ExternalSystem models.ExternalSystem     `json:"external_system"`
	EntityType     models.InternalEntityType `json:"entity_type"`
	ExternalID     string                    `json:"external_id,omitempty"`
	Options        SyncOptions               `json:"options"`
}

// TriggerSync runs a single-entity sync when external_id is given, otherwise
// an entity-type-wide one.
func (ctrl *SyncController) TriggerSync(c *fiber.Ctx) error {
	var req triggerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ExternalID != "" {
		result, err := ctrl.Service.SyncEntity(c.Context(), req.ExternalSystem, req.ExternalID, req.EntityType, req.Options)
		if err != nil {
			return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"data": result})
	}

	result, err := ctrl.Service.SyncEntities(c.Context(), req.ExternalSystem, req.EntityType, req.Options)
	if err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"data": result})
}

// GetHealth godoc
func (ctrl *SyncController) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": ctrl.Service.HealthCheck(),
	})
}

// GetStats godoc
func (ctrl *SyncController) GetStats(c *fiber.Ctx) error {
	stats, err := ctrl.Service.GetSyncStats(c.Context(),
		models.ExternalSystem(c.Query("system")),
		models.InternalEntityType(c.Query("entity_type")))
	if err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Cleanup godoc
func (ctrl *SyncController) Cleanup(c *fiber.Ctx) error {
	days := 0
	if q := c.Query("days"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "days must be an integer",
			})
		}
		days = parsed
	}

	removed, err := ctrl.Service.Cleanup(c.Context(), days)
	if err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Cleanup finished",
		"removed": removed,
	})
}
