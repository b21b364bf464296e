package mapping

import (
	"strconv"

	common_api "go-venue/internal/common/api"
	"go-venue/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type MappingController struct {
	Service MappingService
}

func NewMappingController(service MappingService) *MappingController {
	return &MappingController{Service: service}
}

// CreateMapping godoc
func (ctrl *MappingController) CreateMapping(c *fiber.Ctx) error {
	var m Mapping
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	m.IsActive = true

	if err := ctrl.Service.CreateMapping(c.Context(), &m); err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Mapping created successfully",
		"data":    m,
	})
}

// GetMapping godoc
func (ctrl *MappingController) GetMapping(c *fiber.Ctx) error {
	m, err := ctrl.Service.GetMapping(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(m)
}

// UpdateMapping godoc
func (ctrl *MappingController) UpdateMapping(c *fiber.Ctx) error {
	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.UpdateMapping(c.Context(), c.Params("id"), updates); err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mapping updated successfully",
	})
}

// DeleteMapping godoc
func (ctrl *MappingController) DeleteMapping(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteMapping(c.Context(), c.Params("id")); err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Mapping deleted successfully",
	})
}

// DeactivateMapping godoc
func (ctrl *MappingController) DeactivateMapping(c *fiber.Ctx) error {
	if err := ctrl.Service.DeactivateMapping(c.Context(), c.Params("id")); err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Mapping deactivated",
	})
}

// ListMappings godoc
func (ctrl *MappingController) ListMappings(c *fiber.Ctx) error {
	var (
		mappings []Mapping
		err      error
	)

	switch {
	case c.Query("active") == "true":
		mappings, err = ctrl.Service.ListActive(c.Context())
	case c.Query("conflicts") == "true":
		mappings, err = ctrl.Service.ListConflicts(c.Context())
	case c.Query("errors") == "true":
		mappings, err = ctrl.Service.ListErrors(c.Context())
	case c.Query("outdated_days") != "":
		days, convErr := strconv.Atoi(c.Query("outdated_days"))
		if convErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "outdated_days must be an integer",
			})
		}
		mappings, err = ctrl.Service.ListOutdated(c.Context(), days)
	case c.Query("system") != "":
		mappings, err = ctrl.Service.ListBySystem(c.Context(), models.ExternalSystem(c.Query("system")))
	case c.Query("entity_type") != "" && c.Query("entity_id") != "":
		mappings, err = ctrl.Service.ListByInternalEntity(c.Context(),
			models.InternalEntityType(c.Query("entity_type")), c.Query("entity_id"))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "one of system, entity_type+entity_id, active, conflicts, errors or outdated_days is required",
		})
	}

	if err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": mappings,
	})
}

// BulkUpdateStatus godoc
func (ctrl *MappingController) BulkUpdateStatus(c *fiber.Ctx) error {
	var req struct {
		IDs         []string `json:"ids"`
		HasConflict bool     `json:"has_conflict"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	updated, err := ctrl.Service.BulkUpdateStatus(c.Context(), req.IDs, req.HasConflict)
	if err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Bulk status update applied",
		"updated": updated,
	})
}

// ListDuplicates godoc
func (ctrl *MappingController) ListDuplicates(c *fiber.Ctx) error {
	groups, err := ctrl.Service.FindDuplicates(c.Context())
	if err != nil {
		return c.Status(common_api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"data": groups,
	})
}
