package stats

import (
	"fmt"
	"time"

	"go-venue/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type StatsController struct {
	Service StatsService
}

func NewStatsController(service StatsService) *StatsController {
	return &StatsController{Service: service}
}

// GetStats godoc
func (ctrl *StatsController) GetStats(c *fiber.Ctx) error {
	stats, err := ctrl.Service.GetMonitoringStats(c.Context())
	if err != nil {
		return c.Status(api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"data": stats,
	})
}

// GetIssues godoc
func (ctrl *StatsController) GetIssues(c *fiber.Ctx) error {
	issues, err := ctrl.Service.AnalyzeIssues(c.Context())
	if err != nil {
		return c.Status(api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"data": issues,
	})
}

// GetPerformance godoc
func (ctrl *StatsController) GetPerformance(c *fiber.Ctx) error {
	report, err := ctrl.Service.GetPerformanceReport(c.Context())
	if err != nil {
		return c.Status(api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"data": report,
	})
}

// ExportReport streams the monitoring report as an xlsx download.
func (ctrl *StatsController) ExportReport(c *fiber.Ctx) error {
	data, err := ctrl.Service.ExportReport(c.Context())
	if err != nil {
		return c.Status(api.StatusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	filename := fmt.Sprintf("monitoring-report-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}
