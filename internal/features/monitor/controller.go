package monitor

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type MonitorController struct {
	Service MonitorService
}

func NewMonitorController(service MonitorService) *MonitorController {
	return &MonitorController{Service: service}
}

// GetHealth godoc
func (ctrl *MonitorController) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": ctrl.Service.GetHealthStatuses(),
	})
}

// ListAlerts godoc
func (ctrl *MonitorController) ListAlerts(c *fiber.Ctx) error {
	var resolved *bool
	if q := c.Query("resolved"); q != "" {
		val := q == "true"
		resolved = &val
	}

	return c.JSON(fiber.Map{
		"data": ctrl.Service.GetAlerts(resolved),
	})
}

// ResolveAlert godoc
func (ctrl *MonitorController) ResolveAlert(c *fiber.Ctx) error {
	if !ctrl.Service.ResolveAlert(c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Alert not found",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Alert resolved",
	})
}

// StreamAlerts pushes alerts to a websocket client as they are raised.
func (ctrl *MonitorController) StreamAlerts(c *websocket.Conn) {
	alerts, cancel := ctrl.Service.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain reads so we notice the client going away.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			payload, err := json.Marshal(alert)
			if err != nil {
				log.Println("marshal alert:", err)
				continue
			}
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Println("write alert:", err)
				return
			}
		case <-done:
			return
		}
	}
}
