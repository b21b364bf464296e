package monitor

import (
	"net/http/httptest"
	"testing"

	"go-venue/internal/adapters"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMonitoringRoutesRequireAuth(t *testing.T) {
	svc := NewMonitorService(adapters.NewRegistry(), monitorConfig(), zap.NewNop())
	route := NewMonitorApi(NewMonitorController(svc), monitorConfig())

	app := fiber.New()
	route.Setup(app)

	for _, path := range []string{
		"/api/monitoring/health",
		"/api/monitoring/alerts",
		"/api/monitoring/alerts/live",
	} {
		req := httptest.NewRequest(fiber.MethodGet, path, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
}
