package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-venue/internal/common/api"

	"go-venue/internal/adapters"
	"go-venue/internal/config"
	"go-venue/internal/database"
	"go-venue/internal/features/mapping"
	"go-venue/internal/features/monitor"
	"go-venue/internal/features/stats"
	sync_feature "go-venue/internal/features/sync"
	"go-venue/internal/features/webhook"
	"go-venue/internal/logger"
	"go-venue/internal/middleware"
	"go-venue/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d route groups\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	utils.SetSecret(cfg.JWTSecret)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, mappingRepo mapping.MappingRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := mappingRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure mapping indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// StartMonitor ties the health monitor's probe scheduler to the app lifecycle.
func StartMonitor(lc fx.Lifecycle, monitorService monitor.MonitorService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return monitorService.Start()
		},
		OnStop: func(ctx context.Context) error {
			return monitorService.Stop()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Adapter registry and the internal-side hook
			adapters.NewRegistry,
			adapters.NewShadowStateProvider,

			// Initialize Repository
			mapping.NewMappingRepository,
			webhook.NewDeliveryRepository,

			mapping.NewMappingService,
			monitor.NewMonitorService,
			sync_feature.NewSyncService,
			webhook.NewWebhookService,
			stats.NewStatsService,

			// Initialize Controller
			mapping.NewMappingController,
			monitor.NewMonitorController,
			sync_feature.NewSyncController,
			webhook.NewWebhookController,
			stats.NewStatsController,

			// Initialize API Routes
			AsRoute(mapping.NewMappingApi),
			AsRoute(monitor.NewMonitorApi),
			AsRoute(sync_feature.NewSyncApi),
			AsRoute(webhook.NewWebhookApi),
			AsRoute(stats.NewStatsApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartMonitor,
			InitializeIndexes,
		),
	)

	app.Run()
}
