package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/govee-bridge-go/internal/adapters/govee"
	"github.com/frostdev-ops/govee-bridge-go/internal/api/handlers"
	"github.com/frostdev-ops/govee-bridge-go/internal/api/middleware"
	"github.com/frostdev-ops/govee-bridge-go/internal/config"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/coordinator"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/dispatcher"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/metrics"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/registry"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/state"
	"github.com/frostdev-ops/govee-bridge-go/internal/websocket"
)

// NewRouter creates and configures the main HTTP router.
func NewRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	client *govee.Client,
	cache *state.Cache,
	coord *coordinator.Coordinator,
	disp *dispatcher.Dispatcher,
	reg *registry.Registry,
	wsHub *websocket.Hub,
	collector *metrics.Collector,
) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware())
	if cfg.Metrics.Enabled {
		router.Use(middleware.MetricsMiddleware(collector))
	}

	h := handlers.NewHandlers(cfg, logger, client, cache, coord, disp, reg, wsHub)

	// Public routes
	router.GET("/health", h.Health)
	router.GET("/ws", h.WebSocketHandler(wsHub))
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API v1 routes
	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", h.Login)
		}

		protected := api.Group("/")
		if cfg.Auth.Enabled {
			protected.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
		}
		{
			devices := protected.Group("/devices")
			{
				devices.GET("", h.GetDevices)
				devices.GET("/:id", h.GetDevice)
				devices.GET("/:id/state", h.GetDeviceState)
				devices.POST("/:id/command", h.SendCommand)
			}

			polling := protected.Group("/polling")
			{
				polling.GET("", h.GetPolling)
				polling.PUT("", h.UpdatePolling)
			}

			system := protected.Group("/system")
			{
				system.GET("/info", h.GetSystemInfo)
				system.GET("/status", h.GetSystemStatus)
			}

			diagnostics := protected.Group("/diagnostics")
			{
				diagnostics.GET("/snapshot", h.GetDiagnosticsSnapshot)
			}
		}
	}

	return router
}
