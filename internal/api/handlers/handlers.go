// Package handlers implements the bridge's REST surface.
package handlers

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/govee-bridge-go/internal/adapters/govee"
	"github.com/frostdev-ops/govee-bridge-go/internal/config"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/coordinator"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/dispatcher"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/registry"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/state"
	"github.com/frostdev-ops/govee-bridge-go/internal/websocket"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	cfg         *config.Config
	log         *logrus.Logger
	client      *govee.Client
	cache       *state.Cache
	coordinator *coordinator.Coordinator
	dispatcher  *dispatcher.Dispatcher
	registry    *registry.Registry
	wsHub       *websocket.Hub
	startTime   time.Time
}

// NewHandlers creates a handlers instance.
func NewHandlers(
	cfg *config.Config,
	logger *logrus.Logger,
	client *govee.Client,
	cache *state.Cache,
	coord *coordinator.Coordinator,
	disp *dispatcher.Dispatcher,
	reg *registry.Registry,
	wsHub *websocket.Hub,
) *Handlers {
	return &Handlers{
		cfg:         cfg,
		log:         logger,
		client:      client,
		cache:       cache,
		coordinator: coord,
		dispatcher:  disp,
		registry:    reg,
		wsHub:       wsHub,
		startTime:   time.Now(),
	}
}
