// Package coordinator runs the shared polling loop: one scheduled
// list+refresh pass feeding the state cache that every reader consumes.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/govee-bridge-go/internal/adapters/govee"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/metrics"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/registry"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/state"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
)

// Status is the coordinator's externally visible state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusListing    Status = "listing"
	StatusRefreshing Status = "refreshing"
	StatusHalted     Status = "halted"
	StatusStopped    Status = "stopped"
)

// Poll cycle results recorded in metrics.
const (
	cycleResultOK      = "ok"
	cycleResultPartial = "partial"
	cycleResultError   = "error"
	cycleResultAuth    = "auth_failed"
)

// Options are the polling parameters that can change at runtime.
type Options struct {
	ScanInterval time.Duration
	ModelFilter  string
	IncludeAll   bool
}

// Coordinator owns the scan timer and the Idle → Listing → Refreshing cycle.
// A TransportError costs at most one device or one cycle; an AuthError halts
// the schedule until Resume.
type Coordinator struct {
	api      govee.API
	cache    *state.Cache
	registry *registry.Registry
	metrics  *metrics.Collector
	logger   *logrus.Logger

	mu         sync.RWMutex
	opts       Options
	status     Status
	lastPoll   time.Time
	lastError  string
	cycleCount uint64

	reload chan struct{}
	kick   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a coordinator. Start must be called before it polls.
func New(api govee.API, cache *state.Cache, reg *registry.Registry, collector *metrics.Collector, opts Options, logger *logrus.Logger) *Coordinator {
	return &Coordinator{
		api:      api,
		cache:    cache,
		registry: reg,
		metrics:  collector,
		logger:   logger,
		opts:     opts,
		status:   StatusIdle,
		reload:   make(chan struct{}, 1),
		kick:     make(chan struct{}, 1),
	}
}

// Start launches the polling goroutine. The first cycle runs immediately.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return fmt.Errorf("coordinator is already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(runCtx)

	c.logger.WithField("interval", c.Options().ScanInterval).Info("Poll coordinator started")
	return nil
}

// Stop cancels the schedule and waits for the loop to exit. In-flight
// network calls may finish, but their results are discarded.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	c.mu.Lock()
	c.status = StatusStopped
	c.mu.Unlock()
	c.logger.Info("Poll coordinator stopped")
}

// Options returns the current polling parameters.
func (c *Coordinator) Options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

// UpdateOptions replaces the polling parameters. The new interval takes
// effect on the next cycle; no restart needed.
func (c *Coordinator) UpdateOptions(opts Options) {
	c.mu.Lock()
	c.opts = opts
	c.mu.Unlock()

	select {
	case c.reload <- struct{}{}:
	default:
	}

	c.logger.WithFields(logrus.Fields{
		"interval":     opts.ScanInterval,
		"model_filter": opts.ModelFilter,
		"include_all":  opts.IncludeAll,
	}).Info("Polling options updated")
}

// Status returns the coordinator's current state.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Halted reports whether polling stopped on an auth failure.
func (c *Coordinator) Halted() bool {
	return c.Status() == StatusHalted
}

// LastPoll returns when the last cycle finished and what it reported.
func (c *Coordinator) LastPoll() (time.Time, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPoll, c.lastError
}

// Resume restarts a halted schedule after external credential recovery and
// triggers an immediate cycle.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	if c.status != StatusHalted {
		c.mu.Unlock()
		return
	}
	c.status = StatusIdle
	c.lastError = ""
	c.mu.Unlock()

	c.logger.Info("Polling resumed")
	c.registry.Publish(types.NewPollingResumedEvent())

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)

	c.cycle(ctx)

	ticker := time.NewTicker(c.Options().ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Halted() {
				continue
			}
			c.cycle(ctx)
		case <-c.reload:
			ticker.Reset(c.Options().ScanInterval)
		case <-c.kick:
			c.cycle(ctx)
		}
	}
}

// cycle is one full list+refresh pass. A panic here must not kill the
// schedule, so the loop recovers and waits for the next tick.
func (c *Coordinator) cycle(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.WithField("panic", rec).Error("Poll cycle panicked")
			c.setStatus(StatusIdle)
		}
	}()

	start := time.Now()
	opts := c.Options()

	c.setStatus(StatusListing)
	result := c.runCycle(ctx, opts)
	if ctx.Err() != nil {
		return
	}

	// Expiry runs once per cycle no matter how the poll went, so an
	// unreachable provider cannot pin stale optimistic state forever.
	changes, discrepancies := c.cache.ExpireStale(time.Now())
	c.registry.PublishChanges(changes)
	c.registry.PublishDiscrepancies(discrepancies)

	if c.metrics != nil {
		c.metrics.RecordPollCycle(result, time.Since(start))
		c.metrics.RecordDiscrepancies(len(discrepancies))
		c.metrics.SetDevicesTracked(c.cache.Count())
		c.metrics.SetActiveOverrides(c.cache.PendingCount())
	}

	c.mu.Lock()
	c.lastPoll = time.Now()
	c.cycleCount++
	if c.status != StatusHalted {
		c.status = StatusIdle
	}
	c.mu.Unlock()
}

// runCycle does the listing and per-device refresh, returning the metric
// result label for the pass.
func (c *Coordinator) runCycle(ctx context.Context, opts Options) string {
	listStart := time.Now()
	raw, err := c.api.ListDevices(ctx)
	c.recordAPI("list_devices", err, time.Since(listStart))
	if err != nil {
		if ctx.Err() != nil {
			return cycleResultError
		}
		if govee.IsAuthError(err) {
			c.halt(err)
			return cycleResultAuth
		}
		c.logger.WithError(err).Warn("Device listing failed, retrying next cycle")
		c.setError(err)
		return cycleResultError
	}
	if ctx.Err() != nil {
		return cycleResultError
	}

	listed := c.reconcileDiscovery(raw, opts)

	c.setStatus(StatusRefreshing)

	failures := 0
	for _, device := range listed {
		if ctx.Err() != nil {
			return cycleResultError
		}
		if !device.Retrievable {
			continue
		}
		if err := c.refreshDevice(ctx, device); err != nil {
			if govee.IsAuthError(err) {
				c.halt(err)
				return cycleResultAuth
			}
			// One unreachable device must not block the rest.
			failures++
			c.logger.WithError(err).WithField("device", device.ID).Warn("Device refresh failed")
		}
	}

	c.setError(nil)
	if failures > 0 {
		return cycleResultPartial
	}
	return cycleResultOK
}

// reconcileDiscovery applies the model filter, registers devices seen for
// the first time, and evicts devices that are gone or filtered out.
func (c *Coordinator) reconcileDiscovery(raw []govee.RawDevice, opts Options) []*types.Device {
	listed := make([]*types.Device, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for i := range raw {
		rd := &raw[i]
		if !matchesFilter(rd.Model, opts) {
			continue
		}
		seen[rd.Device] = true

		if device, ok := c.cache.Device(rd.Device); ok {
			listed = append(listed, device)
			continue
		}

		device := newDevice(rd)
		c.cache.Register(device)
		if err := c.registry.Register(device); err != nil {
			c.logger.WithError(err).WithField("device", device.ID).Warn("Device registration failed")
		}
		listed = append(listed, device)
	}

	for _, device := range c.cache.Devices() {
		if seen[device.ID] {
			continue
		}
		c.cache.Remove(device.ID)
		if err := c.registry.Unregister(device.ID); err != nil {
			c.logger.WithError(err).WithField("device", device.ID).Debug("Device was not registered")
		}
	}

	return listed
}

// refreshDevice polls one device's state and merges it into the cache.
func (c *Coordinator) refreshDevice(ctx context.Context, device *types.Device) error {
	start := time.Now()
	polled, err := c.api.GetDeviceState(ctx, device.ID, device.Model)
	c.recordAPI("get_state", err, time.Since(start))
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	now := time.Now()
	if c.cache.SetOnline(device.ID, polled.Online, now) {
		c.registry.Publish(types.NewAvailabilityEvent(device.ID, polled.Online))
	}

	snapshot := c.mergePolled(device.ID, polled)
	changes := c.cache.UpsertConfirmed(device.ID, snapshot, now)
	c.registry.PublishChanges(changes)
	return nil
}

// mergePolled overlays the properties the provider reported onto the last
// confirmed snapshot. The state endpoint omits attributes it has no value
// for; absence is not a change. The base must be the confirmed snapshot,
// not the merged view: a pending override folded in here would count as
// provider confirmation of a value the provider never reported.
func (c *Coordinator) mergePolled(deviceID string, polled *govee.DeviceState) types.AttributeSnapshot {
	snapshot, _ := c.cache.Confirmed(deviceID)

	if polled.PowerOn != nil {
		snapshot.Power = *polled.PowerOn
	}
	if polled.Brightness != nil {
		snapshot.BrightnessPercent = *polled.Brightness
	}
	if polled.Color != nil {
		snapshot.SetValue(types.CapabilityColor, types.RGB{R: polled.Color.R, G: polled.Color.G, B: polled.Color.B})
	}
	if polled.ColorTemKelvin != nil {
		snapshot.SetValue(types.CapabilityColorTemperature, *polled.ColorTemKelvin)
	}
	return snapshot
}

// halt stops the schedule on an auth failure. Only Resume restarts it.
func (c *Coordinator) halt(err error) {
	c.mu.Lock()
	alreadyHalted := c.status == StatusHalted
	c.status = StatusHalted
	c.lastError = err.Error()
	c.mu.Unlock()

	if alreadyHalted {
		return
	}

	c.logger.WithError(err).Error("Authentication failed, polling halted until credentials recover")
	c.registry.Publish(types.NewPollingHaltedEvent(err.Error()))
}

func (c *Coordinator) setStatus(status Status) {
	c.mu.Lock()
	if c.status != StatusHalted && c.status != StatusStopped {
		c.status = status
	}
	c.mu.Unlock()
}

func (c *Coordinator) setError(err error) {
	c.mu.Lock()
	if err != nil {
		c.lastError = err.Error()
	} else {
		c.lastError = ""
	}
	c.mu.Unlock()
}

func (c *Coordinator) recordAPI(endpoint string, err error, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.RecordAPIRequest(endpoint, result, duration)
}

// matchesFilter applies the configured model filter: include-all bypasses
// it, an empty filter accepts every model, otherwise case-insensitive exact
// match.
func matchesFilter(model string, opts Options) bool {
	if opts.IncludeAll || opts.ModelFilter == "" {
		return true
	}
	return strings.EqualFold(model, opts.ModelFilter)
}

// newDevice builds a device descriptor from a raw listing, running
// capability detection and reading the advertised Kelvin range.
func newDevice(rd *govee.RawDevice) *types.Device {
	device := &types.Device{
		ID:            rd.Device,
		Name:          rd.DeviceName,
		Model:         rd.Model,
		Controllable:  rd.Controllable,
		Retrievable:   rd.Retrievable,
		Capabilities:  types.DetectCapabilities(rd.SupportCmds),
		ColorTemRange: types.DefaultTemperatureRange(),
	}
	if rd.Properties != nil && rd.Properties.ColorTem != nil && rd.Properties.ColorTem.Range != nil {
		r := rd.Properties.ColorTem.Range
		if r.Min > 0 && r.Max > r.Min {
			device.ColorTemRange = types.TemperatureRange{MinKelvin: r.Min, MaxKelvin: r.Max}
		}
	}
	return device
}
