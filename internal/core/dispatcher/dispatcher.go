// Package dispatcher turns consumer control intents into optimistic cache
// writes plus asynchronous provider commands, and reconciles the two when
// the provider disagrees.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/govee-bridge-go/internal/adapters/govee"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/metrics"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/registry"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/state"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
)

// Ticket tracks one accepted command. Done resolves to the send error once
// the provider acknowledges or refuses; the buffered channel never blocks
// the sender.
type Ticket struct {
	CommandID string           `json:"command_id"`
	DeviceID  string           `json:"device_id"`
	Attribute types.Capability `json:"attribute"`
	Done      chan error       `json:"-"`
}

// Dispatcher validates intents against device capabilities, applies
// optimistic overrides, and sends commands on tracked goroutines.
type Dispatcher struct {
	api      govee.API
	cache    *state.Cache
	registry *registry.Registry
	metrics  *metrics.Collector
	timeout  time.Duration
	logger   *logrus.Logger

	wg sync.WaitGroup
}

// New creates a dispatcher. timeout bounds each SendCommand call.
func New(api govee.API, cache *state.Cache, reg *registry.Registry, collector *metrics.Collector, timeout time.Duration, logger *logrus.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		api:      api,
		cache:    cache,
		registry: reg,
		metrics:  collector,
		timeout:  timeout,
		logger:   logger,
	}
}

// Stop waits for in-flight sends to resolve.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
}

// SetAttribute validates and converts a control intent, applies it to the
// cache immediately, and issues the provider command asynchronously. Local
// validation failures return synchronously with zero network calls.
func (d *Dispatcher) SetAttribute(ctx context.Context, deviceID string, attr types.Capability, value interface{}) (*Ticket, error) {
	device, ok := d.cache.Device(deviceID)
	if !ok {
		return nil, ErrDeviceNotFound
	}
	if !device.Controllable {
		return nil, ErrNotControllable
	}
	if !device.HasCapability(attr) {
		return nil, &UnsupportedCapabilityError{DeviceID: deviceID, Attribute: attr}
	}

	cmd, optimistic, err := buildCommand(device, attr, value)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	changes := d.cache.ApplyOptimistic(deviceID, attr, optimistic, now)

	// Any light-changing command implies the light turns on; mirror that in
	// the merged view so read-after-write matches what the device will do.
	// An earlier power command's pending override is left alone: it has its
	// own lifecycle, and a failure here must not revert it.
	impliedPower := false
	if attr != types.CapabilityPower && device.HasCapability(types.CapabilityPower) && !d.powerOverridePending(deviceID) {
		impliedPower = true
		changes = append(changes, d.cache.ApplyOptimistic(deviceID, types.CapabilityPower, true, now)...)
	}
	d.registry.PublishChanges(changes)

	ticket := &Ticket{
		CommandID: uuid.New().String(),
		DeviceID:  deviceID,
		Attribute: attr,
		Done:      make(chan error, 1),
	}

	d.logger.WithFields(logrus.Fields{
		"command_id": ticket.CommandID,
		"device":     deviceID,
		"attribute":  attr,
	}).Debug("Command accepted, sending")

	d.wg.Add(1)
	go d.send(device, ticket, cmd, impliedPower)

	return ticket, nil
}

// powerOverridePending reports whether an earlier command's power override is
// still outstanding.
func (d *Dispatcher) powerOverridePending(deviceID string) bool {
	view, ok := d.cache.Read(deviceID)
	if !ok {
		return false
	}
	for _, attr := range view.Pending {
		if attr == types.CapabilityPower {
			return true
		}
	}
	return false
}

// send issues the provider call and reconciles the optimistic state with the
// outcome. It runs detached from the request context: the caller already got
// its 202, the command's fate is reported through events and the ticket.
func (d *Dispatcher) send(device *types.Device, ticket *Ticket, cmd govee.ControlCommand, impliedPower bool) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := d.api.SendCommand(ctx, device.ID, device.Model, cmd)
	if d.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		d.metrics.RecordAPIRequest("send_command", result, time.Since(start))
	}

	switch {
	case err == nil:
		d.recordCommand(ticket.Attribute, "ok")
		d.registry.Publish(types.NewCommandResultEvent(ticket.CommandID, ticket.DeviceID, ticket.Attribute, true, ""))

	case govee.IsTransportError(err):
		// The send may have reached the device even though the reply did
		// not reach us. Leave the override to its natural expiry and let
		// the next poll settle it.
		d.recordCommand(ticket.Attribute, "unconfirmed")
		d.logger.WithError(err).WithFields(logrus.Fields{
			"command_id": ticket.CommandID,
			"device":     ticket.DeviceID,
		}).Warn("Command delivery unconfirmed, awaiting poll reconciliation")
		d.registry.Publish(types.NewDiscrepancyEvent(types.Discrepancy{
			DeviceID:  ticket.DeviceID,
			Attribute: ticket.Attribute,
			Reason:    types.DiscrepancyUnconfirmed,
			IssuedAt:  start,
		}))
		d.registry.Publish(types.NewCommandResultEvent(ticket.CommandID, ticket.DeviceID, ticket.Attribute, false, err.Error()))

	default:
		// Rejected, auth or unknown-device failures mean the command did
		// not take effect. Revert immediately instead of waiting for TTL.
		// Only the overrides this command applied are reverted; a power
		// override owned by an earlier command is not ours to undo.
		d.recordCommand(ticket.Attribute, "rejected")
		changes := d.cache.RevertOverride(ticket.DeviceID, ticket.Attribute)
		if impliedPower {
			changes = append(changes, d.cache.RevertOverride(ticket.DeviceID, types.CapabilityPower)...)
		}
		d.registry.PublishChanges(changes)
		d.logger.WithError(err).WithFields(logrus.Fields{
			"command_id": ticket.CommandID,
			"device":     ticket.DeviceID,
		}).Warn("Command rejected, optimistic state reverted")
		d.registry.Publish(types.NewCommandResultEvent(ticket.CommandID, ticket.DeviceID, ticket.Attribute, false, err.Error()))
	}

	if d.metrics != nil {
		d.metrics.SetActiveOverrides(d.cache.PendingCount())
	}
	ticket.Done <- err
}

func (d *Dispatcher) recordCommand(attr types.Capability, result string) {
	if d.metrics != nil {
		d.metrics.RecordCommand(string(attr), result)
	}
}

// buildCommand validates and converts a consumer value into the provider
// command plus the optimistic value the cache should carry (provider units).
func buildCommand(device *types.Device, attr types.Capability, value interface{}) (govee.ControlCommand, interface{}, error) {
	switch attr {
	case types.CapabilityPower:
		on, ok := value.(bool)
		if !ok {
			return govee.ControlCommand{}, nil, &ValidationError{Attribute: attr, Reason: "expected a boolean"}
		}
		return govee.TurnCommand(on), on, nil

	case types.CapabilityBrightness:
		level, ok := toInt(value)
		if !ok {
			return govee.ControlCommand{}, nil, &ValidationError{Attribute: attr, Reason: "expected an integer"}
		}
		if level < types.ConsumerBrightnessMin || level > types.ConsumerBrightnessMax {
			return govee.ControlCommand{}, nil, &ValidationError{
				Attribute: attr,
				Reason:    "brightness must be between 1 and 255",
			}
		}
		percent := types.ConsumerToProviderBrightness(level)
		return govee.BrightnessCommand(percent), percent, nil

	case types.CapabilityColor:
		color, ok := toRGB(value)
		if !ok {
			return govee.ControlCommand{}, nil, &ValidationError{Attribute: attr, Reason: "expected {r,g,b}"}
		}
		if !color.Valid() {
			return govee.ControlCommand{}, nil, &ValidationError{
				Attribute: attr,
				Reason:    "color components must be between 0 and 255",
			}
		}
		return govee.ColorCommand(color.R, color.G, color.B), color, nil

	case types.CapabilityColorTemperature:
		kelvin, ok := toInt(value)
		if !ok {
			return govee.ControlCommand{}, nil, &ValidationError{Attribute: attr, Reason: "expected an integer"}
		}
		if !device.ColorTemRange.Contains(kelvin) {
			return govee.ControlCommand{}, nil, &ValidationError{
				Attribute: attr,
				Reason: fmt.Sprintf("color temperature must be between %d and %d kelvin",
					device.ColorTemRange.MinKelvin, device.ColorTemRange.MaxKelvin),
			}
		}
		return govee.ColorTemCommand(kelvin), kelvin, nil
	}

	return govee.ControlCommand{}, nil, &ValidationError{Attribute: attr, Reason: "unknown attribute"}
}

// toInt accepts the numeric shapes JSON decoding and direct callers produce.
func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// toRGB accepts a typed RGB or the map a JSON body decodes into.
func toRGB(value interface{}) (types.RGB, bool) {
	switch v := value.(type) {
	case types.RGB:
		return v, true
	case map[string]interface{}:
		r, rok := toInt(v["r"])
		g, gok := toInt(v["g"])
		b, bok := toInt(v["b"])
		if !rok || !gok || !bok {
			return types.RGB{}, false
		}
		return types.RGB{R: r, G: g, B: b}, true
	}
	return types.RGB{}, false
}
