// Package registry tracks registered devices and fans registry events out to
// subscribers (the WebSocket hub, tests, any future consumer).
package registry

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
)

// Listener receives every published registry event. Listeners run on their
// own goroutines; a slow consumer cannot stall the publisher.
type Listener func(event types.Event)

// Registry is the entity registry: registration metadata plus event fanout.
type Registry struct {
	mu        sync.RWMutex
	devices   map[string]*types.Device
	listeners map[int]Listener
	nextID    int
	logger    *logrus.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		devices:   make(map[string]*types.Device),
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// Register records a device and announces it. Registering the same ID twice
// is a no-op, so a re-discovery never produces duplicate registrations.
func (r *Registry) Register(device *types.Device) error {
	if device == nil || device.ID == "" {
		return fmt.Errorf("cannot register device without an ID")
	}

	r.mu.Lock()
	if _, exists := r.devices[device.ID]; exists {
		r.mu.Unlock()
		return nil
	}
	r.devices[device.ID] = device.Clone()
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"device":       device.ID,
		"name":         device.Name,
		"model":        device.Model,
		"capabilities": device.Capabilities,
	}).Info("Device registered")

	r.Publish(types.NewDeviceRegisteredEvent(device))
	return nil
}

// Unregister removes a device and announces the removal.
func (r *Registry) Unregister(deviceID string) error {
	r.mu.Lock()
	if _, exists := r.devices[deviceID]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("device %s is not registered", deviceID)
	}
	delete(r.devices, deviceID)
	r.mu.Unlock()

	r.logger.WithField("device", deviceID).Info("Device unregistered")
	r.Publish(types.NewDeviceRemovedEvent(deviceID))
	return nil
}

// Get returns a registered device by ID.
func (r *Registry) Get(deviceID string) (*types.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[deviceID]
	if !ok {
		return nil, false
	}
	return device.Clone(), true
}

// List returns every registered device.
func (r *Registry) List() []*types.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]*types.Device, 0, len(r.devices))
	for _, device := range r.devices {
		devices = append(devices, device.Clone())
	}
	return devices
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Subscribe adds a listener and returns the function that removes it.
func (r *Registry) Subscribe(listener Listener) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = listener
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Publish delivers an event to every subscriber. Each listener runs on its
// own goroutine with panic recovery.
func (r *Registry) Publish(event types.Event) {
	r.mu.RLock()
	listeners := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.RUnlock()

	for _, listener := range listeners {
		l := listener
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.WithFields(logrus.Fields{
						"event": event.Type,
						"panic": rec,
					}).Error("Registry listener panicked")
				}
			}()
			l(event)
		}()
	}
}

// PublishChanges publishes one state-changed event per merged-view change.
func (r *Registry) PublishChanges(changes []types.StateChange) {
	for _, change := range changes {
		r.Publish(types.NewStateChangedEvent(change))
	}
}

// PublishDiscrepancies publishes one reconciliation event per discrepancy.
func (r *Registry) PublishDiscrepancies(discrepancies []types.Discrepancy) {
	for _, d := range discrepancies {
		r.Publish(types.NewDiscrepancyEvent(d))
	}
}
