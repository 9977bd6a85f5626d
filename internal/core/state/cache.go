// Package state owns every Device and PendingOverride record in the bridge.
// The poll coordinator and the command dispatcher mutate through this cache
// only; it is the single serialization point for device state.
package state

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
)

// override is one pending optimistic value for a (device, attribute) pair.
type override struct {
	value        interface{}
	issuedAt     time.Time
	expiresAfter time.Duration
}

func (o *override) expired(now time.Time) bool {
	return now.After(o.issuedAt.Add(o.expiresAfter))
}

// entry is everything the cache tracks for one device.
type entry struct {
	device      *types.Device
	confirmed   types.AttributeSnapshot
	online      bool
	lastRefresh time.Time
	overrides   map[types.Capability]*override
}

// Cache is the in-memory device state store. Merged reads favor unexpired
// optimistic overrides over confirmed values so a consumer sees its own
// intent immediately, before the next poll confirms it.
type Cache struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	overrideTTL time.Duration
	logger      *logrus.Logger
}

// NewCache creates a cache whose overrides live for overrideTTL before an
// unconfirmed value reverts.
func NewCache(overrideTTL time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{
		entries:     make(map[string]*entry),
		overrideTTL: overrideTTL,
		logger:      logger,
	}
}

// Register adds a device on first discovery. Registering an already-known
// device refreshes the descriptor but keeps state and overrides.
func (c *Cache) Register(device *types.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[device.ID]; ok {
		existing.device = device.Clone()
		return
	}

	c.entries[device.ID] = &entry{
		device:    device.Clone(),
		overrides: make(map[types.Capability]*override),
	}

	c.logger.WithFields(logrus.Fields{
		"device": device.ID,
		"model":  device.Model,
	}).Debug("Device registered in state cache")
}

// Remove evicts a device that is no longer discovered.
func (c *Cache) Remove(deviceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[deviceID]; !ok {
		return false
	}
	delete(c.entries, deviceID)
	return true
}

// Device returns the descriptor for one device.
func (c *Cache) Device(deviceID string) (*types.Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[deviceID]
	if !ok {
		return nil, false
	}
	return e.device.Clone(), true
}

// Devices returns the descriptors of every tracked device.
func (c *Cache) Devices() []*types.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	devices := make([]*types.Device, 0, len(c.entries))
	for _, e := range c.entries {
		devices = append(devices, e.device.Clone())
	}
	return devices
}

// Confirmed returns the last poll-confirmed snapshot for one device, with no
// optimistic overrides applied. The coordinator overlays partial poll results
// onto this; overlaying the merged view would let a pending override confirm
// itself.
func (c *Cache) Confirmed(deviceID string) (types.AttributeSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[deviceID]
	if !ok {
		return types.AttributeSnapshot{}, false
	}
	return e.confirmed.Clone(), true
}

// Count returns the number of tracked devices.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// UpsertConfirmed overwrites the confirmed snapshot from a poll, prunes any
// override whose optimistic value the poll just confirmed, and returns the
// merged-view changes. Idempotent: repeating the same snapshot and timestamp
// changes nothing and yields no events.
func (c *Cache) UpsertConfirmed(deviceID string, snapshot types.AttributeSnapshot, timestamp time.Time) []types.StateChange {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[deviceID]
	if !ok {
		return nil
	}
	if e.confirmed.Equal(snapshot) && e.lastRefresh.Equal(timestamp) {
		return nil
	}

	before := c.merged(e, timestamp)

	e.confirmed = snapshot.Clone()
	e.lastRefresh = timestamp

	for attr, ov := range e.overrides {
		confirmed, ok := e.confirmed.Value(attr)
		if ok && confirmed == ov.value {
			delete(e.overrides, attr)
		}
	}

	return diffSnapshots(deviceID, before, c.merged(e, timestamp))
}

// ApplyOptimistic records or replaces the pending override for one attribute
// and returns the merged-view changes. The caller sees the new value on the
// very next read, before the network round trip completes.
func (c *Cache) ApplyOptimistic(deviceID string, attr types.Capability, value interface{}, now time.Time) []types.StateChange {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[deviceID]
	if !ok {
		return nil
	}

	before := c.merged(e, now)
	e.overrides[attr] = &override{
		value:        value,
		issuedAt:     now,
		expiresAfter: c.overrideTTL,
	}
	return diffSnapshots(deviceID, before, c.merged(e, now))
}

// RevertOverride force-expires one pending override, reverting the merged
// view to the confirmed snapshot. Used by the dispatcher when the provider
// rejects a command outright.
func (c *Cache) RevertOverride(deviceID string, attr types.Capability) []types.StateChange {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[deviceID]
	if !ok {
		return nil
	}
	if _, ok := e.overrides[attr]; !ok {
		return nil
	}

	now := time.Now()
	before := c.merged(e, now)
	delete(e.overrides, attr)
	return diffSnapshots(deviceID, before, c.merged(e, now))
}

// ExpireStale removes every override past its TTL, reverting the merged view
// to the last confirmed snapshot. It reports exactly one discrepancy per
// expired override plus the merged-view changes the reverts caused.
func (c *Cache) ExpireStale(now time.Time) ([]types.StateChange, []types.Discrepancy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var changes []types.StateChange
	var discrepancies []types.Discrepancy

	for deviceID, e := range c.entries {
		var expired []types.Capability
		for attr, ov := range e.overrides {
			if ov.expired(now) {
				expired = append(expired, attr)
			}
		}
		if len(expired) == 0 {
			continue
		}

		// The before-view must include the overrides being expired: they are
		// what reads were answering until this pass. merged(e, now) already
		// skips them, which would make the revert look like a no-change.
		before := c.mergedAll(e)
		for _, attr := range expired {
			ov := e.overrides[attr]
			confirmed, _ := e.confirmed.Value(attr)
			discrepancies = append(discrepancies, types.Discrepancy{
				DeviceID:        deviceID,
				Attribute:       attr,
				OptimisticValue: ov.value,
				ConfirmedValue:  confirmed,
				Reason:          types.DiscrepancyExpired,
				IssuedAt:        ov.issuedAt,
			})
			delete(e.overrides, attr)

			c.logger.WithFields(logrus.Fields{
				"device":    deviceID,
				"attribute": attr,
			}).Warn("Optimistic override expired without confirmation")
		}
		changes = append(changes, diffSnapshots(deviceID, before, c.merged(e, now))...)
	}

	return changes, discrepancies
}

// SetOnline records a device's availability from the polled state. It
// reports whether the flag actually changed.
func (c *Cache) SetOnline(deviceID string, online bool, timestamp time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[deviceID]
	if !ok || e.online == online {
		return false
	}
	e.online = online
	e.lastRefresh = timestamp
	return true
}

// Read returns the merged view for one device: per attribute, the unexpired
// override value when present, else the confirmed value. Never touches the
// network.
func (c *Cache) Read(deviceID string) (*types.DeviceView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[deviceID]
	if !ok {
		return nil, false
	}

	now := time.Now()
	view := &types.DeviceView{
		Device:      e.device.Clone(),
		State:       c.merged(e, now),
		Online:      e.online,
		LastRefresh: e.lastRefresh,
	}
	for attr, ov := range e.overrides {
		if !ov.expired(now) {
			view.Pending = append(view.Pending, attr)
		}
	}
	return view, true
}

// ReadAll returns the merged views of every tracked device.
func (c *Cache) ReadAll() []*types.DeviceView {
	c.mu.RLock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	views := make([]*types.DeviceView, 0, len(ids))
	for _, id := range ids {
		if view, ok := c.Read(id); ok {
			views = append(views, view)
		}
	}
	return views
}

// PendingCount returns the number of unexpired overrides across all devices.
func (c *Cache) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	count := 0
	for _, e := range c.entries {
		for _, ov := range e.overrides {
			if !ov.expired(now) {
				count++
			}
		}
	}
	return count
}

// PendingOverride describes one outstanding optimistic value, for the
// diagnostics snapshot.
type PendingOverride struct {
	DeviceID     string           `json:"device_id"`
	Attribute    types.Capability `json:"attribute"`
	Value        interface{}      `json:"value"`
	IssuedAt     time.Time        `json:"issued_at"`
	ExpiresAfter time.Duration    `json:"expires_after"`
}

// PendingOverrides lists every outstanding override.
func (c *Cache) PendingOverrides() []PendingOverride {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []PendingOverride
	for deviceID, e := range c.entries {
		for attr, ov := range e.overrides {
			out = append(out, PendingOverride{
				DeviceID:     deviceID,
				Attribute:    attr,
				Value:        ov.value,
				IssuedAt:     ov.issuedAt,
				ExpiresAfter: ov.expiresAfter,
			})
		}
	}
	return out
}

// mergedAll is the merge with expiry ignored. Callers hold c.mu.
func (c *Cache) mergedAll(e *entry) types.AttributeSnapshot {
	view := e.confirmed.Clone()
	for attr, ov := range e.overrides {
		view.SetValue(attr, ov.value)
	}
	return view
}

// merged computes the override-over-confirmed view. Callers hold c.mu.
func (c *Cache) merged(e *entry, now time.Time) types.AttributeSnapshot {
	view := e.confirmed.Clone()
	for attr, ov := range e.overrides {
		if ov.expired(now) {
			continue
		}
		view.SetValue(attr, ov.value)
	}
	return view
}

// diffSnapshots reports the attributes whose merged value now answers
// differently than before a mutation.
func diffSnapshots(deviceID string, before, after types.AttributeSnapshot) []types.StateChange {
	var changes []types.StateChange
	for _, attr := range types.AllCapabilities {
		oldVal, oldOK := before.Value(attr)
		newVal, newOK := after.Value(attr)
		if oldOK == newOK && oldVal == newVal {
			continue
		}
		changes = append(changes, types.StateChange{
			DeviceID:  deviceID,
			Attribute: attr,
			NewValue:  newVal,
		})
	}
	return changes
}
