package dispatcher

import (
	"errors"
	"fmt"

	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
)

// Sentinel errors for lookups that fail before validation.
var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrNotControllable = errors.New("device is not controllable")
)

// UnsupportedCapabilityError reports a command for a control the device does
// not advertise. Raised before any network call.
type UnsupportedCapabilityError struct {
	DeviceID  string
	Attribute types.Capability
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("device %s does not support %s", e.DeviceID, e.Attribute)
}

// ValidationError reports a value outside the provider's accepted range.
// Raised before any network call.
type ValidationError struct {
	Attribute types.Capability
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s value: %s", e.Attribute, e.Reason)
}

// IsUnsupportedCapability checks whether err reports a missing capability.
func IsUnsupportedCapability(err error) bool {
	var unsupportedErr *UnsupportedCapabilityError
	return errors.As(err, &unsupportedErr)
}

// IsValidationError checks whether err reports an out-of-range value.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
