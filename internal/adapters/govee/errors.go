package govee

import (
	"errors"
	"fmt"
)

// AuthError reports invalid or expired credentials. Non-retryable: polling
// must halt until the key changes.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("govee: authentication failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("govee: authentication failed (%d)", e.StatusCode)
}

// TransportError covers connectivity failures, timeouts, 5xx responses and
// rate limiting. Retryable by the caller's policy, never by the client.
type TransportError struct {
	Op          string
	StatusCode  int
	RateLimited bool
	Err         error
}

func (e *TransportError) Error() string {
	switch {
	case e.RateLimited:
		return fmt.Sprintf("govee: %s rate limited (%d)", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("govee: %s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("govee: %s failed with status %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a device the provider no longer knows.
type NotFoundError struct {
	DeviceID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("govee: device %s not found", e.DeviceID)
}

// RejectedError reports a command the provider refused.
type RejectedError struct {
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("govee: command rejected (%d): %s", e.Code, e.Message)
}

// IsAuthError checks whether err is (or wraps) an authentication failure.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransportError checks whether err is (or wraps) a transport failure.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsRateLimitError checks whether err is a rate-limited transport failure.
func IsRateLimitError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr) && transportErr.RateLimited
}

// IsNotFoundError checks whether err reports an unknown device.
func IsNotFoundError(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsRejectedError checks whether err reports a refused command.
func IsRejectedError(err error) bool {
	var rejectedErr *RejectedError
	return errors.As(err, &rejectedErr)
}
