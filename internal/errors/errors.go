package errors

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrDeviceIDRequired        = errors.New("device descriptor has no identifier")
	ErrDeviceNotFound          = errors.New("device not found")
	ErrUnknownDeviceRole       = errors.New("unknown device role")
	ErrUnknownCapability       = errors.New("unknown capability")
	ErrUnknownOutcome          = errors.New("unknown permission outcome")
	ErrUnknownState            = errors.New("unknown permission state")
	ErrRequestNotFound         = errors.New("permission request not found or expired")
	ErrRequestAlreadyResolved  = errors.New("permission request already resolved")
	ErrEnumeratorUnavailable   = errors.New("device enumeration unavailable")
	ErrEnumerationTimeout      = errors.New("device enumeration timed out")
	ErrNoEnumeratorSucceeded   = errors.New("no device enumerator succeeded")
	ErrUnsupportedSourceType   = errors.New("unsupported device source type")
	ErrSourcePathRequired      = errors.New("device source path is required")
	ErrWatcherAlreadyStarted   = errors.New("topology watcher already started")
	ErrAuthSecretNotConfigured = errors.New("auth secret not configured")
	ErrUnexpectedSigningMethod = errors.New("unexpected signing method")
	ErrInvalidToken            = errors.New("invalid token")
	ErrUnknownAuthRole         = errors.New("unknown auth role")
	ErrMalformedDeviceSource   = errors.New("malformed device source")
	ErrPasswordRequired        = errors.New("password cannot be empty")
	ErrInvalidPasswordHash     = errors.New("invalid password hash")
)

// ErrDeviceNotFoundWithID returns an error for device not found with ID.
func ErrDeviceNotFoundWithID(deviceID string) error {
	return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}

// ErrUnknownDeviceRoleWithName returns an error for an unrecognized preferred-device role.
func ErrUnknownDeviceRoleWithName(role string) error {
	return fmt.Errorf("%w: %q", ErrUnknownDeviceRole, role)
}

// ErrUnknownCapabilityWithName returns an error for an unrecognized permission capability.
func ErrUnknownCapabilityWithName(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownCapability, name)
}

// ErrUnknownOutcomeWithToken returns an error for an unrecognized outcome token.
func ErrUnknownOutcomeWithToken(token string) error {
	return fmt.Errorf("%w: %q", ErrUnknownOutcome, token)
}

// ErrUnknownStateWithToken returns an error for an unrecognized permission state.
func ErrUnknownStateWithToken(token string) error {
	return fmt.Errorf("%w: %q", ErrUnknownState, token)
}

func ErrRequestNotFoundWithID(id string) error {
	return fmt.Errorf("%w: %s", ErrRequestNotFound, id)
}

func ErrUnsupportedSourceTypeWithName(name string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedSourceType, name)
}

func ErrUnknownAuthRoleWithName(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownAuthRole, name)
}
