package hostenum

import (
	"context"

	"github.com/bavix/avwatch/internal/devices"
	customerrors "github.com/bavix/avwatch/internal/errors"
)

// None is a host without any enumeration capability.
type None struct{}

// Name returns the enumerator name.
func (None) Name() string { return "none" }

// Priority returns the enumerator priority.
func (None) Priority() int { return PriorityNone }

// IsAvailable always reports false.
func (None) IsAvailable(context.Context) bool { return false }

// Enumerate always fails with ErrEnumeratorUnavailable.
func (None) Enumerate(context.Context) ([]devices.RawDevice, error) {
	return nil, customerrors.ErrEnumeratorUnavailable
}
