//go:build !cgo || noaudio

package hostenum

import (
	"context"

	"github.com/bavix/avwatch/internal/devices"
	customerrors "github.com/bavix/avwatch/internal/errors"
)

// Malgo is unavailable in builds without cgo or with the noaudio tag.
type Malgo struct{}

// NewMalgo creates an audio enumerator.
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Name returns the enumerator name.
func (m *Malgo) Name() string { return "malgo" }

// Priority returns the enumerator priority.
func (m *Malgo) Priority() int { return PriorityMalgo }

// IsAvailable always reports false.
func (m *Malgo) IsAvailable(context.Context) bool { return false }

// Enumerate always fails with ErrEnumeratorUnavailable.
func (m *Malgo) Enumerate(context.Context) ([]devices.RawDevice, error) {
	return nil, customerrors.ErrEnumeratorUnavailable
}
