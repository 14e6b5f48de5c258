package devices

import (
	"context"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/bavix/avwatch/internal/permissions"
)

// Enumerator is a host device-enumeration capability.
type Enumerator interface {
	// Name returns the enumerator name.
	Name() string

	// Priority orders enumerators inside a SourceManager (higher first).
	Priority() int

	// Enumerate lists the devices currently present on the host.
	Enumerate(ctx context.Context) ([]RawDevice, error)

	// IsAvailable checks if this enumerator can work on the current system.
	IsAvailable(ctx context.Context) bool
}

// TopologyNotifier signals host device-topology changes (plug/unplug).
type TopologyNotifier interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func()) (unsubscribe func())
}

// Access is the permission state captured at the start of a refresh.
type Access struct {
	Camera     permissions.State
	Microphone permissions.State
}

// Unlocks reports whether labels of the given kind are visible under a.
// Video labels need camera access; audio input and output labels need
// microphone access.
func (a Access) Unlocks(kind Kind) bool {
	switch kind {
	case KindVideoInput:
		return a.Camera == permissions.StateGranted
	case KindAudioInput, KindAudioOutput:
		return a.Microphone == permissions.StateGranted
	default:
		return false
	}
}

// DeviceDecorator transforms raw descriptors between enumeration and merge.
type DeviceDecorator interface {
	// Decorate returns the decorated descriptors without mutating the input.
	Decorate(ctx context.Context, access Access, devices []RawDevice) ([]RawDevice, error)
}

// DeviceMerger merges a normalized batch into the ordered record set.
type DeviceMerger interface {
	Merge(records *orderedmap.OrderedMap[string, *Device], batch []*Device) MergeResult
}
