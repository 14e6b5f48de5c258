package devices

import (
	customerrors "github.com/bavix/avwatch/internal/errors"
)

// NormalizeKind maps legacy kind tokens onto canonical kinds. Anything else
// passes through unchanged.
func NormalizeKind(kind string) Kind {
	switch kind {
	case legacyKindAudio:
		return KindAudioInput
	case legacyKindVideo:
		return KindVideoInput
	default:
		return Kind(kind)
	}
}

// Normalize converts a raw descriptor into a canonical record. DeviceID wins
// over the legacy ID; a descriptor carrying neither is rejected with
// ErrDeviceIDRequired.
func Normalize(raw RawDevice) (*Device, error) {
	id := raw.DeviceID
	if id == "" {
		id = raw.ID
	}

	if id == "" {
		return nil, customerrors.ErrDeviceIDRequired
	}

	return &Device{
		DeviceID: id,
		GroupID:  raw.GroupID,
		Label:    raw.Label,
		Kind:     NormalizeKind(raw.Kind),
	}, nil
}

// NormalizeAll normalizes a batch and returns the admitted records together
// with the number of rejected descriptors.
func NormalizeAll(batch []RawDevice) ([]*Device, int) {
	out := make([]*Device, 0, len(batch))
	dropped := 0

	for _, raw := range batch {
		d, err := Normalize(raw)
		if err != nil {
			dropped++

			continue
		}

		out = append(out, d)
	}

	return out, dropped
}
