package devices

import (
	"context"
)

// LabelRedactor withholds device labels until the permission covering the
// device kind is granted, the way browser hosts do.
type LabelRedactor struct{}

// NewLabelRedactor creates a new label redactor.
func NewLabelRedactor() *LabelRedactor {
	return &LabelRedactor{}
}

// Decorate clears labels that access does not unlock.
func (d *LabelRedactor) Decorate(_ context.Context, access Access, devices []RawDevice) ([]RawDevice, error) {
	decorated := make([]RawDevice, len(devices))

	for i, raw := range devices {
		decorated[i] = raw

		if !access.Unlocks(NormalizeKind(raw.Kind)) {
			decorated[i].Label = ""
		}
	}

	return decorated, nil
}
