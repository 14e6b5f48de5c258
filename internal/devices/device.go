package devices

import (
	"encoding/json"
)

// RawDevice is a device descriptor as reported by the host. Older hosts use
// ID instead of DeviceID and the legacy kinds "audio" and "video".
type RawDevice struct {
	DeviceID string `json:"deviceId,omitempty" yaml:"deviceId,omitempty"`
	ID       string `json:"id,omitempty"       yaml:"id,omitempty"`
	GroupID  string `json:"groupId,omitempty"  yaml:"groupId,omitempty"`
	Label    string `json:"label,omitempty"    yaml:"label,omitempty"`
	Kind     string `json:"kind,omitempty"     yaml:"kind,omitempty"`
}

// Device is the canonical record of one input or output endpoint.
// Records held by the catalog are never modified; an update replaces the
// record, so a *Device obtained from the manager is a stable snapshot.
type Device struct {
	DeviceID string `json:"deviceId"`
	GroupID  string `json:"groupId,omitempty"`
	Label    string `json:"label,omitempty"`
	Kind     Kind   `json:"kind,omitempty"`
}

// Clone creates a copy of the device.
func (d *Device) Clone() *Device {
	c := *d

	return &c
}

// Equal reports whether two records carry the same attributes.
func (d *Device) Equal(other *Device) bool {
	if d == nil || other == nil {
		return d == other
	}

	return *d == *other
}

// Name returns the label, or a generic name for the kind while the label is
// withheld.
func (d *Device) Name() string {
	if d.Label != "" {
		return d.Label
	}

	switch d.Kind {
	case KindVideoInput:
		return GenericCameraName
	case KindAudioInput:
		return GenericMicrophoneName
	case KindAudioOutput:
		return GenericSpeakerName
	default:
		return ""
	}
}

// IsCamera reports whether the device is a video input.
func (d *Device) IsCamera() bool { return d.Kind == KindVideoInput }

// IsMicrophone reports whether the device is an audio input.
func (d *Device) IsMicrophone() bool { return d.Kind == KindAudioInput }

// IsSpeaker reports whether the device is an audio output.
func (d *Device) IsSpeaker() bool { return d.Kind == KindAudioOutput }

// IsPlaceholder reports whether the device is one of the seeded generic records.
func (d *Device) IsPlaceholder() bool {
	return d.DeviceID == PlaceholderAudioID || d.DeviceID == PlaceholderVideoID
}

// Matches reports whether the device belongs to the view of the given role.
func (d *Device) Matches(role Role) bool {
	switch role {
	case RoleCamera:
		return d.IsCamera()
	case RoleMicrophone:
		return d.IsMicrophone()
	case RoleSpeaker:
		return d.IsSpeaker()
	default:
		return false
	}
}

// MarshalJSON adds the derived attributes to the stored ones.
func (d *Device) MarshalJSON() ([]byte, error) {
	type stored Device

	return json.Marshal(struct {
		*stored

		Name         string `json:"name"`
		IsCamera     bool   `json:"isCamera"`
		IsMicrophone bool   `json:"isMicrophone"`
		IsSpeaker    bool   `json:"isSpeaker"`
	}{
		stored:       (*stored)(d),
		Name:         d.Name(),
		IsCamera:     d.IsCamera(),
		IsMicrophone: d.IsMicrophone(),
		IsSpeaker:    d.IsSpeaker(),
	})
}

func placeholders() []RawDevice {
	return []RawDevice{
		{DeviceID: PlaceholderAudioID, Kind: string(KindAudioInput)},
		{DeviceID: PlaceholderVideoID, Kind: string(KindVideoInput)},
	}
}
