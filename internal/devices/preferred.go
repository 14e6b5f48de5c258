package devices

import (
	customerrors "github.com/bavix/avwatch/internal/errors"
)

// SetPreferred selects the preferred device for a role. The id must belong to
// the role's view; an empty id clears the preference. Preferences live in
// memory only.
func (m *Manager) SetPreferred(role Role, deviceID string) error {
	view := m.views.ByRole(role)
	if view == nil {
		return customerrors.ErrUnknownDeviceRoleWithName(string(role))
	}

	m.mu.Lock()

	if deviceID == "" {
		delete(m.preferred, role)
	} else {
		if view.Get(deviceID) == nil {
			m.mu.Unlock()

			return customerrors.ErrDeviceNotFoundWithID(deviceID)
		}

		m.preferred[role] = deviceID
	}

	m.mu.Unlock()

	m.emit(Event{Type: EventPreferred, Preferred: &PreferredChange{Role: role, DeviceID: deviceID}})

	return nil
}

// Preferred returns the preferred device for a role while it is present.
// A preferred device that was unplugged resolves to nil until it comes back.
func (m *Manager) Preferred(role Role) *Device {
	view := m.views.ByRole(role)
	if view == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.preferred[role]
	if !ok {
		return nil
	}

	return view.Get(id)
}
