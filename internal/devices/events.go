package devices

import (
	"github.com/bavix/avwatch/internal/permissions"
)

// EventType identifies what changed.
type EventType string

// Event types.
const (
	EventDevices      EventType = "devices"
	EventKnownDevices EventType = "known_devices"
	EventPermission   EventType = "permission"
	EventPreferred    EventType = "preferred"
)

// PreferredChange describes a change of the preferred device for a role.
type PreferredChange struct {
	Role     Role   `json:"role"`
	DeviceID string `json:"deviceId"`
}

// Event is delivered to subscribers after a change has been fully applied.
type Event struct {
	Type         EventType           `json:"type"`
	Merge        *MergeResult        `json:"merge,omitempty"`
	KnownDevices *bool               `json:"known_devices,omitempty"`
	Permission   *permissions.Change `json:"permission,omitempty"`
	Preferred    *PreferredChange    `json:"preferred,omitempty"`
}

// Subscribe registers fn for every future event and returns a function that
// removes the subscription.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn

	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()

		delete(m.subs, id)
	}
}

func (m *Manager) emit(events ...Event) {
	if len(events) == 0 {
		return
	}

	m.subsMu.RLock()
	subs := make([]func(Event), 0, len(m.subs))

	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subsMu.RUnlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
