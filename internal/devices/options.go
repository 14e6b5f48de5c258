package devices

import "time"

// Option configures a Manager.
type Option func(*Manager)

// WithTopologyNotifier subscribes the manager to host topology changes.
func WithTopologyNotifier(n TopologyNotifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithDecorators adds decorators applied to every enumeration result.
func WithDecorators(decorators ...DeviceDecorator) Option {
	return func(m *Manager) {
		m.decorators = append(m.decorators, decorators...)
	}
}

// WithScheduler replaces the function that runs triggered refreshes. The
// default runs each one on its own goroutine; tests pass a synchronous one.
func WithScheduler(schedule func(fn func())) Option {
	return func(m *Manager) {
		m.schedule = schedule
	}
}

// WithEnumerationTimeout bounds every enumeration. Zero leaves it unbounded.
func WithEnumerationTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}
