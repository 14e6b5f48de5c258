package permissions

import (
	"sync"
)

// Change describes one effective state transition.
type Change struct {
	Capability Capability `json:"capability"`
	From       State      `json:"from"`
	To         State      `json:"to"`
}

// Status is a point-in-time view of a controller with its derived predicates.
type Status struct {
	State     State `json:"state"`
	Granted   bool  `json:"granted"`
	Denied    bool  `json:"denied"`
	Pending   bool  `json:"pending"`
	Dismissed bool  `json:"dismissed"`
}

// Controller tracks the permission state of a single capability.
type Controller struct {
	capability Capability

	mu    sync.RWMutex
	state State

	listenersMu sync.RWMutex
	listeners   []func(Change)
}

// NewController creates a controller in the unknown state.
func NewController(capability Capability) *Controller {
	return &Controller{
		capability: capability,
		state:      StateUnknown,
	}
}

// Capability returns the capability guarded by the controller.
func (c *Controller) Capability() Capability { return c.capability }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Granted reports whether access was granted.
func (c *Controller) Granted() bool { return c.State() == StateGranted }

// Denied reports whether access was denied.
func (c *Controller) Denied() bool { return c.State() == StateDenied }

// Dismissed reports whether the last prompt was dismissed.
func (c *Controller) Dismissed() bool { return c.State() == StateDismissed }

// Pending reports whether a prompt is outstanding. A dismissed prompt counts
// as pending for display purposes.
func (c *Controller) Pending() bool {
	s := c.State()

	return s == StatePending || s == StateDismissed
}

// Status returns the state together with its derived predicates.
func (c *Controller) Status() Status {
	return statusOf(c.State())
}

func statusOf(s State) Status {
	return Status{
		State:     s,
		Granted:   s == StateGranted,
		Denied:    s == StateDenied,
		Pending:   s == StatePending || s == StateDismissed,
		Dismissed: s == StateDismissed,
	}
}

// OnChange registers a listener called after every effective transition.
// Listeners run outside the controller lock.
func (c *Controller) OnChange(fn func(Change)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	c.listeners = append(c.listeners, fn)
}

// Set forces the state, e.g. when the host reports a decision made elsewhere.
// Invalid states are ignored.
func (c *Controller) Set(s State) {
	if !s.Valid() {
		return
	}

	c.transition(func(State) (State, bool) { return s, true })
}

// Request starts an access request and returns its one-shot resolver.
func (c *Controller) Request() *Request {
	var starting State

	c.transition(func(cur State) (State, bool) {
		starting = cur
		if starting == StateDismissed || starting == StatePending {
			starting = StateUnknown
		}

		if starting == StateUnknown {
			return StatePending, true
		}

		return cur, false
	})

	return &Request{controller: c, startingState: starting}
}

// transition applies fn under the lock and notifies listeners when the state
// actually changed.
func (c *Controller) transition(fn func(cur State) (State, bool)) {
	c.mu.Lock()
	from := c.state

	to, ok := fn(from)
	if ok {
		c.state = to
	}
	c.mu.Unlock()

	if !ok || from == to {
		return
	}

	c.notify(Change{Capability: c.capability, From: from, To: to})
}

func (c *Controller) notify(ch Change) {
	c.listenersMu.RLock()
	listeners := c.listeners
	c.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(ch)
	}
}
