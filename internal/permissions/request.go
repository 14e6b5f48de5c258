package permissions

import (
	"sync/atomic"
)

// Request is the one-shot resolver handed out by Controller.Request.
type Request struct {
	controller    *Controller
	startingState State
	used          atomic.Bool
}

// Capability returns the capability the request was made for.
func (r *Request) Capability() Capability { return r.controller.capability }

// StartingState returns the state captured when the request was made,
// with pending and dismissed already coerced to unknown.
func (r *Request) StartingState() State { return r.startingState }

// Resolved reports whether Resolve has already consumed the request.
func (r *Request) Resolved() bool { return r.used.Load() }

// Resolve applies the prompt outcome. Only the first call has any effect; it
// returns false for later calls and for unknown outcomes. A dismissal only
// lands while the live state is still pending, and an error restores the
// captured starting state.
func (r *Request) Resolve(outcome Outcome) bool {
	if !outcome.Valid() {
		return false
	}

	if !r.used.CompareAndSwap(false, true) {
		return false
	}

	r.controller.transition(func(cur State) (State, bool) {
		switch outcome {
		case OutcomeGranted:
			return StateGranted, true
		case OutcomeDenied:
			return StateDenied, true
		case OutcomeDismissed:
			if cur == StatePending {
				return StateDismissed, true
			}

			return cur, false
		default:
			return r.startingState, true
		}
	})

	return true
}
