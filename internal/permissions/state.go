package permissions

import (
	"strings"

	customerrors "github.com/bavix/avwatch/internal/errors"
)

// State is the access status of one capability.
type State string

// Permission states.
const (
	StateUnknown   State = "unknown"
	StatePending   State = "pending"
	StateGranted   State = "granted"
	StateDenied    State = "denied"
	StateDismissed State = "dismissed"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateUnknown, StatePending, StateGranted, StateDenied, StateDismissed:
		return true
	default:
		return false
	}
}

func (s State) String() string { return string(s) }

// ParseState converts a token into a State.
func ParseState(token string) (State, error) {
	s := State(strings.ToLower(strings.TrimSpace(token)))
	if !s.Valid() {
		return "", customerrors.ErrUnknownStateWithToken(token)
	}

	return s, nil
}

// Outcome is the result reported by the platform permission prompt.
type Outcome string

// Prompt outcomes.
const (
	OutcomeGranted   Outcome = "granted"
	OutcomeDenied    Outcome = "denied"
	OutcomeDismissed Outcome = "dismissed"
	OutcomeError     Outcome = "error"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeGranted, OutcomeDenied, OutcomeDismissed, OutcomeError:
		return true
	default:
		return false
	}
}

// ParseOutcome converts a token into an Outcome.
func ParseOutcome(token string) (Outcome, error) {
	o := Outcome(strings.ToLower(strings.TrimSpace(token)))
	if !o.Valid() {
		return "", customerrors.ErrUnknownOutcomeWithToken(token)
	}

	return o, nil
}

// Capability names the guarded media capability.
type Capability string

// Capabilities.
const (
	Camera     Capability = "camera"
	Microphone Capability = "microphone"
)

// ParseCapability converts a name into a Capability.
func ParseCapability(name string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(name)))
	switch c {
	case Camera, Microphone:
		return c, nil
	default:
		return "", customerrors.ErrUnknownCapabilityWithName(name)
	}
}

func (c Capability) String() string { return string(c) }
