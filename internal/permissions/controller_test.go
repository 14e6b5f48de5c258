package permissions_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/bavix/avwatch/internal/errors"
	"github.com/bavix/avwatch/internal/permissions"
)

func TestNewController(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)

	assert.Equal(t, permissions.Camera, c.Capability())
	assert.Equal(t, permissions.StateUnknown, c.State())
	assert.False(t, c.Granted())
	assert.False(t, c.Denied())
	assert.False(t, c.Pending())
	assert.False(t, c.Dismissed())
}

func TestController_RequestFromUnknownGoesPending(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)

	req := c.Request()

	assert.Equal(t, permissions.StatePending, c.State())
	assert.True(t, c.Pending())
	assert.Equal(t, permissions.StateUnknown, req.StartingState())
	assert.Equal(t, permissions.Camera, req.Capability())
}

//nolint:funlen
func TestController_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		initial  permissions.State
		outcome  permissions.Outcome
		expected permissions.State
	}{
		{"unknown granted", permissions.StateUnknown, permissions.OutcomeGranted, permissions.StateGranted},
		{"unknown denied", permissions.StateUnknown, permissions.OutcomeDenied, permissions.StateDenied},
		{"unknown dismissed", permissions.StateUnknown, permissions.OutcomeDismissed, permissions.StateDismissed},
		{"unknown error", permissions.StateUnknown, permissions.OutcomeError, permissions.StateUnknown},
		{"pending error reverts to unknown", permissions.StatePending, permissions.OutcomeError, permissions.StateUnknown},
		{"dismissed error reverts to unknown", permissions.StateDismissed, permissions.OutcomeError, permissions.StateUnknown},
		{"dismissed granted", permissions.StateDismissed, permissions.OutcomeGranted, permissions.StateGranted},
		{"granted denied", permissions.StateGranted, permissions.OutcomeDenied, permissions.StateDenied},
		{"denied granted", permissions.StateDenied, permissions.OutcomeGranted, permissions.StateGranted},
		{"granted dismissed is ignored", permissions.StateGranted, permissions.OutcomeDismissed, permissions.StateGranted},
		{"denied dismissed is ignored", permissions.StateDenied, permissions.OutcomeDismissed, permissions.StateDenied},
		{"granted error keeps granted", permissions.StateGranted, permissions.OutcomeError, permissions.StateGranted},
		{"denied error keeps denied", permissions.StateDenied, permissions.OutcomeError, permissions.StateDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := permissions.NewController(permissions.Microphone)
			c.Set(tt.initial)

			req := c.Request()
			assert.True(t, req.Resolve(tt.outcome))
			assert.Equal(t, tt.expected, c.State())
		})
	}
}

func TestController_RequestDoesNotRegressResolvedState(t *testing.T) {
	t.Parallel()

	for _, s := range []permissions.State{permissions.StateGranted, permissions.StateDenied} {
		c := permissions.NewController(permissions.Camera)
		c.Set(s)

		req := c.Request()

		assert.Equal(t, s, c.State())
		assert.Equal(t, s, req.StartingState())
	}
}

func TestController_StaleDismissAfterExternalGrant(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)

	req := c.Request()
	require.Equal(t, permissions.StatePending, c.State())

	c.Set(permissions.StateGranted)
	req.Resolve(permissions.OutcomeDismissed)

	assert.Equal(t, permissions.StateGranted, c.State())
}

func TestController_ErrorRestoresCoercedStartingState(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)
	c.Set(permissions.StateDismissed)

	req := c.Request()
	require.Equal(t, permissions.StatePending, c.State())

	req.Resolve(permissions.OutcomeError)

	assert.Equal(t, permissions.StateUnknown, c.State())
}

func TestRequest_OneShot(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)
	req := c.Request()

	assert.False(t, req.Resolved())
	assert.True(t, req.Resolve(permissions.OutcomeGranted))
	assert.True(t, req.Resolved())

	assert.False(t, req.Resolve(permissions.OutcomeDenied))
	assert.Equal(t, permissions.StateGranted, c.State())
}

func TestRequest_UnknownOutcomeIsIgnored(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)
	req := c.Request()

	assert.False(t, req.Resolve(permissions.Outcome("maybe")))
	assert.False(t, req.Resolved())
	assert.Equal(t, permissions.StatePending, c.State())
}

func TestController_DismissedCountsAsPending(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Microphone)
	c.Request().Resolve(permissions.OutcomeDismissed)

	status := c.Status()
	assert.Equal(t, permissions.StateDismissed, status.State)
	assert.True(t, status.Dismissed)
	assert.True(t, status.Pending)
	assert.False(t, status.Granted)
	assert.False(t, status.Denied)
}

func TestController_OnChange(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)

	var (
		mu      sync.Mutex
		changes []permissions.Change
	)

	c.OnChange(func(ch permissions.Change) {
		mu.Lock()
		defer mu.Unlock()

		changes = append(changes, ch)
	})

	req := c.Request()
	req.Resolve(permissions.OutcomeGranted)
	c.Set(permissions.StateGranted) // no-op, same state
	c.Set(permissions.State("bogus"))

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, changes, 2)
	assert.Equal(t, permissions.Change{
		Capability: permissions.Camera, From: permissions.StateUnknown, To: permissions.StatePending,
	}, changes[0])
	assert.Equal(t, permissions.Change{
		Capability: permissions.Camera, From: permissions.StatePending, To: permissions.StateGranted,
	}, changes[1])
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()

	o, err := permissions.ParseOutcome(" Granted ")
	require.NoError(t, err)
	assert.Equal(t, permissions.OutcomeGranted, o)

	_, err = permissions.ParseOutcome("later")
	require.ErrorIs(t, err, customerrors.ErrUnknownOutcome)
}

func TestParseCapability(t *testing.T) {
	t.Parallel()

	c, err := permissions.ParseCapability("MICROPHONE")
	require.NoError(t, err)
	assert.Equal(t, permissions.Microphone, c)

	_, err = permissions.ParseCapability("speaker")
	require.ErrorIs(t, err, customerrors.ErrUnknownCapability)
}
