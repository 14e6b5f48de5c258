package permissions_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/bavix/avwatch/internal/errors"
	"github.com/bavix/avwatch/internal/permissions"
)

func TestRegistry_Resolve(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)
	r := permissions.NewRegistry(0, 0)

	id := r.Add(c.Request())
	require.NotEmpty(t, id)
	assert.Equal(t, 1, r.Len())

	req, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, permissions.Camera, req.Capability())

	require.NoError(t, r.Resolve(id, permissions.OutcomeGranted))
	assert.Equal(t, permissions.StateGranted, c.State())
	assert.Equal(t, 0, r.Len())

	err := r.Resolve(id, permissions.OutcomeDenied)
	require.ErrorIs(t, err, customerrors.ErrRequestNotFound)
	assert.Equal(t, permissions.StateGranted, c.State())
}

func TestRegistry_UnknownOutcomeKeepsRequest(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Microphone)
	r := permissions.NewRegistry(0, 0)

	id := r.Add(c.Request())

	err := r.Resolve(id, permissions.Outcome("maybe"))
	require.ErrorIs(t, err, customerrors.ErrUnknownOutcome)

	_, ok := r.Get(id)
	assert.True(t, ok)
	assert.Equal(t, permissions.StatePending, c.State())
}

func TestRegistry_ResolvedElsewhere(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)
	r := permissions.NewRegistry(0, 0)

	req := c.Request()
	id := r.Add(req)

	require.True(t, req.Resolve(permissions.OutcomeDenied))

	err := r.Resolve(id, permissions.OutcomeGranted)
	require.ErrorIs(t, err, customerrors.ErrRequestAlreadyResolved)
	assert.Equal(t, permissions.StateDenied, c.State())
}

func TestRegistry_EvictionResolvesWithError(t *testing.T) {
	t.Parallel()

	first := permissions.NewController(permissions.Camera)
	second := permissions.NewController(permissions.Microphone)
	r := permissions.NewRegistry(1, time.Minute)

	id := r.Add(first.Request())
	assert.Equal(t, permissions.StatePending, first.State())

	r.Add(second.Request())

	_, ok := r.Get(id)
	assert.False(t, ok)

	assert.Eventually(t, func() bool {
		return first.State() == permissions.StateUnknown
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, permissions.StatePending, second.State())
}

func TestRegistry_ExpiryResolvesWithError(t *testing.T) {
	t.Parallel()

	c := permissions.NewController(permissions.Camera)
	r := permissions.NewRegistry(4, 20*time.Millisecond)

	id := r.Add(c.Request())

	assert.Eventually(t, func() bool {
		_, ok := r.Get(id)

		return !ok && c.State() == permissions.StateUnknown
	}, time.Second, 10*time.Millisecond)
}

func TestParseState(t *testing.T) {
	t.Parallel()

	s, err := permissions.ParseState(" Granted ")
	require.NoError(t, err)
	assert.Equal(t, permissions.StateGranted, s)

	_, err = permissions.ParseState("maybe")
	require.ErrorIs(t, err, customerrors.ErrUnknownState)
}
