package devices_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavix/avwatch/internal/devices"
	customerrors "github.com/bavix/avwatch/internal/errors"
	"github.com/bavix/avwatch/internal/permissions"
)

func TestSourceManager_OrdersByPriority(t *testing.T) {
	t.Parallel()

	low := newFakeEnumerator(mic("m1", ""))
	low.name, low.priority = "low", 10

	high := newFakeEnumerator(cam("c1", ""))
	high.name, high.priority = "high", 100

	sm := devices.NewSourceManager(low, high)

	strategies := sm.Strategies()
	require.Len(t, strategies, 2)
	assert.Equal(t, "high", strategies[0].Name())
	assert.Equal(t, 100, sm.Priority())
	assert.Equal(t, "composite", sm.Name())

	raws, err := sm.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []devices.RawDevice{cam("c1", ""), mic("m1", "")}, raws)
}

func TestSourceManager_SkipsUnavailableAndFailing(t *testing.T) {
	t.Parallel()

	off := newFakeEnumerator(cam("c1", ""))
	off.available = false

	broken := newFakeEnumerator()
	broken.fail(errHostBusy)

	ok := newFakeEnumerator(speaker("s1", ""))

	sm := devices.NewSourceManager(off, broken, ok)
	assert.True(t, sm.IsAvailable(context.Background()))

	raws, err := sm.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []devices.RawDevice{speaker("s1", "")}, raws)
	assert.Equal(t, 0, off.callCount())
}

func TestSourceManager_AllFailing(t *testing.T) {
	t.Parallel()

	broken := newFakeEnumerator()
	broken.fail(errHostBusy)

	sm := devices.NewSourceManager(broken)

	_, err := sm.Enumerate(context.Background())
	require.ErrorIs(t, err, customerrors.ErrNoEnumeratorSucceeded)
}

func TestSourceManager_Empty(t *testing.T) {
	t.Parallel()

	sm := devices.NewSourceManager()

	assert.False(t, sm.IsAvailable(context.Background()))
	assert.Equal(t, 0, sm.Priority())

	raws, err := sm.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, raws)
}

func TestLabelRedactor(t *testing.T) {
	t.Parallel()

	in := []devices.RawDevice{
		cam("c1", "Front"),
		{DeviceID: "c2", Label: "Legacy", Kind: "video"},
		mic("m1", "Built-in"),
		speaker("s1", "Desk"),
		{DeviceID: "x", Label: "Hologram", Kind: "hologram"},
	}

	tests := []struct {
		name   string
		access devices.Access
		want   []string
	}{
		{
			name:   "nothing granted",
			access: devices.Access{Camera: permissions.StateUnknown, Microphone: permissions.StatePending},
			want:   []string{"", "", "", "", ""},
		},
		{
			name:   "camera granted",
			access: devices.Access{Camera: permissions.StateGranted, Microphone: permissions.StateDenied},
			want:   []string{"Front", "Legacy", "", "", ""},
		},
		{
			name:   "microphone granted",
			access: devices.Access{Camera: permissions.StateDismissed, Microphone: permissions.StateGranted},
			want:   []string{"", "", "Built-in", "Desk", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := devices.NewLabelRedactor().Decorate(context.Background(), tt.access, in)
			require.NoError(t, err)
			require.Len(t, out, len(in))

			labels := make([]string, 0, len(out))
			for _, d := range out {
				labels = append(labels, d.Label)
			}

			assert.Equal(t, tt.want, labels)
			assert.Equal(t, "Front", in[0].Label)
		})
	}
}
