package devices_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavix/avwatch/internal/devices"
	customerrors "github.com/bavix/avwatch/internal/errors"
	"github.com/bavix/avwatch/internal/metrics"
	"github.com/bavix/avwatch/internal/permissions"
)

var errHostBusy = errors.New("host busy")

func TestNew_WithoutEnumerator(t *testing.T) {
	t.Parallel()

	m := newSyncManager(nil)
	defer m.Close()

	assert.False(t, m.KnownDevices())
	assert.Equal(t, []string{devices.PlaceholderAudioID, devices.PlaceholderVideoID}, ids(m.Devices()))
	assert.Equal(t, []string{devices.PlaceholderVideoID}, ids(m.Cameras()))
	assert.Equal(t, []string{devices.PlaceholderAudioID}, ids(m.Microphones()))
	assert.Empty(t, m.Speakers())

	assert.Equal(t, "Generic Camera", m.Cameras()[0].Name())
	assert.Equal(t, permissions.StateUnknown, m.Camera().State())
	assert.Equal(t, permissions.StateUnknown, m.Microphone().State())
}

func TestNew_UnavailableEnumerator(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "A"))
	enum.available = false

	m := newSyncManager(enum)
	defer m.Close()

	assert.False(t, m.KnownDevices())
	assert.Len(t, m.Devices(), 2)
	assert.Equal(t, 0, enum.callCount())
}

func TestNew_StartupRefreshReplacesPlaceholders(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"), mic("m1", "Built-in"), speaker("s1", "Speakers"))

	m := newSyncManager(enum)
	defer m.Close()

	assert.True(t, m.KnownDevices())
	assert.Equal(t, 1, enum.callCount())
	assert.Equal(t, []string{"c1", "m1", "s1"}, ids(m.Devices()))
	assert.Equal(t, []string{"c1"}, ids(m.Cameras()))
	assert.Equal(t, []string{"m1"}, ids(m.Microphones()))
	assert.Equal(t, []string{"s1"}, ids(m.Speakers()))
	assert.False(t, m.LastRefresh().IsZero())
}

func TestRefresh_EmptyResultKeepsCatalog(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"), mic("m1", "Built-in"))

	m := newSyncManager(enum)
	defer m.Close()

	before := m.Devices()

	enum.set()

	res := m.Refresh(context.Background())
	assert.Equal(t, metrics.OutcomeEmpty, res.Outcome)
	assert.False(t, res.KnownDevices)
	assert.False(t, m.KnownDevices())
	assert.Equal(t, before, m.Devices())
}

func TestRefresh_FailureKeepsCatalog(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"))

	m := newSyncManager(enum)
	defer m.Close()

	enum.fail(errHostBusy)

	res := m.Refresh(context.Background())
	assert.Equal(t, metrics.OutcomeError, res.Outcome)
	assert.False(t, m.KnownDevices())
	assert.Equal(t, []string{"c1"}, ids(m.Devices()))
}

func TestRefresh_AllDescriptorsInvalidCountsAsEmpty(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"))

	m := newSyncManager(enum)
	defer m.Close()

	enum.set(devices.RawDevice{Kind: "video"}, devices.RawDevice{Label: "x"})

	res := m.Refresh(context.Background())
	assert.Equal(t, metrics.OutcomeEmpty, res.Outcome)
	assert.Equal(t, 2, res.Merge.Dropped)
	assert.False(t, m.KnownDevices())
	assert.Equal(t, []string{"c1"}, ids(m.Devices()))
}

func TestRefresh_NonEmptyResultMerges(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator()

	m := newSyncManager(enum)
	defer m.Close()

	require.False(t, m.KnownDevices())

	enum.set(cam("c1", "Front"), devices.RawDevice{ID: "legacy", Kind: "audio"}, speaker("s1", ""))

	res := m.Refresh(context.Background())
	assert.Equal(t, metrics.OutcomeOK, res.Outcome)
	assert.True(t, m.KnownDevices())
	assert.Equal(t, 3, res.Merge.Added)
	assert.Equal(t, 2, res.Merge.Removed)
	assert.Equal(t, []string{"c1", "legacy", "s1"}, ids(m.Devices()))
	assert.Equal(t, []string{"legacy"}, ids(m.Microphones()))

	enum.set(cam("c2", "Back"), cam("c1", "Front"))
	m.Refresh(context.Background())

	assert.Equal(t, []string{"c1", "c2"}, ids(m.Cameras()))
	assert.Empty(t, m.Microphones())
	assert.Empty(t, m.Speakers())
}

func TestRefresh_UnchangedRecordsStayIdentical(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"), mic("m1", "Built-in"))

	m := newSyncManager(enum)
	defer m.Close()

	camera := m.FindCameraByLabel("Front")
	require.NotNil(t, camera)

	enum.set(cam("c1", "Front"), mic("m1", "USB"))
	m.Refresh(context.Background())

	assert.Same(t, camera, m.FindCameraByLabel("Front"))
	assert.Nil(t, m.FindMicrophoneByLabel("Built-in"))
	assert.NotNil(t, m.FindMicrophoneByLabel("USB"))
}

func TestFindByLabel(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"), mic("m1", "Front"), speaker("s1", "Desk"))

	m := newSyncManager(enum)
	defer m.Close()

	assert.Nil(t, m.FindCameraByLabel("Nonexistent"))

	camera := m.FindCameraByLabel("Front")
	require.NotNil(t, camera)

	stored, ok := m.GetDeviceByID("c1")
	require.True(t, ok)
	assert.Same(t, stored, camera)

	microphone := m.FindMicrophoneByLabel("Front")
	require.NotNil(t, microphone)
	assert.Equal(t, "m1", microphone.DeviceID)

	s, err := m.FindByLabel(devices.RoleSpeaker, "Desk")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "s1", s.DeviceID)

	_, err = m.FindByLabel("projector", "Desk")
	require.ErrorIs(t, err, customerrors.ErrUnknownDeviceRole)
}

func TestTopologyChangeTriggersRefresh(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"))
	notifier := &fakeNotifier{}

	m := newSyncManager(enum, devices.WithTopologyNotifier(notifier))

	enum.set(cam("c1", "Front"), cam("c2", "USB"))
	notifier.fire()

	assert.Equal(t, 2, enum.callCount())
	assert.Equal(t, []string{"c1", "c2"}, ids(m.Cameras()))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 1, notifier.unsubscribed)

	notifier.fire()
	assert.Equal(t, 2, enum.callCount())
}

func TestPermissionGrantTriggersRefresh(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", ""), mic("m1", ""))

	m := newSyncManager(enum, devices.WithDecorators(devices.NewLabelRedactor()))
	defer m.Close()

	enum.set(cam("c1", "Front"), mic("m1", "Built-in"))

	// labels stay hidden until access is granted
	m.Refresh(context.Background())
	assert.Nil(t, m.FindCameraByLabel("Front"))
	assert.Equal(t, "Generic Camera", m.Cameras()[0].Name())

	req := m.RequestCameraAccess()
	assert.Equal(t, permissions.StatePending, m.Camera().State())
	assert.Equal(t, 2, enum.callCount())

	require.True(t, req.Resolve(permissions.OutcomeGranted))
	assert.Equal(t, 3, enum.callCount())
	assert.NotNil(t, m.FindCameraByLabel("Front"))
	assert.Nil(t, m.FindMicrophoneByLabel("Built-in"))

	m.RequestMicrophoneAccess().Resolve(permissions.OutcomeDenied)
	assert.Equal(t, 3, enum.callCount())
	assert.Equal(t, permissions.StateDenied, m.Microphone().State())

	m.Microphone().Set(permissions.StateGranted)
	assert.Equal(t, 4, enum.callCount())
	assert.NotNil(t, m.FindMicrophoneByLabel("Built-in"))
}

func TestPermission(t *testing.T) {
	t.Parallel()

	m := newSyncManager(nil)
	defer m.Close()

	c, err := m.Permission(permissions.Camera)
	require.NoError(t, err)
	assert.Same(t, m.Camera(), c)

	c, err = m.Permission(permissions.Microphone)
	require.NoError(t, err)
	assert.Same(t, m.Microphone(), c)

	_, err = m.Permission("screen")
	require.ErrorIs(t, err, customerrors.ErrUnknownCapability)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator()

	m := newSyncManager(enum)
	defer m.Close()

	var (
		mu     sync.Mutex
		events []devices.Event
	)

	unsubscribe := m.Subscribe(func(ev devices.Event) {
		// views must already be consistent when an event is delivered
		if ev.Type == devices.EventDevices {
			assert.Len(t, m.Cameras(), 1)
		}

		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	enum.set(cam("c1", "Front"))
	m.Refresh(context.Background())
	m.Refresh(context.Background())

	m.RequestCameraAccess()

	require.NoError(t, m.SetPreferred(devices.RoleCamera, "c1"))

	unsubscribe()
	m.Camera().Set(permissions.StateDenied)

	mu.Lock()
	defer mu.Unlock()

	types := make([]devices.EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}

	assert.Equal(t, []devices.EventType{
		devices.EventDevices,
		devices.EventKnownDevices,
		devices.EventPermission,
		devices.EventPreferred,
	}, types)

	require.NotNil(t, events[1].KnownDevices)
	assert.True(t, *events[1].KnownDevices)
	require.NotNil(t, events[2].Permission)
	assert.Equal(t, permissions.StatePending, events[2].Permission.To)
}

func TestPreferred(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"), cam("c2", "USB"), mic("m1", ""))

	m := newSyncManager(enum)
	defer m.Close()

	assert.Nil(t, m.Preferred(devices.RoleCamera))

	require.NoError(t, m.SetPreferred(devices.RoleCamera, "c2"))
	assert.Equal(t, "c2", m.Preferred(devices.RoleCamera).DeviceID)

	err := m.SetPreferred(devices.RoleCamera, "m1")
	require.ErrorIs(t, err, customerrors.ErrDeviceNotFound)

	err = m.SetPreferred("projector", "c1")
	require.ErrorIs(t, err, customerrors.ErrUnknownDeviceRole)

	enum.set(cam("c1", "Front"), mic("m1", ""))
	m.Refresh(context.Background())
	assert.Nil(t, m.Preferred(devices.RoleCamera))

	enum.set(cam("c1", "Front"), cam("c2", "USB"), mic("m1", ""))
	m.Refresh(context.Background())
	assert.Equal(t, "c2", m.Preferred(devices.RoleCamera).DeviceID)

	require.NoError(t, m.SetPreferred(devices.RoleCamera, ""))
	assert.Nil(t, m.Preferred(devices.RoleCamera))
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"), mic("m1", "Built-in"))

	m := newSyncManager(enum)
	defer m.Close()

	m.Microphone().Set(permissions.StateGranted)
	require.NoError(t, m.SetPreferred(devices.RoleMicrophone, "m1"))

	s := m.Snapshot()
	assert.True(t, s.KnownDevices)
	assert.Equal(t, []string{"c1", "m1"}, ids(s.Devices))
	assert.Equal(t, []string{"c1"}, ids(s.Cameras))
	assert.Equal(t, []string{"m1"}, ids(s.Microphones))
	assert.Empty(t, s.Speakers)
	assert.True(t, s.Microphone.Granted)
	assert.Equal(t, permissions.StateUnknown, s.Camera.State)
	assert.Equal(t, "m1", s.Preferred[devices.RoleMicrophone])
}

func TestDevicesByRole(t *testing.T) {
	t.Parallel()

	m := newSyncManager(newFakeEnumerator(speaker("s1", "")))
	defer m.Close()

	list, err := m.DevicesByRole(devices.RoleSpeaker)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids(list))

	_, err = m.DevicesByRole("projector")
	require.ErrorIs(t, err, customerrors.ErrUnknownDeviceRole)
}

func TestManager_AsyncRefreshesFinishBeforeClose(t *testing.T) {
	t.Parallel()

	enum := newFakeEnumerator(cam("c1", "Front"))
	notifier := &fakeNotifier{}

	m := devices.New(context.Background(), enum, devices.WithTopologyNotifier(notifier))

	for range 10 {
		notifier.fire()
	}

	require.NoError(t, m.Close())

	calls := enum.callCount()
	assert.Equal(t, 11, calls)
	assert.True(t, m.KnownDevices())
	assert.Equal(t, []string{"c1"}, ids(m.Devices()))

	notifier.fire()
	m.Camera().Set(permissions.StateGranted)
	assert.Equal(t, calls, enum.callCount())
}

type blockingEnumerator struct{}

func (blockingEnumerator) Name() string                     { return "blocking" }
func (blockingEnumerator) Priority() int                    { return 0 }
func (blockingEnumerator) IsAvailable(context.Context) bool { return true }

func (blockingEnumerator) Enumerate(ctx context.Context) ([]devices.RawDevice, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

func TestRefresh_EnumerationTimeout(t *testing.T) {
	t.Parallel()

	m := newSyncManager(blockingEnumerator{}, devices.WithEnumerationTimeout(10*time.Millisecond))
	defer m.Close()

	res := m.Refresh(t.Context())

	assert.Equal(t, metrics.OutcomeError, res.Outcome)
	assert.False(t, m.KnownDevices())
	assert.Equal(t, []string{devices.PlaceholderAudioID, devices.PlaceholderVideoID}, ids(m.Devices()))
}
