package devices

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	customerrors "github.com/bavix/avwatch/internal/errors"
	"github.com/bavix/avwatch/internal/metrics"
	"github.com/bavix/avwatch/internal/permissions"
)

// Manager owns the device catalog, its classified views and the camera and
// microphone permission controllers, and keeps them consistent.
type Manager struct {
	// Collaborators
	enumerator Enumerator
	decorators []DeviceDecorator
	notifier   TopologyNotifier
	schedule   func(fn func())
	timeout    time.Duration

	// Storage
	mu           sync.RWMutex
	catalog      *Catalog
	views        *ClassifiedViews
	knownDevices bool
	preferred    map[Role]string
	lastRefresh  time.Time

	camera     *permissions.Controller
	microphone *permissions.Controller

	subsMu    sync.RWMutex
	subs      map[int]func(Event)
	nextSubID int

	// Lifecycle
	ctx                 context.Context //nolint:containedctx // parent of triggered refreshes
	cancel              context.CancelFunc
	closeMu             sync.RWMutex
	closed              bool
	wg                  sync.WaitGroup
	unsubscribeTopology func()
}

// Snapshot is a consistent copy of the whole observable state.
type Snapshot struct {
	KnownDevices bool               `json:"known_devices"`
	Devices      []*Device          `json:"devices"`
	Cameras      []*Device          `json:"cameras"`
	Microphones  []*Device          `json:"microphones"`
	Speakers     []*Device          `json:"speakers"`
	Camera       permissions.Status `json:"camera"`
	Microphone   permissions.Status `json:"microphone"`
	Preferred    map[Role]string    `json:"preferred"`
	LastRefresh  time.Time          `json:"last_refresh"`
}

// New creates a manager, seeds the placeholder devices and schedules the first
// refresh. A nil enumerator behaves like a host without the capability.
// The logger in ctx is used for background work; cancelling ctx stops
// triggered refreshes.
func New(ctx context.Context, enumerator Enumerator, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(ctx)

	m := &Manager{
		enumerator: enumerator,
		catalog:    NewCatalog(),
		views:      NewClassifiedViews(),
		preferred:  make(map[Role]string),
		camera:     permissions.NewController(permissions.Camera),
		microphone: permissions.NewController(permissions.Microphone),
		subs:       make(map[int]func(Event)),
		ctx:        ctx,
		cancel:     cancel,
	}
	m.schedule = m.spawn

	for _, opt := range opts {
		opt(m)
	}

	m.catalog.Set(placeholders())
	m.views.Rebuild(m.catalog)
	m.publishCounts(m.countsLocked())
	metrics.SetKnownDevices(false)

	m.camera.OnChange(m.onPermissionChange)
	m.microphone.OnChange(m.onPermissionChange)

	if m.notifier != nil {
		m.unsubscribeTopology = m.notifier.Subscribe(func() {
			m.trigger(TriggerTopology)
		})
	}

	m.trigger(TriggerStartup)

	return m
}

// Close stops listening for topology changes and waits for triggered
// refreshes to finish.
func (m *Manager) Close() error {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()

		return nil
	}

	m.closed = true
	m.closeMu.Unlock()

	if m.unsubscribeTopology != nil {
		m.unsubscribeTopology()
	}

	m.cancel()
	m.wg.Wait()

	return nil
}

// KnownDevices reports whether the last refresh returned real devices.
func (m *Manager) KnownDevices() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.knownDevices
}

// LastRefresh returns the time of the last refresh that merged devices.
func (m *Manager) LastRefresh() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastRefresh
}

// Devices returns every known device in catalog order.
func (m *Manager) Devices() []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.catalog.Devices()
}

// Cameras returns the video inputs.
func (m *Manager) Cameras() []*Device { return m.viewDevices(RoleCamera) }

// Microphones returns the audio inputs.
func (m *Manager) Microphones() []*Device { return m.viewDevices(RoleMicrophone) }

// Speakers returns the audio outputs.
func (m *Manager) Speakers() []*Device { return m.viewDevices(RoleSpeaker) }

// DevicesByRole returns the members of the view for role.
func (m *Manager) DevicesByRole(role Role) ([]*Device, error) {
	if m.views.ByRole(role) == nil {
		return nil, customerrors.ErrUnknownDeviceRoleWithName(string(role))
	}

	return m.viewDevices(role), nil
}

func (m *Manager) viewDevices(role Role) []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.views.ByRole(role).Devices()
}

// GetDeviceByID returns a device by id.
func (m *Manager) GetDeviceByID(id string) (*Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.catalog.Get(id)
}

// FindCameraByLabel returns the first camera whose label is exactly label,
// or nil.
func (m *Manager) FindCameraByLabel(label string) *Device {
	return m.findByLabel(RoleCamera, label)
}

// FindMicrophoneByLabel returns the first microphone whose label is exactly
// label, or nil.
func (m *Manager) FindMicrophoneByLabel(label string) *Device {
	return m.findByLabel(RoleMicrophone, label)
}

// FindByLabel looks a label up in the view for role.
func (m *Manager) FindByLabel(role Role, label string) (*Device, error) {
	if m.views.ByRole(role) == nil {
		return nil, customerrors.ErrUnknownDeviceRoleWithName(string(role))
	}

	return m.findByLabel(role, label), nil
}

func (m *Manager) findByLabel(role Role, label string) *Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.views.ByRole(role).FindByLabel(label)
}

// Camera returns the camera permission controller.
func (m *Manager) Camera() *permissions.Controller { return m.camera }

// Microphone returns the microphone permission controller.
func (m *Manager) Microphone() *permissions.Controller { return m.microphone }

// Permission returns the controller for a capability.
func (m *Manager) Permission(c permissions.Capability) (*permissions.Controller, error) {
	switch c {
	case permissions.Camera:
		return m.camera, nil
	case permissions.Microphone:
		return m.microphone, nil
	default:
		return nil, customerrors.ErrUnknownCapabilityWithName(string(c))
	}
}

// RequestCameraAccess starts a camera access request.
func (m *Manager) RequestCameraAccess() *permissions.Request { return m.camera.Request() }

// RequestMicrophoneAccess starts a microphone access request.
func (m *Manager) RequestMicrophoneAccess() *permissions.Request { return m.microphone.Request() }

// Access returns the current permission states.
func (m *Manager) Access() Access {
	return Access{
		Camera:     m.camera.State(),
		Microphone: m.microphone.State(),
	}
}

// Snapshot returns the whole observable state read under one lock.
func (m *Manager) Snapshot() Snapshot {
	camera := m.camera.Status()
	microphone := m.microphone.Status()

	m.mu.RLock()
	defer m.mu.RUnlock()

	preferred := make(map[Role]string, len(m.preferred))
	for role, id := range m.preferred {
		preferred[role] = id
	}

	return Snapshot{
		KnownDevices: m.knownDevices,
		Devices:      m.catalog.Devices(),
		Cameras:      m.views.Cameras.Devices(),
		Microphones:  m.views.Microphones.Devices(),
		Speakers:     m.views.Speakers.Devices(),
		Camera:       camera,
		Microphone:   microphone,
		Preferred:    preferred,
		LastRefresh:  m.lastRefresh,
	}
}

func (m *Manager) onPermissionChange(ch permissions.Change) {
	metrics.RecordPermissionTransition(ch.Capability.String(), ch.To.String())

	zerolog.Ctx(m.ctx).Info().
		Str("capability", ch.Capability.String()).
		Str("from", ch.From.String()).
		Str("to", ch.To.String()).
		Msg("permission state changed")

	m.emit(Event{Type: EventPermission, Permission: &ch})

	// labels are withheld until access is granted
	if ch.To == permissions.StateGranted {
		m.trigger(TriggerPermission)
	}
}

// trigger schedules an automatic refresh unless the manager is closed.
func (m *Manager) trigger(reason string) {
	if m.ctx.Err() != nil {
		return
	}

	metrics.IncRefreshTrigger(reason)

	m.schedule(func() {
		m.refresh(m.ctx, reason)
	})
}

func (m *Manager) spawn(fn func()) {
	m.closeMu.RLock()
	defer m.closeMu.RUnlock()

	if m.closed {
		return
	}

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		fn()
	}()
}

type roleCounts struct {
	all, cameras, microphones, speakers int
}

// countsLocked must be called with m.mu held (or before the manager is shared).
func (m *Manager) countsLocked() roleCounts {
	return roleCounts{
		all:         m.catalog.Len(),
		cameras:     m.views.Cameras.Len(),
		microphones: m.views.Microphones.Len(),
		speakers:    m.views.Speakers.Len(),
	}
}

func (m *Manager) publishCounts(c roleCounts) {
	metrics.SetCatalogDevices("all", c.all)
	metrics.SetCatalogDevices(string(RoleCamera), c.cameras)
	metrics.SetCatalogDevices(string(RoleMicrophone), c.microphones)
	metrics.SetCatalogDevices(string(RoleSpeaker), c.speakers)
}
