package devices_test

import (
	"context"
	"sync"

	"github.com/bavix/avwatch/internal/devices"
)

type fakeEnumerator struct {
	mu        sync.Mutex
	name      string
	priority  int
	batch     []devices.RawDevice
	err       error
	available bool
	calls     int
}

func newFakeEnumerator(batch ...devices.RawDevice) *fakeEnumerator {
	return &fakeEnumerator{name: "fake", batch: batch, available: true}
}

func (f *fakeEnumerator) Name() string  { return f.name }
func (f *fakeEnumerator) Priority() int { return f.priority }

func (f *fakeEnumerator) IsAvailable(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.available
}

func (f *fakeEnumerator) Enumerate(context.Context) ([]devices.RawDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	out := make([]devices.RawDevice, len(f.batch))
	copy(out, f.batch)

	return out, nil
}

func (f *fakeEnumerator) set(batch ...devices.RawDevice) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batch = batch
	f.err = nil
}

func (f *fakeEnumerator) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

func (f *fakeEnumerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

type fakeNotifier struct {
	mu           sync.Mutex
	fns          []func()
	unsubscribed int
}

func (n *fakeNotifier) Subscribe(fn func()) func() {
	n.mu.Lock()
	n.fns = append(n.fns, fn)
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		n.unsubscribed++
		n.fns = nil
		n.mu.Unlock()
	}
}

func (n *fakeNotifier) fire() {
	n.mu.Lock()
	fns := append([]func(){}, n.fns...)
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func syncScheduler(fn func()) { fn() }

func newSyncManager(enumerator devices.Enumerator, opts ...devices.Option) *devices.Manager {
	opts = append(opts, devices.WithScheduler(syncScheduler))

	return devices.New(context.Background(), enumerator, opts...)
}

func cam(id, label string) devices.RawDevice {
	return devices.RawDevice{DeviceID: id, Label: label, Kind: string(devices.KindVideoInput)}
}

func mic(id, label string) devices.RawDevice {
	return devices.RawDevice{DeviceID: id, Label: label, Kind: string(devices.KindAudioInput)}
}

func speaker(id, label string) devices.RawDevice {
	return devices.RawDevice{DeviceID: id, Label: label, Kind: string(devices.KindAudioOutput)}
}

func ids(list []*devices.Device) []string {
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, d.DeviceID)
	}

	return out
}
