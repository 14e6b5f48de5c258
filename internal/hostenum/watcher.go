package hostenum

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	customerrors "github.com/bavix/avwatch/internal/errors"
)

// Watcher turns filesystem events under device directories (or a device
// list file) into topology-change notifications. It implements
// devices.TopologyNotifier.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     []string
	match     func(name string) bool

	mu      sync.RWMutex
	subs    map[int]func()
	nextID  int
	started bool
	done    chan struct{}
}

// NewWatcher creates a watcher for paths. When match is set, only events on
// names it accepts are reported.
func NewWatcher(paths []string, match func(name string) bool) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		paths:     append([]string(nil), paths...),
		match:     match,
		subs:      make(map[int]func()),
		done:      make(chan struct{}),
	}, nil
}

// Subscribe registers fn for every topology change.
func (w *Watcher) Subscribe(fn func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.subs[id] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		delete(w.subs, id)
	}
}

// Start adds the paths and processes events until ctx is done or the
// watcher is closed. Paths that cannot be watched are logged and skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()

		return customerrors.ErrWatcherAlreadyStarted
	}

	w.started = true
	w.mu.Unlock()

	logger := zerolog.Ctx(ctx)

	for _, p := range w.paths {
		if err := w.fsWatcher.Add(p); err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("failed to watch path")
		}
	}

	go w.loop(ctx)

	return nil
}

// Done is closed when the event loop has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	logger := zerolog.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = w.fsWatcher.Close()

			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}

			if w.match != nil && !w.match(event.Name) {
				continue
			}

			logger.Debug().
				Str("path", event.Name).
				Str("op", event.Op.String()).
				Msg("device topology change detected")

			// atomic replacement of a watched file drops the watch
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.rewatch(event.Name)
			}

			w.notify()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}

			logger.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

func (w *Watcher) rewatch(name string) {
	for _, p := range w.paths {
		if p == name {
			_ = w.fsWatcher.Add(name)
		}
	}
}

func (w *Watcher) notify() {
	w.mu.RLock()
	subs := make([]func(), 0, len(w.subs))

	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
