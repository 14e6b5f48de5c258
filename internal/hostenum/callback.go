package hostenum

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bavix/avwatch/internal/devices"
	customerrors "github.com/bavix/avwatch/internal/errors"
)

const defaultCallbackTimeout = 5 * time.Second

// SourcesFunc is the legacy callback convention: it reports the device list
// by calling cb once, possibly from another goroutine.
type SourcesFunc func(cb func([]devices.RawDevice))

// Callback adapts a SourcesFunc to devices.Enumerator.
type Callback struct {
	name    string
	sources SourcesFunc
	timeout time.Duration
}

// NewCallback creates a callback enumerator. A non-positive timeout selects
// the default.
func NewCallback(name string, sources SourcesFunc, timeout time.Duration) *Callback {
	if timeout <= 0 {
		timeout = defaultCallbackTimeout
	}

	return &Callback{name: name, sources: sources, timeout: timeout}
}

// Name returns the enumerator name.
func (c *Callback) Name() string { return c.name }

// Priority returns the enumerator priority.
func (c *Callback) Priority() int { return PriorityCallback }

// IsAvailable reports whether a source function is set.
func (c *Callback) IsAvailable(context.Context) bool { return c.sources != nil }

// Enumerate waits for the first callback. Later callbacks are ignored.
func (c *Callback) Enumerate(ctx context.Context) ([]devices.RawDevice, error) {
	if c.sources == nil {
		return nil, customerrors.ErrEnumeratorUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var once sync.Once

	result := make(chan []devices.RawDevice, 1)

	go c.sources(func(list []devices.RawDevice) {
		once.Do(func() {
			out := make([]devices.RawDevice, len(list))
			copy(out, list)
			result <- out
		})
	})

	select {
	case list := <-result:
		return list, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", customerrors.ErrEnumerationTimeout, c.name, ctx.Err())
	}
}

// Func adapts a plain enumeration function to devices.Enumerator.
type Func func(ctx context.Context) ([]devices.RawDevice, error)

// Name returns the enumerator name.
func (f Func) Name() string { return "func" }

// Priority returns the enumerator priority.
func (f Func) Priority() int { return PriorityCallback }

// IsAvailable reports whether the function is set.
func (f Func) IsAvailable(context.Context) bool { return f != nil }

// Enumerate calls the function.
func (f Func) Enumerate(ctx context.Context) ([]devices.RawDevice, error) {
	if f == nil {
		return nil, customerrors.ErrEnumeratorUnavailable
	}

	return f(ctx)
}
