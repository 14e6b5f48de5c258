package devices

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	customerrors "github.com/bavix/avwatch/internal/errors"
)

// SourceManager combines several enumerators into one. Results are
// concatenated in priority order; enumerators that are unavailable or fail are
// skipped.
type SourceManager struct {
	strategies []Enumerator
}

// NewSourceManager creates a new source manager.
func NewSourceManager(strategies ...Enumerator) *SourceManager {
	sm := &SourceManager{strategies: make([]Enumerator, 0, len(strategies))}
	for _, s := range strategies {
		sm.AddStrategy(s)
	}

	return sm
}

// AddStrategy adds an enumerator, keeping the list ordered by priority.
func (sm *SourceManager) AddStrategy(strategy Enumerator) {
	sm.strategies = append(sm.strategies, strategy)

	sort.SliceStable(sm.strategies, func(i, j int) bool {
		return sm.strategies[i].Priority() > sm.strategies[j].Priority()
	})
}

// Strategies returns the enumerators in priority order.
func (sm *SourceManager) Strategies() []Enumerator {
	out := make([]Enumerator, len(sm.strategies))
	copy(out, sm.strategies)

	return out
}

// Name returns the strategy name.
func (sm *SourceManager) Name() string { return "composite" }

// Priority returns the highest priority of the composed enumerators.
func (sm *SourceManager) Priority() int {
	if len(sm.strategies) == 0 {
		return 0
	}

	return sm.strategies[0].Priority()
}

// IsAvailable reports whether at least one enumerator is available.
func (sm *SourceManager) IsAvailable(ctx context.Context) bool {
	for _, s := range sm.strategies {
		if s.IsAvailable(ctx) {
			return true
		}
	}

	return false
}

// Enumerate runs every available enumerator. It fails only when enumerators
// were available and none of them succeeded.
func (sm *SourceManager) Enumerate(ctx context.Context) ([]RawDevice, error) {
	logger := zerolog.Ctx(ctx)

	var (
		all       []RawDevice
		attempted int
		succeeded int
	)

	for _, strategy := range sm.strategies {
		if !strategy.IsAvailable(ctx) {
			continue
		}

		attempted++

		devices, err := strategy.Enumerate(ctx)
		if err != nil {
			logger.Warn().
				Str("enumerator", strategy.Name()).
				Err(err).
				Msg("device enumeration failed")

			continue
		}

		succeeded++

		logger.Debug().
			Str("enumerator", strategy.Name()).
			Int("devices_found", len(devices)).
			Msg("enumerated devices")

		all = append(all, devices...)
	}

	if attempted > 0 && succeeded == 0 {
		return nil, customerrors.ErrNoEnumeratorSucceeded
	}

	return all, nil
}
