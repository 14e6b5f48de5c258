package devices

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bavix/avwatch/internal/metrics"
)

// RefreshResult describes one completed refresh.
type RefreshResult struct {
	Outcome      string        `json:"outcome"`
	KnownDevices bool          `json:"known_devices"`
	Merge        MergeResult   `json:"merge"`
	Duration     time.Duration `json:"duration"`
}

// Refresh enumerates the host devices and merges them into the catalog.
// An absent capability, a failure or an empty result clears KnownDevices but
// keeps the catalog as it was. Overlapping refreshes are not sequenced; the
// last one to finish wins.
func (m *Manager) Refresh(ctx context.Context) RefreshResult {
	return m.refresh(ctx, TriggerManual)
}

func (m *Manager) refresh(ctx context.Context, reason string) RefreshResult {
	logger := zerolog.Ctx(ctx)
	start := time.Now()
	access := m.Access()

	raws, err := m.enumerate(ctx)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("reason", reason).
			Msg("device enumeration failed, keeping last known devices")
	}

	raws = m.decorate(ctx, access, raws)

	devices, dropped := NormalizeAll(raws)
	metrics.AddDroppedDescriptors(dropped)

	if dropped > 0 {
		logger.Debug().Int("dropped", dropped).Msg("dropped device descriptors without identifier")
	}

	if len(devices) == 0 {
		outcome := metrics.OutcomeEmpty
		if err != nil {
			outcome = metrics.OutcomeError
		}

		return m.finishEmpty(ctx, reason, outcome, dropped, start)
	}

	m.mu.Lock()
	res := m.catalog.Merge(devices)
	res.Dropped = dropped

	if res.Changed() {
		m.views.Rebuild(m.catalog)
	}

	knownChanged := !m.knownDevices
	m.knownDevices = true
	m.lastRefresh = time.Now()
	counts := m.countsLocked()
	m.mu.Unlock()

	elapsed := time.Since(start)

	m.publishCounts(counts)
	metrics.SetKnownDevices(true)
	metrics.RecordRefresh(metrics.OutcomeOK, elapsed)

	logger.Debug().
		Str("reason", reason).
		Int("total_devices", counts.all).
		Int("cameras", counts.cameras).
		Int("microphones", counts.microphones).
		Int("speakers", counts.speakers).
		Int("added", res.Added).
		Int("updated", res.Updated).
		Int("removed", res.Removed).
		Dur("duration", elapsed).
		Msg("device refresh completed")

	events := make([]Event, 0, 2)

	if res.Changed() {
		merge := res
		events = append(events, Event{Type: EventDevices, Merge: &merge})
	}

	if knownChanged {
		known := true
		events = append(events, Event{Type: EventKnownDevices, KnownDevices: &known})
	}

	m.emit(events...)

	return RefreshResult{
		Outcome:      metrics.OutcomeOK,
		KnownDevices: true,
		Merge:        res,
		Duration:     elapsed,
	}
}

func (m *Manager) finishEmpty(ctx context.Context, reason, outcome string, dropped int, start time.Time) RefreshResult {
	m.mu.Lock()
	knownChanged := m.knownDevices
	m.knownDevices = false
	m.mu.Unlock()

	elapsed := time.Since(start)

	metrics.SetKnownDevices(false)
	metrics.RecordRefresh(outcome, elapsed)

	zerolog.Ctx(ctx).Debug().
		Str("reason", reason).
		Str("outcome", outcome).
		Msg("device refresh returned no devices")

	if knownChanged {
		known := false
		m.emit(Event{Type: EventKnownDevices, KnownDevices: &known})
	}

	return RefreshResult{
		Outcome:  outcome,
		Merge:    MergeResult{Dropped: dropped},
		Duration: elapsed,
	}
}

func (m *Manager) enumerate(ctx context.Context) ([]RawDevice, error) {
	if m.enumerator == nil || !m.enumerator.IsAvailable(ctx) {
		return nil, nil
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	return m.enumerator.Enumerate(ctx)
}

func (m *Manager) decorate(ctx context.Context, access Access, raws []RawDevice) []RawDevice {
	if len(raws) == 0 {
		return raws
	}

	for _, decorator := range m.decorators {
		decorated, err := decorator.Decorate(ctx, access, raws)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("device decorator failed")

			continue
		}

		raws = decorated
	}

	return raws
}
