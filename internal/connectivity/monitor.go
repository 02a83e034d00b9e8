// Package connectivity provides the binary online/offline signal the sync
// engine reacts to. The probe is pluggable; whatever it is, an error means
// offline; connectivity is never assumed.
package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Probe checks whether the remote service is reachable. Any error is
// treated as offline.
type Probe func(ctx context.Context) error

// HTTPProbe probes a URL with a HEAD request. Any HTTP response, including
// an error status, proves connectivity; only transport failures count as
// offline.
func HTTPProbe(url string, timeout time.Duration) Probe {
	client := resty.New().SetTimeout(timeout)
	return func(ctx context.Context) error {
		if _, err := client.R().SetContext(ctx).Head(url); err != nil {
			return fmt.Errorf("connectivity: probe %s: %w", url, err)
		}
		return nil
	}
}

// Monitor debounces probe results into online/offline transitions. A flip
// is only reported after the new state has held for the dwell window, so a
// flapping link can't thrash the sync engine.
type Monitor struct {
	probe        Probe
	pollInterval time.Duration
	dwell        time.Duration
	logger       *zap.Logger

	mu             sync.RWMutex
	online         bool // starts offline: fail closed
	candidate      bool
	candidateSince time.Time
	subs           []func(online bool)
}

// NewMonitor builds a Monitor. The initial state is offline until a probe
// succeeds and holds for the dwell window.
func NewMonitor(probe Probe, pollInterval, dwell time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		probe:        probe,
		pollInterval: pollInterval,
		dwell:        dwell,
		logger:       logger,
	}
}

// IsOnline reports the current debounced state.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers a callback for debounced transitions. Callbacks run
// on the monitor's goroutine and must not block.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Run polls the probe until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, m.pollInterval)
			err := m.probe(probeCtx)
			cancel()
			m.observe(err == nil, time.Now())
		}
	}
}

// observe feeds one probe result into the debouncer. Separated from Run so
// tests can drive it with a synthetic clock.
func (m *Monitor) observe(state bool, now time.Time) {
	m.mu.Lock()

	if state == m.online {
		// Back to the committed state; abandon any pending flip.
		m.candidateSince = time.Time{}
		m.mu.Unlock()
		return
	}

	if m.candidateSince.IsZero() || m.candidate != state {
		m.candidate = state
		m.candidateSince = now
	}
	if now.Sub(m.candidateSince) < m.dwell {
		m.mu.Unlock()
		return
	}

	m.online = state
	m.candidateSince = time.Time{}
	subs := append([]func(bool){}, m.subs...)
	m.mu.Unlock()

	m.logger.Info("connectivity changed", zap.Bool("online", state))
	for _, fn := range subs {
		fn(state)
	}
}
