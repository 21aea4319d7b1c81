// ABOUTME: Location manager wrapping a provider
// ABOUTME: Single best-known fetch plus a continuous stream of fixes

package location

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Manager turns a callback-driven Provider into a one-shot fetch and a
// channel of fixes.
type Manager struct {
	provider Provider
	interval time.Duration
	logger   *log.Logger
	onEmpty  func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *log.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithEmptyResultHook is called whenever a provider delivers a batch
// with no fixes. Push and gpsd skip quiet intervals instead of delivering
// them, so in practice this fires for a replay that has run out of track.
func WithEmptyResultHook(fn func()) ManagerOption {
	return func(m *Manager) {
		m.onEmpty = fn
	}
}

// NewManager creates a manager over the given provider.
func NewManager(provider Provider, opts ...ManagerOption) *Manager {
	m := &Manager{
		provider: provider,
		interval: DefaultInterval,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Provider returns the wrapped provider.
func (m *Manager) Provider() Provider {
	return m.provider
}

// Interval returns the update interval.
func (m *Manager) Interval() time.Duration {
	return m.interval
}

// GetLocation fetches the best-known location once.
func (m *Manager) GetLocation(ctx context.Context) (*Fix, error) {
	fix, err := m.provider.LastLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("last location from %s: %w", m.provider.Name(), err)
	}
	if fix == nil {
		return nil, ErrNoLocation
	}
	return fix, nil
}

// TrackLocation streams one fix per provider delivery: the last fix of each
// batch. Empty batches produce nothing. The channel is closed, and the
// provider subscription removed, once ctx is done.
func (m *Manager) TrackLocation(ctx context.Context) (<-chan Fix, error) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Fix)

	stop, err := m.provider.RequestUpdates(ctx, m.interval, func(r Result) {
		fix, ok := r.Last()
		if !ok {
			if m.onEmpty != nil {
				m.onEmpty()
			}
			return
		}
		select {
		case out <- fix:
		case <-ctx.Done():
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("request updates from %s: %w", m.provider.Name(), err)
	}

	m.logger.Debug("location updates requested", "provider", m.provider.Name(), "interval", m.interval)

	go func() {
		defer cancel()
		<-ctx.Done()
		stop()
		close(out)
		m.logger.Debug("location updates removed", "provider", m.provider.Name())
	}()

	return out, nil
}
