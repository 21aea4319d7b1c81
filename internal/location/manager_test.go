// ABOUTME: Tests for the location manager
// ABOUTME: Uses a scripted provider to check batching, empty results, and teardown

package location

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider hands whatever is sent on results to the callback.
type scriptedProvider struct {
	last     *Fix
	lastErr  error
	reqErr   error
	results  chan Result
	interval time.Duration
	removed  atomic.Bool
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{results: make(chan Result)}
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) LastLocation(context.Context) (*Fix, error) {
	return p.last, p.lastErr
}

func (p *scriptedProvider) RequestUpdates(ctx context.Context, interval time.Duration, fn func(Result)) (func(), error) {
	if p.reqErr != nil {
		return nil, p.reqErr
	}
	p.interval = interval

	sub, ctx := newSubscription(ctx)
	sub.goRun(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-p.results:
				fn(r)
			}
		}
	})
	return func() {
		sub.stop()
		p.removed.Store(true)
	}, nil
}

func fixAt(lat, lng float64) Fix {
	return Fix{Latitude: lat, Longitude: lng, Time: time.Unix(1700000000, 0)}
}

func receive(t *testing.T, ch <-chan Fix) Fix {
	t.Helper()
	select {
	case f, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fix")
	}
	return Fix{}
}

func TestManager_GetLocation(t *testing.T) {
	p := newScriptedProvider()
	m := NewManager(p)

	_, err := m.GetLocation(context.Background())
	assert.ErrorIs(t, err, ErrNoLocation)

	want := fixAt(41.8781, -87.6298)
	p.last = &want
	got, err := m.GetLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	p.lastErr = errors.New("permission denied")
	_, err = m.GetLocation(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

func TestManager_Defaults(t *testing.T) {
	m := NewManager(newScriptedProvider(), WithInterval(0))
	assert.Equal(t, DefaultInterval, m.Interval())

	m = NewManager(newScriptedProvider(), WithInterval(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, m.Interval())
}

func TestManager_TrackLocationEmitsLastOfBatch(t *testing.T) {
	p := newScriptedProvider()
	empties := make(chan struct{}, 1)
	m := NewManager(p, WithEmptyResultHook(func() { empties <- struct{}{} }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.TrackLocation(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, p.interval)

	p.results <- Result{Fixes: []Fix{fixAt(1, 1), fixAt(2, 2), fixAt(3, 3)}}
	assert.Equal(t, fixAt(3, 3), receive(t, ch))

	p.results <- Result{}
	select {
	case <-empties:
	case <-time.After(5 * time.Second):
		t.Fatal("empty result hook not called")
	}

	p.results <- Result{Fixes: []Fix{fixAt(4, 4)}}
	assert.Equal(t, fixAt(4, 4), receive(t, ch))
}

func TestManager_TrackLocationTeardown(t *testing.T) {
	p := newScriptedProvider()
	m := NewManager(p)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := m.TrackLocation(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected channel to close")
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.True(t, p.removed.Load(), "subscription should be removed")
}

func TestManager_TrackLocationRequestError(t *testing.T) {
	p := newScriptedProvider()
	p.reqErr = errors.New("location unavailable")
	m := NewManager(p)

	_, err := m.TrackLocation(context.Background())
	assert.ErrorContains(t, err, "location unavailable")
}

func TestResult_Last(t *testing.T) {
	_, ok := Result{}.Last()
	assert.False(t, ok)

	f, ok := Result{Fixes: []Fix{fixAt(1, 2), fixAt(3, 4)}}.Last()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f.Latitude)
}
