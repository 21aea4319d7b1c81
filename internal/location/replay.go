// ABOUTME: Replay location provider
// ABOUTME: Plays back a recorded track file one point per interval

package location

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harper/tracker/internal/geojson"
	"github.com/harper/tracker/internal/storage"
)

// Replay emits the points of a recorded track in order, one per interval.
type Replay struct {
	points []Fix
	loop   bool
	now    func() time.Time

	mu   sync.Mutex
	next int
	last *Fix
}

// NewReplay builds a provider from points already in memory.
func NewReplay(points []Fix, loop bool) *Replay {
	return &Replay{points: points, loop: loop, now: time.Now}
}

// LoadReplay reads a track from a GeoJSON file or a YAML backup (.yaml/.yml).
func LoadReplay(path string, loop bool) (*Replay, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user config
	if err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}

	var points []Fix
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		samples, err := storage.ParseBackup(data)
		if err != nil {
			return nil, err
		}
		for _, s := range samples {
			points = append(points, Fix{Latitude: s.Latitude, Longitude: s.Longitude, Time: s.Time()})
		}
	default:
		coords, err := geojson.ParseTrack(data)
		if err != nil {
			return nil, err
		}
		for _, c := range coords {
			points = append(points, Fix{Latitude: c[1], Longitude: c[0]})
		}
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("track %s has no points", path)
	}
	return NewReplay(points, loop), nil
}

// Name implements Provider.
func (r *Replay) Name() string {
	return "replay"
}

// LastLocation returns the most recently replayed point, or the start of
// the track if playback has not begun.
func (r *Replay) LastLocation(_ context.Context) (*Fix, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != nil {
		f := *r.last
		return &f, nil
	}
	if len(r.points) == 0 {
		return nil, nil
	}
	f := r.points[0]
	if f.Time.IsZero() {
		f.Time = r.now()
	}
	return &f, nil
}

// advance returns the next point stamped with the current time. At the end
// of a non-looping track it returns an empty result.
func (r *Replay) advance() Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next >= len(r.points) {
		if !r.loop || len(r.points) == 0 {
			return Result{}
		}
		r.next = 0
	}
	f := r.points[r.next]
	f.Time = r.now()
	r.next++
	r.last = &f
	return Result{Fixes: []Fix{f}}
}

// RequestUpdates implements Provider. Playback continues where the previous
// subscription stopped.
func (r *Replay) RequestUpdates(ctx context.Context, interval time.Duration, fn func(Result)) (func(), error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}

	sub, ctx := newSubscription(ctx)
	sub.goRun(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(r.advance())
			}
		}
	})
	return sub.stop, nil
}
