// ABOUTME: Location fix types and the provider interface
// ABOUTME: Providers push batches of fixes through a callback at an interval

package location

import (
	"context"
	"errors"
	"time"
)

// DefaultInterval is how often providers are asked to deliver updates.
const DefaultInterval = time.Second

// ErrNoLocation is returned when no location is known yet.
var ErrNoLocation = errors.New("no location available")

// Fix is a single position report from a provider.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Time      time.Time `json:"time"`
	// Accuracy is the horizontal error estimate in metres, 0 if unknown.
	Accuracy float64 `json:"accuracy,omitempty"`
}

// Result is one delivery from a provider. It may hold several fixes
// gathered since the previous delivery, oldest first, or none at all.
type Result struct {
	Fixes []Fix
}

// Last returns the most recent fix in the batch.
func (r Result) Last() (Fix, bool) {
	if len(r.Fixes) == 0 {
		return Fix{}, false
	}
	return r.Fixes[len(r.Fixes)-1], true
}

// Provider is a source of device locations.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// LastLocation returns the best-known location, or nil with no error
	// when nothing is known yet.
	LastLocation(ctx context.Context) (*Fix, error)

	// RequestUpdates starts delivering results to fn roughly every
	// interval. fn is never called concurrently with itself. The returned
	// cancel stops delivery and does not return until fn has returned for
	// the last time.
	RequestUpdates(ctx context.Context, interval time.Duration, fn func(Result)) (cancel func(), err error)
}
