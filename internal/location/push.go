// ABOUTME: Push location provider
// ABOUTME: Accepts fixes submitted from outside (HTTP) and delivers them per interval

package location

import (
	"context"
	"fmt"
	"time"

	"github.com/harper/tracker/internal/models"
)

// Push is fed by Submit, typically from a phone app posting to the HTTP API.
type Push struct {
	now   func() time.Time
	batch batcher
}

// NewPush creates an empty push provider.
func NewPush() *Push {
	return &Push{now: time.Now}
}

// Name implements Provider.
func (p *Push) Name() string {
	return "push"
}

// Submit validates and queues fixes for the next delivery. Fixes without a
// time are stamped with the current time.
func (p *Push) Submit(fixes ...Fix) error {
	for i := range fixes {
		if err := models.ValidateCoordinates(fixes[i].Latitude, fixes[i].Longitude); err != nil {
			return fmt.Errorf("fix %d: %w", i, err)
		}
	}
	stamped := make([]Fix, len(fixes))
	for i, f := range fixes {
		if f.Time.IsZero() {
			f.Time = p.now()
		}
		stamped[i] = f
	}
	p.batch.add(stamped...)
	return nil
}

// LastLocation implements Provider.
func (p *Push) LastLocation(_ context.Context) (*Fix, error) {
	return p.batch.latest(), nil
}

// RequestUpdates implements Provider. Fixes submitted while nobody is
// subscribed are discarded when the next subscription starts.
func (p *Push) RequestUpdates(ctx context.Context, interval time.Duration, fn func(Result)) (func(), error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	_ = p.batch.take()

	sub, ctx := newSubscription(ctx)
	sub.goRun(func() { p.batch.deliver(ctx, interval, fn) })
	return sub.stop, nil
}
