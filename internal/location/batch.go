// ABOUTME: Interval batching shared by streaming providers
// ABOUTME: Collects fixes as they arrive and flushes them once per tick

package location

import (
	"context"
	"sync"
	"time"
)

// batcher accumulates fixes between deliveries and remembers the latest.
type batcher struct {
	mu      sync.Mutex
	pending []Fix
	last    *Fix
}

func (b *batcher) add(fixes ...Fix) {
	if len(fixes) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, fixes...)
	f := fixes[len(fixes)-1]
	b.last = &f
}

func (b *batcher) take() []Fix {
	b.mu.Lock()
	defer b.mu.Unlock()
	fixes := b.pending
	b.pending = nil
	return fixes
}

func (b *batcher) latest() *Fix {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return nil
	}
	f := *b.last
	return &f
}

// deliver flushes the batch to fn every interval until ctx is done.
// Intervals with nothing collected are skipped.
func (b *batcher) deliver(ctx context.Context, interval time.Duration, fn func(Result)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if fixes := b.take(); len(fixes) > 0 {
				fn(Result{Fixes: fixes})
			}
		}
	}
}

// subscription runs background goroutines for one RequestUpdates call and
// gives back a cancel that waits for all of them.
type subscription struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSubscription(parent context.Context) (*subscription, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &subscription{cancel: cancel}, ctx
}

func (s *subscription) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *subscription) stop() {
	s.cancel()
	s.wg.Wait()
}
