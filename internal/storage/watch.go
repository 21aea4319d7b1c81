// ABOUTME: Reactive "all locations, newest first" query
// ABOUTME: Re-emits the ordered list after every change, latest value wins

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/harper/tracker/internal/models"
)

// broadcaster fans a "something changed" signal out to every subscriber.
// Each subscriber holds at most one pending signal, so writers never block.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan struct{}]struct{})}
}

func (b *broadcaster) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *broadcaster) notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// WatchLocations emits the full newest-first list immediately and again after
// every insert or clear. A consumer that falls behind only ever sees the most
// recent list. The channel is closed when ctx is done or the store is closed.
func (s *SQLiteDB) WatchLocations(ctx context.Context) (<-chan []*models.Sample, error) {
	if s.fileWatch {
		if err := s.startFileWatch(); err != nil {
			return nil, err
		}
	}

	changed := s.changes.subscribe()
	out := make(chan []*models.Sample, 1)

	go func() {
		defer close(out)
		defer s.changes.unsubscribe(changed)

		var last []*models.Sample
		first := true
		for {
			samples, err := s.ListLocations(ctx)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("watch query failed", "err", err)
			case first || !sameSamples(last, samples):
				first = false
				last = samples
				// Only this goroutine sends, so dropping the unread value
				// leaves room for the fresh one.
				select {
				case <-out:
				default:
				}
				out <- samples
			}

			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-changed:
			}
		}
	}()

	return out, nil
}

// startFileWatch watches the database directory so writes from other
// processes wake local watchers. It runs until the store is closed.
func (s *SQLiteDB) startFileWatch() error {
	s.watchOnce.Do(func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			s.watchErr = fmt.Errorf("create watcher: %w", err)
			return
		}
		if err := watcher.Add(filepath.Dir(s.path)); err != nil {
			_ = watcher.Close()
			s.watchErr = fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
			return
		}

		base := filepath.Base(s.path)
		go func() {
			defer func() { _ = watcher.Close() }()
			for {
				select {
				case <-s.done:
					return
				case evt, ok := <-watcher.Events:
					if !ok {
						return
					}
					if strings.HasPrefix(filepath.Base(evt.Name), base) &&
						evt.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						s.changes.notify()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					s.logger.Warn("database watcher error", "err", err)
				}
			}
		}()
	})
	return s.watchErr
}

func sameSamples(a, b []*models.Sample) bool {
	return slices.EqualFunc(a, b, func(x, y *models.Sample) bool {
		return *x == *y
	})
}
