// ABOUTME: Tests for the reactive location query
// ABOUTME: Covers initial emission, change re-emission, and shutdown

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/tracker/internal/models"
)

// next waits for the next emission or fails the test.
func next(t *testing.T, ch <-chan []*models.Sample) []*models.Sample {
	t.Helper()
	select {
	case samples, ok := <-ch:
		if !ok {
			t.Fatal("watch channel closed unexpectedly")
		}
		return samples
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch emission")
	}
	return nil
}

// waitFor reads emissions until one has n samples.
func waitFor(t *testing.T, ch <-chan []*models.Sample, n int) []*models.Sample {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case samples, ok := <-ch:
			if !ok {
				t.Fatal("watch channel closed unexpectedly")
			}
			if len(samples) == n {
				return samples
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d samples", n)
		}
	}
}

func TestWatchLocations_InitialEmission(t *testing.T) {
	db := testDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.InsertLocation(ctx, sampleAt(1, 1, 0)); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	ch, err := db.WatchLocations(ctx)
	if err != nil {
		t.Fatalf("failed to watch: %v", err)
	}

	samples := next(t, ch)
	if len(samples) != 1 {
		t.Errorf("got %d samples, want 1", len(samples))
	}
}

func TestWatchLocations_EmptyInitialEmission(t *testing.T) {
	db := testDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := db.WatchLocations(ctx)
	if err != nil {
		t.Fatalf("failed to watch: %v", err)
	}

	samples := next(t, ch)
	if len(samples) != 0 {
		t.Errorf("got %d samples, want 0", len(samples))
	}
}

func TestWatchLocations_EmitsOnInsertAndClear(t *testing.T) {
	db := testDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := db.WatchLocations(ctx)
	if err != nil {
		t.Fatalf("failed to watch: %v", err)
	}
	_ = next(t, ch)

	if err := db.InsertLocation(ctx, sampleAt(1, 1, 0)); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	newer := sampleAt(2, 2, 1)
	if err := db.InsertLocation(ctx, newer); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	samples := waitFor(t, ch, 2)
	if samples[0].ID != newer.ID {
		t.Error("expected newest sample first")
	}

	if err := db.ClearLocations(ctx); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	_ = waitFor(t, ch, 0)
}

func TestWatchLocations_SlowConsumerSeesLatest(t *testing.T) {
	db := testDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := db.WatchLocations(ctx)
	if err != nil {
		t.Fatalf("failed to watch: %v", err)
	}

	// Never read while writing; inserts must not block.
	for i := 0; i < 20; i++ {
		if err := db.InsertLocation(ctx, sampleAt(0, float64(i), i)); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}

	samples := waitFor(t, ch, 20)
	if samples[0].Longitude != 19 {
		t.Errorf("expected newest sample first, got lng %f", samples[0].Longitude)
	}
}

func TestWatchLocations_ClosesOnCancel(t *testing.T) {
	db := testDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := db.WatchLocations(ctx)
	if err != nil {
		t.Fatalf("failed to watch: %v", err)
	}
	_ = next(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A final emission may race with cancel; the close must follow.
			if _, ok := <-ch; ok {
				t.Error("expected channel to close after cancel")
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch channel did not close after cancel")
	}
}

func TestWatchLocations_ClosesOnStoreClose(t *testing.T) {
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}

	ch, err := db.WatchLocations(context.Background())
	if err != nil {
		t.Fatalf("failed to watch: %v", err)
	}
	_ = next(t, ch)
	_ = db.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close after store close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch channel did not close after store close")
	}
}

func TestWatchLocations_SeesOtherConnection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, err := NewSQLiteDB(dbPath, WithFileWatch())
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	writer, err := NewSQLiteDB(dbPath)
	if err != nil {
		t.Fatalf("failed to open writer: %v", err)
	}
	defer writer.Close()

	ch, err := reader.WatchLocations(ctx)
	if err != nil {
		t.Fatalf("failed to watch: %v", err)
	}
	_ = next(t, ch)

	if err := writer.InsertLocation(ctx, sampleAt(3, 3, 0)); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	_ = waitFor(t, ch, 1)
}
