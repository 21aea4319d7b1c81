// ABOUTME: Location data-access interface and the repository over it
// ABOUTME: The repository forwards to the store and optionally mirrors writes

package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/harper/tracker/internal/models"
)

// LocationStore defines the data-access operations for location samples.
type LocationStore interface {
	InsertLocation(ctx context.Context, sample *models.Sample) error
	ListLocations(ctx context.Context) ([]*models.Sample, error)
	WatchLocations(ctx context.Context) (<-chan []*models.Sample, error)
	LatestLocation(ctx context.Context) (*models.Sample, error)
	CountLocations(ctx context.Context) (int, error)
	ClearLocations(ctx context.Context) error
	Close() error
}

// Mirror receives a copy of every successful local write.
type Mirror interface {
	PutLocation(sample *models.Sample) error
	ClearLocations() error
}

// LocationRepository is the single entry point the rest of the app uses for
// samples. Reads go straight to the store; writes are validated, stored, and
// then copied to the mirror if one is attached.
type LocationRepository struct {
	store  LocationStore
	mirror Mirror
	logger *log.Logger
}

// NewLocationRepository wraps a store. mirror and logger may be nil.
func NewLocationRepository(store LocationStore, mirror Mirror, logger *log.Logger) *LocationRepository {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LocationRepository{store: store, mirror: mirror, logger: logger}
}

// Store returns the underlying store.
func (r *LocationRepository) Store() LocationStore {
	return r.store
}

// InsertLocation validates and stores a sample.
func (r *LocationRepository) InsertLocation(ctx context.Context, sample *models.Sample) error {
	if sample == nil {
		return fmt.Errorf("%w: nil sample", ErrInvalidSample)
	}
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}
	if err := r.store.InsertLocation(ctx, sample); err != nil {
		return err
	}
	if r.mirror != nil {
		if err := r.mirror.PutLocation(sample); err != nil {
			r.logger.Warn("mirror insert failed", "id", sample.ID, "err", err)
		}
	}
	return nil
}

// AllLocations returns every sample, newest first.
func (r *LocationRepository) AllLocations(ctx context.Context) ([]*models.Sample, error) {
	return r.store.ListLocations(ctx)
}

// WatchLocations streams the newest-first list on every change.
func (r *LocationRepository) WatchLocations(ctx context.Context) (<-chan []*models.Sample, error) {
	return r.store.WatchLocations(ctx)
}

// LatestLocation returns the most recent sample or ErrNotFound.
func (r *LocationRepository) LatestLocation(ctx context.Context) (*models.Sample, error) {
	return r.store.LatestLocation(ctx)
}

// CountLocations returns how many samples are stored.
func (r *LocationRepository) CountLocations(ctx context.Context) (int, error) {
	return r.store.CountLocations(ctx)
}

// ClearLocations deletes every sample locally and in the mirror.
func (r *LocationRepository) ClearLocations(ctx context.Context) error {
	if err := r.store.ClearLocations(ctx); err != nil {
		return err
	}
	if r.mirror != nil {
		if err := r.mirror.ClearLocations(); err != nil {
			r.logger.Warn("mirror clear failed", "err", err)
		}
	}
	return nil
}

// Close closes the underlying store.
func (r *LocationRepository) Close() error {
	return r.store.Close()
}
