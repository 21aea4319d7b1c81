// ABOUTME: Location sample mirror on Charm KV
// ABOUTME: Stores samples as JSON under location:<uuid> keys and copies to and from local storage

package charm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/charm/kv"
	"github.com/google/uuid"
	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/storage"
)

// Client mirrors what the local repository stores.
var _ storage.Mirror = (*Client)(nil)

// ErrNotFound is returned when a sample is not in the KV store.
var ErrNotFound = errors.New("not found")

func locationKey(id uuid.UUID) []byte {
	return []byte(LocationPrefix + id.String())
}

// PutLocation stores or replaces a sample.
func (c *Client) PutLocation(s *models.Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	return c.Do(func(k *kv.KV) error {
		if err := k.Set(locationKey(s.ID), data); err != nil {
			return fmt.Errorf("set location: %w", err)
		}
		return nil
	})
}

// GetLocation retrieves a sample by ID.
func (c *Client) GetLocation(id uuid.UUID) (*models.Sample, error) {
	var data []byte
	err := c.DoReadOnly(func(k *kv.KV) error {
		var err error
		data, err = k.Get(locationKey(id))
		return err
	})
	if err != nil {
		if errors.Is(err, kv.ErrMissingKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}

	var s models.Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal location: %w", err)
	}
	return &s, nil
}

// ListLocations returns every mirrored sample, newest first.
func (c *Client) ListLocations(_ context.Context) ([]*models.Sample, error) {
	samples := []*models.Sample{}
	err := c.DoReadOnly(func(k *kv.KV) error {
		keys, err := k.Keys()
		if err != nil {
			return err
		}
		for _, key := range keys {
			if !bytes.HasPrefix(key, []byte(LocationPrefix)) {
				continue
			}
			data, err := k.Get(key)
			if err != nil {
				continue
			}
			var s models.Sample
			if err := json.Unmarshal(data, &s); err != nil {
				continue
			}
			samples = append(samples, &s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp > samples[j].Timestamp
	})
	return samples, nil
}

// ClearLocations deletes every mirrored sample.
func (c *Client) ClearLocations() error {
	return c.Do(func(k *kv.KV) error {
		keys, err := k.Keys()
		if err != nil {
			return err
		}
		for _, key := range keys {
			if !bytes.HasPrefix(key, []byte(LocationPrefix)) {
				continue
			}
			if err := k.Delete(key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		return nil
	})
}

// SyncSummary reports what a copy moved.
type SyncSummary struct {
	Pushed int `json:"pushed"`
	Pulled int `json:"pulled"`
}

// Push copies local samples missing from the mirror.
func (c *Client) Push(ctx context.Context, local storage.Reader) (int, error) {
	samples, err := local.ListLocations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list local locations: %w", err)
	}

	var pushed int
	err = c.Do(func(k *kv.KV) error {
		for _, s := range samples {
			key := locationKey(s.ID)
			if _, err := k.Get(key); err == nil {
				continue
			} else if !errors.Is(err, kv.ErrMissingKey) {
				return fmt.Errorf("get %s: %w", key, err)
			}
			data, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal location: %w", err)
			}
			if err := k.Set(key, data); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
			pushed++
		}
		return nil
	})
	return pushed, err
}

// Pull copies mirrored samples into local storage. Existing rows with the
// same ID are replaced.
func (c *Client) Pull(ctx context.Context, local storage.Writer) (int, error) {
	samples, err := c.ListLocations(ctx)
	if err != nil {
		return 0, err
	}
	for i := len(samples) - 1; i >= 0; i-- {
		if err := local.InsertLocation(ctx, samples[i]); err != nil {
			return len(samples) - 1 - i, fmt.Errorf("insert location %s: %w", samples[i].ID, err)
		}
	}
	return len(samples), nil
}

// LocalStore is what a two-way sync needs from local storage.
type LocalStore interface {
	storage.Reader
	storage.Writer
}

// SyncNow pulls then pushes, leaving both sides with the union of samples.
func (c *Client) SyncNow(ctx context.Context, local LocalStore) (*SyncSummary, error) {
	pulled, err := c.Pull(ctx, local)
	if err != nil {
		return nil, err
	}
	pushed, err := c.Push(ctx, local)
	if err != nil {
		return nil, err
	}
	return &SyncSummary{Pushed: pushed, Pulled: pulled}, nil
}
