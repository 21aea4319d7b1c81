// ABOUTME: Export and import functionality for location samples
// ABOUTME: Supports YAML backup format and markdown export

package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harper/tracker/internal/models"
	"gopkg.in/yaml.v3"
)

// BackupVersion is the current backup format version.
const BackupVersion = "1.0"

// BackupTool identifies backups written by this program.
const BackupTool = "tracker"

// Backup represents the YAML backup format.
type Backup struct {
	Version    string           `yaml:"version"`
	ExportedAt time.Time        `yaml:"exported_at"`
	Tool       string           `yaml:"tool"`
	Locations  []LocationBackup `yaml:"locations"`
}

// LocationBackup represents a sample in the backup format.
type LocationBackup struct {
	ID        string  `yaml:"id"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Timestamp int64   `yaml:"timestamp"`
}

// Reader is the read side needed by exports.
type Reader interface {
	ListLocations(ctx context.Context) ([]*models.Sample, error)
}

// Writer is the write side needed by imports.
type Writer interface {
	InsertLocation(ctx context.Context, sample *models.Sample) error
}

// ExportToYAML exports all samples, newest first, to YAML.
func ExportToYAML(ctx context.Context, store Reader) ([]byte, error) {
	samples, err := store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	backup := Backup{
		Version:    BackupVersion,
		ExportedAt: time.Now().UTC(),
		Tool:       BackupTool,
		Locations:  make([]LocationBackup, len(samples)),
	}
	for i, s := range samples {
		backup.Locations[i] = LocationBackup{
			ID:        s.ID.String(),
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Timestamp: s.Timestamp,
		}
	}

	return yaml.Marshal(backup)
}

// ParseBackup decodes and checks a YAML backup, returning its samples
// oldest first.
func ParseBackup(data []byte) ([]*models.Sample, error) {
	var backup Backup
	if err := yaml.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version: %s (expected %s)", backup.Version, BackupVersion)
	}
	if backup.Tool != BackupTool {
		return nil, fmt.Errorf("wrong tool: %s (expected %s)", backup.Tool, BackupTool)
	}

	samples := make([]*models.Sample, 0, len(backup.Locations))
	for _, lb := range backup.Locations {
		id, err := uuid.Parse(lb.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid location ID %s: %w", lb.ID, err)
		}
		samples = append(samples, &models.Sample{
			ID:        id,
			Latitude:  lb.Latitude,
			Longitude: lb.Longitude,
			Timestamp: lb.Timestamp,
		})
	}

	slices.SortStableFunc(samples, func(a, b *models.Sample) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	return samples, nil
}

// ImportFromYAML restores a YAML backup. Samples are written oldest first and
// replace any existing row with the same ID. Returns the number imported.
func ImportFromYAML(ctx context.Context, store Writer, data []byte) (int, error) {
	samples, err := ParseBackup(data)
	if err != nil {
		return 0, err
	}

	for i, s := range samples {
		if err := store.InsertLocation(ctx, s); err != nil {
			return i, fmt.Errorf("insert location %s: %w", s.ID, err)
		}
	}
	return len(samples), nil
}

// ExportToMarkdown renders all samples, newest first, as a markdown table.
func ExportToMarkdown(ctx context.Context, store Reader) ([]byte, error) {
	samples, err := store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	var sb strings.Builder

	now := time.Now().UTC()
	sb.WriteString(fmt.Sprintf("# Location Export - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	if len(samples) == 0 {
		sb.WriteString("No locations recorded.\n")
		return []byte(sb.String()), nil
	}

	sb.WriteString(fmt.Sprintf("%d locations\n\n", len(samples)))
	sb.WriteString("| Time | Latitude | Longitude |\n")
	sb.WriteString("|------|----------|-----------|\n")
	for _, s := range samples {
		sb.WriteString(fmt.Sprintf("| %s | %.6f | %.6f |\n",
			s.Time().UTC().Format("2006-01-02 15:04:05"), s.Latitude, s.Longitude))
	}

	return []byte(sb.String()), nil
}
