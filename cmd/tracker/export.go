// ABOUTME: Export command for GeoJSON, markdown, YAML, and JSON output
// ABOUTME: Supports time filtering and both the track and point map views

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/harper/tracker/internal/geojson"
	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/storage"
	"github.com/spf13/cobra"
)

// durationRegex matches relative duration strings like "24h", "7d", "1w", "1m".
var durationRegex = regexp.MustCompile(`^(\d+)([hdwm])$`)

const (
	formatGeoJSON  = "geojson"
	formatPoints   = "points"
	formatMarkdown = "markdown"
	formatYAML     = "yaml"
	formatJSON     = "json"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"e"},
	Short:   "Export recorded locations in various formats",
	Long: `Export recorded locations as a GeoJSON track, GeoJSON points, Markdown,
YAML (backup), or JSON.

Examples:
  # Track with Start and End markers, ready for a map
  tracker export --format geojson

  # One Point per sample
  tracker export --format points

  # Export with time filter (relative)
  tracker export --since 24h
  tracker export --since 7d

  # Export with time filter (absolute)
  tracker export --from 2024-12-01 --to 2024-12-14

  # Backup everything
  tracker export --format yaml --output backup.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case formatGeoJSON, formatPoints, formatMarkdown, formatYAML, formatJSON:
		default:
			return fmt.Errorf("unsupported format: %s (use 'geojson', 'points', 'markdown', 'yaml', or 'json')", format)
		}

		window, err := parseWindow(cmd)
		if err != nil {
			return err
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		all, err := store.ListLocations(ctx)
		if err != nil {
			return fmt.Errorf("failed to list locations: %w", err)
		}
		samples := window.filter(all)

		data, err := render(ctx, format, samples)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			if err := os.WriteFile(output, data, 0644); err != nil { //nolint:gosec // 0644 is intentional for data export files
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %d locations to %s\n", len(samples), output)
			return nil
		}
		fmt.Print(string(data))
		return nil
	},
}

// sampleList serves an already filtered slice to the storage exporters.
type sampleList []*models.Sample

func (l sampleList) ListLocations(context.Context) ([]*models.Sample, error) {
	return l, nil
}

func render(ctx context.Context, format string, samples []*models.Sample) ([]byte, error) {
	switch format {
	case formatMarkdown:
		data, err := storage.ExportToMarkdown(ctx, sampleList(samples))
		if err != nil {
			return nil, fmt.Errorf("failed to generate markdown: %w", err)
		}
		return data, nil
	case formatYAML:
		data, err := storage.ExportToYAML(ctx, sampleList(samples))
		if err != nil {
			return nil, fmt.Errorf("failed to generate YAML: %w", err)
		}
		return data, nil
	case formatJSON:
		if samples == nil {
			samples = []*models.Sample{}
		}
		data, err := json.MarshalIndent(samples, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to generate JSON: %w", err)
		}
		return append(data, '\n'), nil
	}

	var fc *geojson.FeatureCollection
	if format == formatPoints {
		fc = geojson.ToPointsFeatureCollection(samples)
	} else {
		fc = geojson.ToTrackFeatureCollection(samples)
	}
	data, err := fc.ToJSONIndent()
	if err != nil {
		return nil, fmt.Errorf("failed to generate GeoJSON: %w", err)
	}
	return append(data, '\n'), nil
}

// window is an inclusive time filter; zero bounds are open.
type window struct {
	from, to time.Time
}

func (w window) filter(samples []*models.Sample) []*models.Sample {
	if w.from.IsZero() && w.to.IsZero() {
		return samples
	}
	var out []*models.Sample
	for _, s := range samples {
		t := s.Time()
		if !w.from.IsZero() && t.Before(w.from) {
			continue
		}
		if !w.to.IsZero() && t.After(w.to) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func parseWindow(cmd *cobra.Command) (window, error) {
	since, _ := cmd.Flags().GetString("since")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	var w window
	var err error

	if since != "" {
		w.from, err = parseDuration(since)
		if err != nil {
			return window{}, fmt.Errorf("invalid --since value: %w", err)
		}
		return w, nil
	}
	if from != "" {
		w.from, _, err = parseDate(from)
		if err != nil {
			return window{}, fmt.Errorf("invalid --from value: %w", err)
		}
	}
	if to != "" {
		var dateOnly bool
		w.to, dateOnly, err = parseDate(to)
		if err != nil {
			return window{}, fmt.Errorf("invalid --to value: %w", err)
		}
		if dateOnly {
			w.to = endOfDay(w.to)
		}
	}
	return w, nil
}

// parseDuration parses relative duration strings like "24h", "7d", "1w".
func parseDuration(s string) (time.Time, error) {
	matches := durationRegex.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("invalid duration format (use e.g., 24h, 7d, 1w)")
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number in duration '%s': %w", s, err)
	}

	var duration time.Duration
	switch matches[2] {
	case "h":
		duration = time.Duration(num) * time.Hour
	case "d":
		duration = time.Duration(num) * 24 * time.Hour
	case "w":
		duration = time.Duration(num) * 7 * 24 * time.Hour
	case "m":
		duration = time.Duration(num) * 30 * 24 * time.Hour
	}

	return time.Now().Add(-duration), nil
}

// parseDate parses date strings in RFC3339 or YYYY-MM-DD format. dateOnly
// reports that s named a whole day.
func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date format (use YYYY-MM-DD or RFC3339)")
}

// endOfDay returns the last second of the day starting at t.
func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Second)
}

func init() {
	exportCmd.Flags().StringP("format", "f", formatGeoJSON, "output format (geojson, points, markdown, yaml, json)")
	exportCmd.Flags().String("since", "", "relative time filter (e.g., 24h, 7d, 1w)")
	exportCmd.Flags().String("from", "", "start date (YYYY-MM-DD or RFC3339)")
	exportCmd.Flags().String("to", "", "end date (YYYY-MM-DD or RFC3339)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}
