// ABOUTME: GeoJSON generation and parsing utilities
// ABOUTME: Converts samples to map-ready FeatureCollections and reads recorded tracks

package geojson

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/harper/tracker/internal/models"
)

// Track styling and camera defaults for the map view.
const (
	TrackStroke      = "#0000ff"
	TrackStrokeWidth = 5
	CameraZoom       = 15
)

// FeatureCollection represents a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox,omitempty"`
	Features []Feature `json:"features"`
	// Camera is a foreign member telling a map where to look.
	Camera *Camera `json:"camera,omitempty"`
}

// Feature represents a GeoJSON Feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents a GeoJSON Geometry.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// Camera is the initial map viewport.
type Camera struct {
	Center PointCoordinates `json:"center"`
	Zoom   float64          `json:"zoom"`
}

// PointCoordinates represents [longitude, latitude] for a Point.
type PointCoordinates [2]float64

// LineCoordinates represents [[lng, lat], [lng, lat], ...] for a LineString.
type LineCoordinates []PointCoordinates

// chronological returns the samples oldest first without touching the input.
func chronological(samples []*models.Sample) []*models.Sample {
	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b *models.Sample) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	return sorted
}

func point(s *models.Sample) PointCoordinates {
	return PointCoordinates{s.Longitude, s.Latitude}
}

func marker(title string, s *models.Sample) Feature {
	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: point(s),
		},
		Properties: map[string]interface{}{
			"title":     title,
			"timestamp": s.Timestamp,
			"time":      s.Time().UTC().Format(time.RFC3339),
		},
	}
}

// ToPointsFeatureCollection converts samples to a FeatureCollection of Points,
// one per sample, in the order given.
func ToPointsFeatureCollection(samples []*models.Sample) *FeatureCollection {
	features := make([]Feature, 0, len(samples))

	for _, s := range samples {
		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: point(s),
			},
			Properties: map[string]interface{}{
				"id":        s.ID.String(),
				"timestamp": s.Timestamp,
				"time":      s.Time().UTC().Format(time.RFC3339),
			},
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// ToTrackFeatureCollection builds the map view of a trace: a polyline through
// every sample in time order, a Start marker on the oldest sample, an End
// marker on the newest, and a camera centred on the newest sample.
// A single sample gets markers but no line; no samples gives an empty
// collection.
func ToTrackFeatureCollection(samples []*models.Sample) *FeatureCollection {
	fc := &FeatureCollection{
		Type:     "FeatureCollection",
		Features: []Feature{},
	}
	if len(samples) == 0 {
		return fc
	}

	sorted := chronological(samples)
	first, last := sorted[0], sorted[len(sorted)-1]

	if len(sorted) >= 2 {
		coords := make(LineCoordinates, len(sorted))
		for i, s := range sorted {
			coords[i] = point(s)
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "LineString",
				Coordinates: coords,
			},
			Properties: map[string]interface{}{
				"stroke":       TrackStroke,
				"stroke-width": TrackStrokeWidth,
				"point_count":  len(sorted),
			},
		})
	}

	fc.Features = append(fc.Features, marker("Start", first), marker("End", last))
	fc.BBox = bbox(sorted)
	fc.Camera = &Camera{Center: point(last), Zoom: CameraZoom}
	return fc
}

func bbox(samples []*models.Sample) []float64 {
	minLng, minLat := samples[0].Longitude, samples[0].Latitude
	maxLng, maxLat := minLng, minLat
	for _, s := range samples[1:] {
		minLng = min(minLng, s.Longitude)
		maxLng = max(maxLng, s.Longitude)
		minLat = min(minLat, s.Latitude)
		maxLat = max(maxLat, s.Latitude)
	}
	return []float64{minLng, minLat, maxLng, maxLat}
}

// ToJSON serializes a FeatureCollection to JSON.
func (fc *FeatureCollection) ToJSON() ([]byte, error) {
	return json.Marshal(fc)
}

// ToJSONIndent serializes a FeatureCollection to indented JSON.
func (fc *FeatureCollection) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}

// rawObject decodes any GeoJSON object far enough to walk it.
type rawObject struct {
	Type        string          `json:"type"`
	Features    []rawObject     `json:"features"`
	Geometry    *rawObject      `json:"geometry"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseTrack reads the points of a recorded track from GeoJSON. It accepts a
// FeatureCollection, a Feature, or a bare geometry; Point, MultiPoint and
// LineString geometries contribute their coordinates in document order.
func ParseTrack(data []byte) (LineCoordinates, error) {
	var obj rawObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	var coords LineCoordinates
	if err := collect(obj, &coords); err != nil {
		return nil, err
	}
	return coords, nil
}

func collect(obj rawObject, out *LineCoordinates) error {
	switch obj.Type {
	case "FeatureCollection":
		for _, f := range obj.Features {
			if err := collect(f, out); err != nil {
				return err
			}
		}
	case "Feature":
		if obj.Geometry != nil {
			return collect(*obj.Geometry, out)
		}
	case "Point":
		var p PointCoordinates
		if err := json.Unmarshal(obj.Coordinates, &p); err != nil {
			return fmt.Errorf("parse point: %w", err)
		}
		*out = append(*out, p)
	case "MultiPoint", "LineString":
		var line LineCoordinates
		if err := json.Unmarshal(obj.Coordinates, &line); err != nil {
			return fmt.Errorf("parse %s: %w", obj.Type, err)
		}
		*out = append(*out, line...)
	default:
		return fmt.Errorf("unsupported geojson type %q", obj.Type)
	}
	return nil
}
