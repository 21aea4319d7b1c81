// ABOUTME: Core data model for recorded location samples
// ABOUTME: Provides the sample constructor and coordinate validation

package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ValidateCoordinates checks if latitude and longitude are within valid ranges.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates cannot be NaN")
	}
	if math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("coordinates cannot be infinite")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// Sample is one recorded location: where the device was and when.
// Timestamp is milliseconds since the Unix epoch.
type Sample struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	Latitude  float64   `json:"latitude" yaml:"latitude"`
	Longitude float64   `json:"longitude" yaml:"longitude"`
	Timestamp int64     `json:"timestamp" yaml:"timestamp"`
}

// NewSample creates a sample with a generated UUID captured at the given time.
func NewSample(lat, lng float64, at time.Time) *Sample {
	return &Sample{
		ID:        uuid.New(),
		Latitude:  lat,
		Longitude: lng,
		Timestamp: at.UnixMilli(),
	}
}

// Time returns the capture time.
func (s *Sample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Validate checks the sample's identifier and coordinates.
func (s *Sample) Validate() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("sample id cannot be empty")
	}
	return ValidateCoordinates(s.Latitude, s.Longitude)
}
