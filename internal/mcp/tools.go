// ABOUTME: MCP tool definitions and handlers
// ABOUTME: Location fetch, trace listing and clearing, manual insert, and tracking control

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harper/tracker/internal/location"
	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/notify"
	"github.com/harper/tracker/internal/tracker"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var emptySchema = map[string]interface{}{
	"type":       "object",
	"properties": map[string]interface{}{},
}

func (s *Server) registerTools() {
	s.registerGetLocationTool()
	s.registerListLocationsTool()
	s.registerClearLocationsTool()
	s.registerAddLocationTool()
	s.registerTrackingTools()
}

func textResult(v interface{}) *mcp.CallToolResult {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ") //nolint:errchkjson // outputs are always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}
}

// SampleOutput is a stored sample as tools report it.
type SampleOutput struct {
	ID         string    `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toSampleOutput(s *models.Sample) SampleOutput {
	return SampleOutput{
		ID:         s.ID.String(),
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		RecordedAt: s.Time().UTC(),
	}
}

// LocationOutput defines output for get_location.
type LocationOutput struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Time      time.Time `json:"time"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Text      string    `json:"text"`
}

// GetLocationInput defines input for get_location.
type GetLocationInput struct{}

func (s *Server) registerGetLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_location",
		Description: "Get the device's current best-known location from the location source.",
		InputSchema: emptySchema,
	}, s.handleGetLocation)
}

func (s *Server) handleGetLocation(ctx context.Context, _ *mcp.CallToolRequest, _ GetLocationInput) (*mcp.CallToolResult, LocationOutput, error) {
	if s.locator == nil {
		return nil, LocationOutput{}, fmt.Errorf("no location source configured")
	}
	fix, err := s.locator.GetLocation(ctx)
	if err != nil {
		if errors.Is(err, location.ErrNoLocation) {
			return nil, LocationOutput{}, fmt.Errorf("location unknown: the source has no fix yet")
		}
		return nil, LocationOutput{}, err
	}

	output := LocationOutput{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Time:      fix.Time,
		Accuracy:  fix.Accuracy,
		Text:      notify.LocationText(fix.Latitude, fix.Longitude),
	}
	return textResult(output), output, nil
}

// ListLocationsInput defines input for list_locations.
type ListLocationsInput struct {
	Limit int `json:"limit,omitempty"`
}

// ListLocationsOutput defines output for list_locations.
type ListLocationsOutput struct {
	Locations []SampleOutput `json:"locations"`
	Count     int            `json:"count"`
	Total     int            `json:"total"`
}

func (s *Server) registerListLocationsTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_locations",
		Description: "List recorded location samples, newest first.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of samples to return (default: all)",
				},
			},
		},
	}, s.handleListLocations)
}

func (s *Server) handleListLocations(ctx context.Context, _ *mcp.CallToolRequest, input ListLocationsInput) (*mcp.CallToolResult, ListLocationsOutput, error) {
	samples, err := s.store.AllLocations(ctx)
	if err != nil {
		return nil, ListLocationsOutput{}, fmt.Errorf("failed to list locations: %w", err)
	}

	total := len(samples)
	if input.Limit > 0 && input.Limit < total {
		samples = samples[:input.Limit]
	}

	output := ListLocationsOutput{
		Locations: make([]SampleOutput, len(samples)),
		Count:     len(samples),
		Total:     total,
	}
	for i, sample := range samples {
		output.Locations[i] = toSampleOutput(sample)
	}
	return textResult(output), output, nil
}

// ClearLocationsInput defines input for clear_locations.
type ClearLocationsInput struct {
	Confirm bool `json:"confirm"`
}

// ClearLocationsOutput defines output for clear_locations.
type ClearLocationsOutput struct {
	Cleared bool `json:"cleared"`
}

func (s *Server) registerClearLocationsTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_locations",
		Description: "Delete every recorded location sample. Cannot be undone.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"confirm": map[string]interface{}{
					"type":        "boolean",
					"description": "Must be true to delete",
				},
			},
			"required": []string{"confirm"},
		},
	}, s.handleClearLocations)
}

func (s *Server) handleClearLocations(ctx context.Context, _ *mcp.CallToolRequest, input ClearLocationsInput) (*mcp.CallToolResult, ClearLocationsOutput, error) {
	if !input.Confirm {
		return nil, ClearLocationsOutput{}, fmt.Errorf("set confirm to true to delete all locations")
	}
	if err := s.store.ClearLocations(ctx); err != nil {
		return nil, ClearLocationsOutput{}, fmt.Errorf("failed to clear locations: %w", err)
	}
	output := ClearLocationsOutput{Cleared: true}
	return textResult(output), output, nil
}

// AddLocationInput defines input for add_location.
type AddLocationInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	At        *string `json:"at,omitempty"`
}

func (s *Server) registerAddLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add_location",
		Description: "Record a location sample by hand.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"latitude": map[string]interface{}{
					"type":        "number",
					"description": "Latitude coordinate (-90 to 90)",
				},
				"longitude": map[string]interface{}{
					"type":        "number",
					"description": "Longitude coordinate (-180 to 180)",
				},
				"at": map[string]interface{}{
					"type":        "string",
					"description": "Optional recorded time in RFC3339 format (default: now)",
				},
			},
			"required": []string{"latitude", "longitude"},
		},
	}, s.handleAddLocation)
}

func (s *Server) handleAddLocation(ctx context.Context, _ *mcp.CallToolRequest, input AddLocationInput) (*mcp.CallToolResult, SampleOutput, error) {
	if err := models.ValidateCoordinates(input.Latitude, input.Longitude); err != nil {
		return nil, SampleOutput{}, err
	}

	at := time.Now()
	if input.At != nil {
		parsed, err := time.Parse(time.RFC3339, *input.At)
		if err != nil {
			return nil, SampleOutput{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		at = parsed
	}

	sample := models.NewSample(input.Latitude, input.Longitude, at)
	if err := s.store.InsertLocation(ctx, sample); err != nil {
		return nil, SampleOutput{}, fmt.Errorf("failed to add location: %w", err)
	}

	output := toSampleOutput(sample)
	return textResult(output), output, nil
}

// TrackingInput defines input for start_tracking and stop_tracking.
type TrackingInput struct{}

func (s *Server) registerTrackingTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "start_tracking",
		Description: "Start background location tracking in the tracker daemon.",
		InputSchema: emptySchema,
	}, s.handleStartTracking)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "stop_tracking",
		Description: "Stop background location tracking in the tracker daemon.",
		InputSchema: emptySchema,
	}, s.handleStopTracking)
}

func (s *Server) handleStartTracking(ctx context.Context, _ *mcp.CallToolRequest, _ TrackingInput) (*mcp.CallToolResult, tracker.Status, error) {
	return s.track(ctx, tracker.Start)
}

func (s *Server) handleStopTracking(ctx context.Context, _ *mcp.CallToolRequest, _ TrackingInput) (*mcp.CallToolResult, tracker.Status, error) {
	return s.track(ctx, tracker.Stop)
}

func (s *Server) track(ctx context.Context, action tracker.Action) (*mcp.CallToolResult, tracker.Status, error) {
	if s.control == nil {
		return nil, tracker.Status{}, fmt.Errorf("tracking control unavailable: is 'tracker serve' running?")
	}

	var (
		st  *tracker.Status
		err error
	)
	if action == tracker.Start {
		st, err = s.control.Start(ctx)
	} else {
		st, err = s.control.Stop(ctx)
	}
	if err != nil {
		return nil, tracker.Status{}, fmt.Errorf("%s tracking: %w", action, err)
	}
	return textResult(st), *st, nil
}
