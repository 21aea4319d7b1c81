// ABOUTME: MCP resource definitions
// ABOUTME: Exposes the recorded trace read-only

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LocationsURI is the resource holding the full trace.
const LocationsURI = "tracker://locations"

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        LocationsURI,
		Description: "All recorded location samples, newest first",
		URI:         LocationsURI,
		MIMEType:    "application/json",
	}, s.handleLocationsResource)
}

func (s *Server) handleLocationsResource(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	samples, err := s.store.AllLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	output := ListLocationsOutput{
		Locations: make([]SampleOutput, len(samples)),
		Count:     len(samples),
		Total:     len(samples),
	}
	for i, sample := range samples {
		output.Locations[i] = toSampleOutput(sample)
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      LocationsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		},
	}, nil
}
