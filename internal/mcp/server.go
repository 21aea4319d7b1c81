// ABOUTME: MCP server initialization and configuration
// ABOUTME: Sets up tools and resources that let AI agents read and control the tracker

package mcp

import (
	"context"
	"fmt"

	"github.com/harper/tracker/internal/location"
	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/tracker"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Store is the stored trace the tools read and write.
type Store interface {
	InsertLocation(ctx context.Context, sample *models.Sample) error
	AllLocations(ctx context.Context) ([]*models.Sample, error)
	ClearLocations(ctx context.Context) error
}

// Locator answers single location fetches.
type Locator interface {
	GetLocation(ctx context.Context) (*location.Fix, error)
}

// Controller starts and stops tracking in the daemon.
type Controller interface {
	Start(ctx context.Context) (*tracker.Status, error)
	Stop(ctx context.Context) (*tracker.Status, error)
}

// Server wraps the MCP server with the tracker's storage and controls.
type Server struct {
	mcp     *mcp.Server
	store   Store
	locator Locator
	control Controller
}

// NewServer creates the MCP server with all capabilities. locator and
// control may be nil; their tools then report that they are unavailable.
func NewServer(store Store, locator Locator, control Controller) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "tracker",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:     mcpServer,
		store:   store,
		locator: locator,
		control: control,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
