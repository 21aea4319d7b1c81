// ABOUTME: HTTP API for the tracker daemon
// ABOUTME: Echo server exposing tracking control, stored locations, fix ingestion, and metrics

package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/tracker/internal/location"
	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/tracker"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIPrefix is the base path of every API route.
const APIPrefix = "/api/v1"

const (
	defaultHeartbeat = 30 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// Tracker is the service the API controls.
type Tracker interface {
	Handle(ctx context.Context, action tracker.Action) error
	Status() tracker.Status
}

// Locations is the stored trace.
type Locations interface {
	AllLocations(ctx context.Context) ([]*models.Sample, error)
	LatestLocation(ctx context.Context) (*models.Sample, error)
	WatchLocations(ctx context.Context) (<-chan []*models.Sample, error)
	ClearLocations(ctx context.Context) error
}

// FixSink accepts fixes pushed by a device.
type FixSink interface {
	Submit(fixes ...location.Fix) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFixSink enables POST /api/v1/fixes.
func WithFixSink(sink FixSink) Option {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithGatherer serves its metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithHeartbeat sets how often idle event streams send a keepalive comment.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// Server is the daemon's HTTP surface.
type Server struct {
	echo      *echo.Echo
	tracker   Tracker
	locations Locations
	sink      FixSink
	gatherer  prometheus.Gatherer
	logger    *log.Logger
	heartbeat time.Duration
}

// NewServer builds the router.
func NewServer(t Tracker, locations Locations, opts ...Option) *Server {
	s := &Server{
		echo:      echo.New(),
		tracker:   t,
		locations: locations,
		logger:    log.New(io.Discard),
		heartbeat: defaultHeartbeat,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group(APIPrefix)

	api.GET("/tracking", s.getTracking)
	api.POST("/tracking/start", s.startTracking)
	api.POST("/tracking/stop", s.stopTracking)

	api.GET("/locations", s.listLocations)
	api.DELETE("/locations", s.clearLocations)
	api.GET("/locations/latest", s.latestLocation)
	api.GET("/locations/geojson", s.locationsGeoJSON)
	api.GET("/locations/stream", s.streamLocations)

	if s.sink != nil {
		api.POST("/fixes", s.postFixes)
	}
	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			kv := []interface{}{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				kv = append(kv, "err", v.Error)
			}
			s.logger.Debug("request", kv...)
			return nil
		},
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve listens on ln until ctx is done, then shuts down gracefully.
// Request contexts derive from ctx so open event streams end with it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.echo.Listener = ln
	s.echo.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start("")
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed, closing connections", "err", err)
		_ = s.echo.Close()
		<-errCh
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
