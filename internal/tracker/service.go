// ABOUTME: Background location tracking service
// ABOUTME: START/STOP commands drive one worker that stores each fix and refreshes the notification

package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/tracker/internal/location"
	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/notify"
)

// Action is a command sent to the service.
type Action string

const (
	Start Action = "START"
	Stop  Action = "STOP"
)

// ErrClosed is returned for commands sent after Close.
var ErrClosed = errors.New("tracker service closed")

// ParseAction accepts action names in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case Start, Stop:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q (want START or STOP)", s)
}

// Locator produces a stream of fixes until ctx is done.
type Locator interface {
	TrackLocation(ctx context.Context) (<-chan location.Fix, error)
}

// Recorder persists samples.
type Recorder interface {
	InsertLocation(ctx context.Context, sample *models.Sample) error
}

// Status describes the current or most recent tracking run.
type Status struct {
	Running   bool          `json:"running"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	Recorded  int           `json:"recorded"`
	Errors    int           `json:"errors"`
	LastFix   *location.Fix `json:"last_fix,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets where the tracking notification is shown.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithMetrics sets the collectors updated by the worker.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source used to stamp samples.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Service records locations in the background while started.
type Service struct {
	locator  Locator
	store    Recorder
	notifier notify.Notifier
	logger   *log.Logger
	metrics  *Metrics
	now      func() time.Time

	// cmdMu serializes commands; mu guards the fields below it.
	cmdMu  sync.Mutex
	closed bool
	active *run

	mu     sync.Mutex
	status Status
}

// NewService wires a location stream to a store.
func NewService(locator Locator, store Recorder, opts ...Option) *Service {
	s := &Service{
		locator:  locator,
		store:    store,
		notifier: notify.Nop{},
		logger:   log.New(io.Discard),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics, _ = NewMetrics(nil)
	}
	return s
}

// Handle runs one command.
func (s *Service) Handle(ctx context.Context, action Action) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if s.closed {
		return ErrClosed
	}
	switch action {
	case Start:
		return s.start(ctx)
	case Stop:
		s.stop(ctx)
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

// Close stops tracking and refuses further commands.
func (s *Service) Close() error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.stop(context.Background())
	return nil
}

// Status returns a snapshot of the service state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status
	if st.StartedAt != nil {
		t := *st.StartedAt
		st.StartedAt = &t
	}
	if st.LastFix != nil {
		f := *st.LastFix
		st.LastFix = &f
	}
	return st
}

func (s *Service) start(ctx context.Context) error {
	if s.active != nil {
		s.logger.Debug("tracking already running")
		return nil
	}

	startedAt := s.now()
	if err := s.notifier.Show(ctx, notify.Started(startedAt)); err != nil {
		s.logger.Warn("failed to show notification", "err", err)
	}

	// The run outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	fixes, err := s.locator.TrackLocation(runCtx)
	if err != nil {
		cancel()
		if rmErr := s.notifier.Remove(ctx); rmErr != nil {
			s.logger.Warn("failed to remove notification", "err", rmErr)
		}
		return fmt.Errorf("start tracking: %w", err)
	}

	s.mu.Lock()
	s.status = Status{Running: true, StartedAt: &startedAt}
	s.mu.Unlock()
	s.metrics.TrackingActive.Set(1)

	r := &run{cancel: cancel, done: make(chan struct{})}
	s.active = r
	go func() {
		defer close(r.done)
		s.work(runCtx, fixes)
	}()

	s.logger.Info("tracking started")
	return nil
}

func (s *Service) stop(ctx context.Context) {
	r := s.active
	if r == nil {
		return
	}
	s.active = nil

	r.cancel()
	<-r.done

	s.mu.Lock()
	s.status.Running = false
	s.mu.Unlock()
	s.metrics.TrackingActive.Set(0)

	if err := s.notifier.Remove(ctx); err != nil {
		s.logger.Warn("failed to remove notification", "err", err)
	}
	s.logger.Info("tracking stopped")
}

// work records fixes one at a time until the stream closes.
func (s *Service) work(ctx context.Context, fixes <-chan location.Fix) {
	for fix := range fixes {
		sample := models.NewSample(fix.Latitude, fix.Longitude, s.now())

		if err := s.store.InsertLocation(ctx, sample); err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.metrics.SampleErrors.Inc()
			s.mu.Lock()
			s.status.Errors++
			s.mu.Unlock()
			s.logger.Error("failed to store location", "lat", fix.Latitude, "lng", fix.Longitude, "err", err)
			continue
		}

		s.metrics.SamplesRecorded.Inc()
		f := fix
		s.mu.Lock()
		s.status.Recorded++
		s.status.LastFix = &f
		s.mu.Unlock()

		if err := s.notifier.Update(ctx, notify.ForLocation(fix.Latitude, fix.Longitude, sample.Time())); err != nil {
			s.logger.Warn("failed to update notification", "err", err)
		}
		s.logger.Debug("location recorded", "id", sample.ID, "lat", fix.Latitude, "lng", fix.Longitude)
	}
}
