// ABOUTME: Wiring for the long-running tracking commands
// ABOUTME: Builds the provider, notifiers, metrics, and tracking service from config

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/harper/tracker/internal/config"
	"github.com/harper/tracker/internal/location"
	"github.com/harper/tracker/internal/notify"
	"github.com/harper/tracker/internal/storage"
	"github.com/harper/tracker/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// daemon is everything a tracking process runs.
type daemon struct {
	provider location.Provider
	push     *location.Push
	manager  *location.Manager
	repo     *storage.LocationRepository
	service  *tracker.Service
	registry *prometheus.Registry
	closers  []func() error
}

// newProvider picks the location source named in the config. push is
// non-nil only for the push source.
func newProvider(c *config.Config) (location.Provider, *location.Push, error) {
	switch c.GetSource() {
	case config.SourceReplay:
		replay, err := location.LoadReplay(config.ExpandPath(c.ReplayFile), c.ReplayLoop)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load replay: %w", err)
		}
		return replay, nil, nil
	case config.SourcePush:
		push := location.NewPush()
		return push, push, nil
	default:
		return location.NewGPSD(c.GetGPSDAddr(), getLogger()), nil, nil
	}
}

// newNotifier fans the tracking notification out to every configured sink.
func newNotifier(c *config.Config, out io.Writer) (notify.Notifier, []func() error, error) {
	var (
		sinks   notify.Multi
		closers []func() error
	)
	for _, kind := range c.GetNotifiers() {
		switch kind {
		case config.NotifierTerminal:
			sinks = append(sinks, notify.NewTerminal(out))
		case config.NotifierLog:
			sinks = append(sinks, notify.NewLog(getLogger()))
		case config.NotifierMQTT:
			clientID := "tracker-" + uuid.NewString()[:8]
			m, err := notify.DialMQTT(c.MQTTBroker, clientID, c.GetMQTTTopic())
			if err != nil {
				for _, closeFn := range closers {
					_ = closeFn()
				}
				return nil, nil, fmt.Errorf("failed to connect to mqtt: %w", err)
			}
			getLogger().Info("publishing notifications", "broker", c.MQTTBroker, "topic", m.Topic())
			sinks = append(sinks, m)
			closers = append(closers, m.Close)
		}
	}
	return sinks, closers, nil
}

// newDaemon builds the tracking service. The database is opened with file
// watching so writes from other processes reach stream subscribers.
func newDaemon(c *config.Config, out io.Writer) (*daemon, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	interval, err := c.GetInterval()
	if err != nil {
		return nil, err
	}

	repo, err := openRepository(storage.WithFileWatch())
	if err != nil {
		return nil, err
	}

	provider, push, err := newProvider(c)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := tracker.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	manager := location.NewManager(provider,
		location.WithInterval(interval),
		location.WithLogger(getLogger()),
		location.WithEmptyResultHook(metrics.FixesDropped.Inc),
	)

	notifier, closers, err := newNotifier(c, out)
	if err != nil {
		return nil, err
	}

	service := tracker.NewService(manager, repo,
		tracker.WithLogger(getLogger()),
		tracker.WithNotifier(notifier),
		tracker.WithMetrics(metrics),
	)

	return &daemon{
		provider: provider,
		push:     push,
		manager:  manager,
		repo:     repo,
		service:  service,
		registry: registry,
		closers:  closers,
	}, nil
}

// Close stops tracking and releases the notifiers. The database is closed
// by the root command.
func (d *daemon) Close() error {
	err := d.service.Close()
	for _, closeFn := range d.closers {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func (d *daemon) describe() string {
	return fmt.Sprintf("%s every %s", d.provider.Name(), d.manager.Interval())
}
