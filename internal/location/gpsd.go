// ABOUTME: gpsd location provider
// ABOUTME: Speaks the gpsd JSON protocol over TCP and turns TPV reports into fixes

package location

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultGPSDAddr is where gpsd listens by default.
const DefaultGPSDAddr = "localhost:2947"

const (
	gpsdWatchCommand = `?WATCH={"enable":true,"json":true};` + "\n"
	gpsdFixTimeout   = 10 * time.Second
	gpsdRedialDelay  = 2 * time.Second
)

// tpv is the subset of a gpsd TPV (time-position-velocity) report we use.
type tpv struct {
	Class string   `json:"class"`
	Mode  int      `json:"mode"`
	Time  string   `json:"time"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Eph   float64  `json:"eph"`
}

// fix converts the report; ok is false unless gpsd has at least a 2D fix.
func (r tpv) fix(now time.Time) (Fix, bool) {
	if r.Class != "TPV" || r.Mode < 2 || r.Lat == nil || r.Lon == nil {
		return Fix{}, false
	}
	at := now
	if r.Time != "" {
		if t, err := time.Parse(time.RFC3339Nano, r.Time); err == nil {
			at = t
		}
	}
	return Fix{Latitude: *r.Lat, Longitude: *r.Lon, Time: at, Accuracy: r.Eph}, true
}

// GPSD reads fixes from a gpsd daemon.
type GPSD struct {
	addr        string
	dialer      net.Dialer
	logger      *log.Logger
	now         func() time.Time
	redialDelay time.Duration

	batch batcher
}

// NewGPSD creates a provider for the gpsd instance at addr.
func NewGPSD(addr string, logger *log.Logger) *GPSD {
	if addr == "" {
		addr = DefaultGPSDAddr
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &GPSD{
		addr:        addr,
		dialer:      net.Dialer{Timeout: 5 * time.Second},
		logger:      logger,
		now:         time.Now,
		redialDelay: gpsdRedialDelay,
	}
}

// Name implements Provider.
func (g *GPSD) Name() string {
	return "gpsd"
}

// LastLocation returns the last fix seen while tracking, or otherwise
// connects and waits briefly for the first fix.
func (g *GPSD) LastLocation(ctx context.Context) (*Fix, error) {
	if fix := g.batch.latest(); fix != nil {
		return fix, nil
	}

	ctx, cancel := context.WithTimeout(ctx, gpsdFixTimeout)
	defer cancel()

	var found *Fix
	err := g.stream(ctx, func(f Fix) bool {
		found = &f
		return false
	})
	if found != nil {
		return found, nil
	}
	if ctx.Err() != nil {
		// No fix in time is not an error, just an unknown location.
		return nil, nil
	}
	return nil, err
}

// RequestUpdates implements Provider.
func (g *GPSD) RequestUpdates(ctx context.Context, interval time.Duration, fn func(Result)) (func(), error) {
	conn, err := g.dial(ctx)
	if err != nil {
		return nil, err
	}

	sub, ctx := newSubscription(ctx)
	sub.goRun(func() { g.readLoop(ctx, conn) })
	sub.goRun(func() { g.batch.deliver(ctx, interval, fn) })
	return sub.stop, nil
}

// readLoop feeds reports into the batch, redialing if gpsd goes away.
func (g *GPSD) readLoop(ctx context.Context, conn net.Conn) {
	for {
		err := g.read(ctx, conn, func(f Fix) bool {
			g.batch.add(f)
			return true
		})
		if ctx.Err() != nil {
			return
		}
		g.logger.Warn("gpsd connection lost", "addr", g.addr, "err", err)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(g.redialDelay):
			}
			conn, err = g.dial(ctx)
			if err == nil {
				g.logger.Info("gpsd reconnected", "addr", g.addr)
				break
			}
			g.logger.Debug("gpsd redial failed", "addr", g.addr, "err", err)
		}
	}
}

func (g *GPSD) dial(ctx context.Context) (net.Conn, error) {
	conn, err := g.dialer.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		return nil, fmt.Errorf("dial gpsd %s: %w", g.addr, err)
	}
	if _, err := io.WriteString(conn, gpsdWatchCommand); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable gpsd watch: %w", err)
	}
	return conn, nil
}

// stream dials and reads until fn returns false or the connection ends.
func (g *GPSD) stream(ctx context.Context, fn func(Fix) bool) error {
	conn, err := g.dial(ctx)
	if err != nil {
		return err
	}
	return g.read(ctx, conn, fn)
}

// read decodes newline-delimited reports until fn returns false, the
// connection fails, or ctx is done. It always closes conn.
func (g *GPSD) read(ctx context.Context, conn net.Conn, fn func(Fix) bool) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() { _ = conn.Close() }()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var report tpv
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			g.logger.Debug("skipping gpsd line", "err", err)
			continue
		}
		fix, ok := report.fix(g.now())
		if !ok {
			continue
		}
		if !fn(fix) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read gpsd: %w", err)
	}
	return io.EOF
}
