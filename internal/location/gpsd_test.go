// ABOUTME: Tests for the gpsd provider against an in-process fake daemon
// ABOUTME: Covers TPV parsing, single fetch, streaming, redialing, and dial failures

package location

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gpsdVersion = `{"class":"VERSION","release":"3.25","proto_major":3,"proto_minor":15}`
	gpsdNoFix   = `{"class":"TPV","mode":1}`
	gpsdFix1    = `{"class":"TPV","mode":3,"time":"2024-12-14T15:00:00.000Z","lat":41.8781,"lon":-87.6298,"eph":4.5}`
	gpsdFix2    = `{"class":"TPV","mode":2,"time":"2024-12-14T15:00:01.000Z","lat":41.8790,"lon":-87.6300}`
)

// fakeGPSD accepts connections, checks the WATCH command, writes the given
// lines, then holds the connection open until the client goes away.
func fakeGPSD(t *testing.T, lines ...string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { _ = conn.Close() }()

				cmd, err := bufio.NewReader(conn).ReadString('\n')
				if err != nil || !strings.HasPrefix(cmd, "?WATCH=") {
					return
				}
				for _, line := range lines {
					if _, err := io.WriteString(conn, line+"\n"); err != nil {
						return
					}
				}
				_, _ = io.Copy(io.Discard, conn)
			}()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		wg.Wait()
	})
	return ln.Addr().String()
}

// droppingGPSD hangs up on the first client after writing first, then
// serves later clients like fakeGPSD serving rest.
func droppingGPSD(t *testing.T, first []string, rest ...string) (string, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			n := accepted.Add(1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { _ = conn.Close() }()

				if _, err := bufio.NewReader(conn).ReadString('\n'); err != nil {
					return
				}
				lines := rest
				if n == 1 {
					lines = first
				}
				for _, line := range lines {
					if _, err := io.WriteString(conn, line+"\n"); err != nil {
						return
					}
				}
				if n > 1 {
					_, _ = io.Copy(io.Discard, conn)
				}
			}()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		wg.Wait()
	})
	return ln.Addr().String(), &accepted
}

func TestTPVFix(t *testing.T) {
	lat, lon := 1.5, 2.5
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, ok := tpv{Class: "SKY", Mode: 3, Lat: &lat, Lon: &lon}.fix(now)
	assert.False(t, ok, "non-TPV reports are ignored")

	_, ok = tpv{Class: "TPV", Mode: 1, Lat: &lat, Lon: &lon}.fix(now)
	assert.False(t, ok, "mode 1 has no fix")

	_, ok = tpv{Class: "TPV", Mode: 3, Lat: &lat}.fix(now)
	assert.False(t, ok, "longitude required")

	f, ok := tpv{Class: "TPV", Mode: 2, Lat: &lat, Lon: &lon, Eph: 3}.fix(now)
	require.True(t, ok)
	assert.Equal(t, Fix{Latitude: 1.5, Longitude: 2.5, Time: now, Accuracy: 3}, f)
}

func TestGPSD_LastLocation(t *testing.T) {
	addr := fakeGPSD(t, gpsdVersion, gpsdNoFix, gpsdFix1)
	g := NewGPSD(addr, nil)

	fix, err := g.LastLocation(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fix)
	assert.Equal(t, 41.8781, fix.Latitude)
	assert.Equal(t, -87.6298, fix.Longitude)
	assert.Equal(t, 4.5, fix.Accuracy)
	assert.Equal(t, time.Date(2024, 12, 14, 15, 0, 0, 0, time.UTC), fix.Time.UTC())
}

func TestGPSD_LastLocationNoFix(t *testing.T) {
	addr := fakeGPSD(t, gpsdVersion, gpsdNoFix)
	g := NewGPSD(addr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	fix, err := g.LastLocation(ctx)
	assert.NoError(t, err)
	assert.Nil(t, fix)
}

func TestGPSD_RequestUpdates(t *testing.T) {
	addr := fakeGPSD(t, gpsdVersion, gpsdFix1, gpsdFix2)
	g := NewGPSD(addr, nil)

	results := make(chan Result, 1)
	cancel, err := g.RequestUpdates(context.Background(), 50*time.Millisecond, func(r Result) {
		select {
		case results <- r:
		default:
		}
	})
	require.NoError(t, err)
	defer cancel()

	deadline := time.After(5 * time.Second)
	for latest := 0.0; latest != 41.8790; {
		select {
		case r := <-results:
			f, ok := r.Last()
			require.True(t, ok, "empty intervals are not delivered")
			latest = f.Latitude
		case <-deadline:
			t.Fatal("timed out waiting for the second fix")
		}
	}

	last, err := g.LastLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 41.8790, last.Latitude, "tracking fixes serve later single fetches")
}

func TestGPSD_RequestUpdatesRedials(t *testing.T) {
	addr, accepted := droppingGPSD(t, []string{gpsdVersion, gpsdFix1}, gpsdVersion, gpsdFix2)
	g := NewGPSD(addr, nil)
	g.redialDelay = 20 * time.Millisecond

	results := make(chan Result, 8)
	cancel, err := g.RequestUpdates(context.Background(), 20*time.Millisecond, func(r Result) {
		select {
		case results <- r:
		default:
		}
	})
	require.NoError(t, err)
	defer cancel()

	deadline := time.After(5 * time.Second)
	for latest := 0.0; latest != 41.8790; {
		select {
		case r := <-results:
			f, ok := r.Last()
			require.True(t, ok)
			latest = f.Latitude
		case <-deadline:
			t.Fatal("timed out waiting for a fix after reconnecting")
		}
	}
	assert.GreaterOrEqual(t, accepted.Load(), int32(2), "provider redialed after the hang-up")
}

func TestGPSD_DialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	g := NewGPSD(addr, nil)
	_, err = g.RequestUpdates(context.Background(), time.Second, func(Result) {})
	assert.ErrorContains(t, err, "dial gpsd")
}

func TestNewGPSD_DefaultAddr(t *testing.T) {
	g := NewGPSD("", nil)
	assert.Equal(t, DefaultGPSDAddr, g.addr)
	assert.Equal(t, "gpsd", g.Name())
}
