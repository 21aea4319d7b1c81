// ABOUTME: Tests for the HTTP API and its client
// ABOUTME: Drives the echo router over httptest with a SQLite-backed repository

package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harper/tracker/internal/geojson"
	"github.com/harper/tracker/internal/location"
	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/storage"
	"github.com/harper/tracker/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	mu      sync.Mutex
	running bool
	err     error
	actions []tracker.Action
}

func (f *fakeTracker) Handle(_ context.Context, action tracker.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.actions = append(f.actions, action)
	f.running = action == tracker.Start
	return nil
}

func (f *fakeTracker) Status() tracker.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tracker.Status{Running: f.running}
}

type sinkRecorder struct {
	mu    sync.Mutex
	fixes []location.Fix
}

func (s *sinkRecorder) Submit(fixes ...location.Fix) error {
	for _, f := range fixes {
		if err := models.ValidateCoordinates(f.Latitude, f.Longitude); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes = append(s.fixes, fixes...)
	return nil
}

type fixture struct {
	tracker *fakeTracker
	repo    *storage.LocationRepository
	sink    *sinkRecorder
	server  *httptest.Server
	client  *Client
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := storage.NewSQLiteDB(filepath.Join(t.TempDir(), storage.DBFilename))
	require.NoError(t, err)

	f := &fixture{
		tracker: &fakeTracker{},
		repo:    storage.NewLocationRepository(db, nil, nil),
		sink:    &sinkRecorder{},
	}
	opts = append([]Option{WithFixSink(f.sink), WithHeartbeat(time.Hour)}, opts...)
	srv := NewServer(f.tracker, f.repo, opts...)
	f.server = httptest.NewServer(srv.Handler())
	f.client = NewClient(f.server.URL)

	t.Cleanup(func() {
		f.server.Close()
		_ = f.repo.Close()
	})
	return f
}

func (f *fixture) insert(t *testing.T, lat, lng float64, offsetSec int) *models.Sample {
	t.Helper()
	base := time.Date(2024, 12, 14, 15, 0, 0, 0, time.UTC)
	s := models.NewSample(lat, lng, base.Add(time.Duration(offsetSec)*time.Second))
	require.NoError(t, f.repo.InsertLocation(context.Background(), s))
	return s
}

func TestTrackingControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.client.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Running)

	st, err = f.client.Start(ctx)
	require.NoError(t, err)
	assert.True(t, st.Running)

	st, err = f.client.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, st.Running)

	assert.Equal(t, []tracker.Action{tracker.Start, tracker.Stop}, f.tracker.actions)
}

func TestTrackingClosed(t *testing.T) {
	f := newFixture(t)
	f.tracker.err = tracker.ErrClosed

	resp, err := http.Post(f.server.URL+"/api/v1/tracking/start", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, err = f.client.Start(context.Background())
	assert.ErrorContains(t, err, "closed")
}

func TestLocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	samples, err := f.client.Locations(ctx)
	require.NoError(t, err)
	assert.Empty(t, samples)

	older := f.insert(t, 1, 1, 0)
	newer := f.insert(t, 2, 2, 10)

	samples, err = f.client.Locations(ctx)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, newer.ID, samples[0].ID)
	assert.Equal(t, older.ID, samples[1].ID)

	latest, err := f.client.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	require.NoError(t, f.client.Clear(ctx))
	count, err := f.repo.CountLocations(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLocationsGeoJSON(t *testing.T) {
	f := newFixture(t)
	f.insert(t, 41.0, -87.0, 0)
	f.insert(t, 42.0, -88.0, 10)

	resp, err := http.Get(f.server.URL + "/api/v1/locations/geojson")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, GeoJSONContentType, resp.Header.Get("Content-Type"))

	var fc geojson.FeatureCollection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	require.NotNil(t, fc.Camera)
	assert.Equal(t, geojson.PointCoordinates{-88.0, 42.0}, fc.Camera.Center)

	resp2, err := http.Get(f.server.URL + "/api/v1/locations/geojson?view=points")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	var points geojson.FeatureCollection
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&points))
	assert.Len(t, points.Features, 2)

	resp3, err := http.Get(f.server.URL + "/api/v1/locations/geojson?view=globe")
	require.NoError(t, err)
	_ = resp3.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestPostFixes(t *testing.T) {
	f := newFixture(t)
	post := func(body string) (int, string) {
		resp, err := http.Post(f.server.URL+"/api/v1/fixes", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(data)
	}

	code, body := post(`{"_type":"location","lat":41.8781,"lon":-87.6298,"tst":1734188400,"acc":12}`)
	assert.Equal(t, http.StatusAccepted, code)
	assert.JSONEq(t, `{"accepted":1}`, body)

	code, body = post(`[{"lat":1,"lon":1},{"_type":"transition"},{"lat":2,"lon":2}]`)
	assert.Equal(t, http.StatusAccepted, code)
	assert.JSONEq(t, `{"accepted":2}`, body)

	code, _ = post(`{"lat":1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(`{"lat":91,"lon":0}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(`not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	require.Len(t, f.sink.fixes, 3)
	first := f.sink.fixes[0]
	assert.Equal(t, 41.8781, first.Latitude)
	assert.Equal(t, 12.0, first.Accuracy)
	assert.Equal(t, int64(1734188400), first.Time.Unix())
	assert.True(t, f.sink.fixes[1].Time.IsZero(), "missing tst is left for the provider to stamp")
}

func TestClientSubmitFixes(t *testing.T) {
	f := newFixture(t)
	lat, lon := 1.5, 2.5

	n, err := f.client.SubmitFixes(context.Background(), FixRequest{Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFixesRouteNeedsSink(t *testing.T) {
	db, err := storage.NewSQLiteDB(filepath.Join(t.TempDir(), storage.DBFilename))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	srv := NewServer(&fakeTracker{}, storage.NewLocationRepository(db, nil, nil))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fixes", strings.NewReader(`{"lat":1,"lon":1}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := tracker.NewMetrics(reg)
	require.NoError(t, err)
	metrics.SamplesRecorded.Add(3)

	f := newFixture(t, WithGatherer(reg))
	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tracker_samples_recorded_total 3")
	assert.Contains(t, string(body), "tracker_tracking_active 0")
}

// readEvent returns the data line of the next SSE event.
func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			assert.Equal(t, LocationsEvent, event)
			return data
		}
	}
}

func TestStreamLocations(t *testing.T) {
	f := newFixture(t)
	f.insert(t, 1, 1, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL+"/api/v1/locations/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	r := bufio.NewReader(resp.Body)

	var first []*models.Sample
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, r)), &first))
	assert.Len(t, first, 1)

	f.insert(t, 2, 2, 10)

	var second []*models.Sample
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, r)), &second))
	require.Len(t, second, 2)
	assert.Equal(t, 2.0, second[0].Latitude, "stream lists newest first")
}

func TestServeShutsDownWithOpenStream(t *testing.T) {
	db, err := storage.NewSQLiteDB(filepath.Join(t.TempDir(), storage.DBFilename))
	require.NoError(t, err)
	repo := storage.NewLocationRepository(db, nil, nil)
	defer func() { _ = repo.Close() }()

	srv := NewServer(&fakeTracker{}, repo, WithHeartbeat(50*time.Millisecond))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/locations/stream")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	readEvent(t, bufio.NewReader(resp.Body))

	start := time.Now()
	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
		assert.Less(t, time.Since(start), shutdownTimeout)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("Serve did not return")
	}
}

func TestClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()
	srv.Close()

	_, err := NewClient(addr).Status(context.Background())
	assert.ErrorIs(t, err, ErrDaemonUnavailable)
}
