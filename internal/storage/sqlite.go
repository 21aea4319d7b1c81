// ABOUTME: SQLite storage implementation for location samples
// ABOUTME: Provides local persistence using pure Go SQLite driver

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/tracker/internal/models"
	_ "modernc.org/sqlite"
)

// DBFilename is the database file name inside the data directory.
const DBFilename = "tracker.db"

// SQLiteDB implements LocationStore with a local SQLite database.
type SQLiteDB struct {
	db     *sql.DB
	path   string
	logger *log.Logger

	fileWatch bool
	changes   *broadcaster

	watchOnce sync.Once
	watchErr  error
	closeOnce sync.Once
	done      chan struct{}
}

// Compile-time check that SQLiteDB implements LocationStore.
var _ LocationStore = (*SQLiteDB)(nil)

// Option configures a SQLiteDB.
type Option func(*SQLiteDB)

// WithLogger sets the logger used for background watch errors.
func WithLogger(logger *log.Logger) Option {
	return func(s *SQLiteDB) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFileWatch makes WatchLocations also react to writes made by other
// processes sharing the same database file.
func WithFileWatch() Option {
	return func(s *SQLiteDB) {
		s.fileWatch = true
	}
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "tracker", DBFilename)
}

// NewSQLiteDB opens the SQLite database at the given path.
// Creates the directory and database file if they don't exist.
func NewSQLiteDB(path string, opts ...Option) (*SQLiteDB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for user data directory
		return nil, fmt.Errorf("create directory: %w", err)
	}

	// WAL lets the daemon write while CLI commands read the same file.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteDB{
		db:      db,
		path:    path,
		logger:  log.New(io.Discard),
		changes: newBroadcaster(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// migrate creates or updates the database schema.
func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS locations (
			id TEXT PRIMARY KEY,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			timestamp INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_locations_timestamp ON locations(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteDB) Path() string {
	return s.path
}

// Close stops any file watcher and closes the database connection.
func (s *SQLiteDB) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.db.Close()
	})
	return err
}

// InsertLocation stores a sample, replacing any row with the same ID.
func (s *SQLiteDB) InsertLocation(ctx context.Context, sample *models.Sample) error {
	if sample == nil {
		return fmt.Errorf("%w: nil sample", ErrInvalidSample)
	}
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO locations (id, latitude, longitude, timestamp)
		 VALUES (?, ?, ?, ?)`,
		sample.ID.String(), sample.Latitude, sample.Longitude, sample.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	s.changes.notify()
	return nil
}

// ListLocations returns all samples, newest first.
func (s *SQLiteDB) ListLocations(ctx context.Context) ([]*models.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, latitude, longitude, timestamp
		 FROM locations ORDER BY timestamp DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanSamples(rows)
}

// LatestLocation returns the most recent sample.
func (s *SQLiteDB) LatestLocation(ctx context.Context) (*models.Sample, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, latitude, longitude, timestamp
		 FROM locations ORDER BY timestamp DESC, rowid DESC LIMIT 1`,
	)
	var idStr string
	var sample models.Sample
	err := row.Scan(&idStr, &sample.Latitude, &sample.Longitude, &sample.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan location: %w", err)
	}
	if sample.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("scan location id %q: %w", idStr, err)
	}
	return &sample, nil
}

// CountLocations returns the number of stored samples.
func (s *SQLiteDB) CountLocations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM locations").Scan(&n); err != nil {
		return 0, fmt.Errorf("count locations: %w", err)
	}
	return n, nil
}

// ClearLocations deletes every sample.
func (s *SQLiteDB) ClearLocations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM locations"); err != nil {
		return fmt.Errorf("clear locations: %w", err)
	}
	s.changes.notify()
	return nil
}

func scanSamples(rows *sql.Rows) ([]*models.Sample, error) {
	samples := []*models.Sample{}
	for rows.Next() {
		var idStr string
		var sample models.Sample
		if err := rows.Scan(&idStr, &sample.Latitude, &sample.Longitude, &sample.Timestamp); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("scan location id %q: %w", idStr, err)
		}
		sample.ID = id
		samples = append(samples, &sample)
	}
	return samples, rows.Err()
}
