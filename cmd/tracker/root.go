// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads configuration and the logger, and opens the SQLite database on demand

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/tracker/internal/charm"
	"github.com/harper/tracker/internal/config"
	"github.com/harper/tracker/internal/storage"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *log.Logger
	db     *storage.SQLiteDB

	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Record where you have been",
	Long: `
████████╗██████╗  █████╗  ██████╗██╗  ██╗███████╗██████╗
╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██║ ██╔╝██╔════╝██╔══██╗
   ██║   ██████╔╝███████║██║     █████╔╝ █████╗  ██████╔╝
   ██║   ██╔══██╗██╔══██║██║     ██╔═██╗ ██╔══╝  ██╔══██╗
   ██║   ██║  ██║██║  ██║╚██████╗██║  ██╗███████╗██║  ██║
   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝

       Record your location over time, one sample a second

Examples:
  tracker serve
  tracker start
  tracker list --follow
  tracker export --format geojson --output track.geojson
  tracker stop`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		logger = cfg.NewLogger(os.Stderr)
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			err := db.Close()
			db = nil
			return err
		}
		return nil
	},
}

// settings returns the loaded config, or defaults when the root hook did
// not run.
func settings() *config.Config {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return cfg
}

func getLogger() *log.Logger {
	if logger == nil {
		logger = settings().NewLogger(os.Stderr)
	}
	return logger
}

// openDB opens the database once per process; later calls reuse it and
// ignore opts.
func openDB(opts ...storage.Option) (*storage.SQLiteDB, error) {
	if db != nil {
		return db, nil
	}
	opts = append([]storage.Option{storage.WithLogger(getLogger())}, opts...)

	var err error
	if dbPath != "" {
		db, err = storage.NewSQLiteDB(config.ExpandPath(dbPath), opts...)
	} else {
		db, err = settings().OpenStorage(opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openRepository wraps the database with the Charm mirror when enabled.
func openRepository(opts ...storage.Option) (*storage.LocationRepository, error) {
	store, err := openDB(opts...)
	if err != nil {
		return nil, err
	}

	var mirror storage.Mirror
	if settings().Mirror {
		client, err := newCharmClient()
		if err != nil {
			return nil, err
		}
		mirror = client
	}
	return storage.NewLocationRepository(store, mirror, getLogger()), nil
}

func newCharmClient() (*charm.Client, error) {
	charmCfg := charm.DefaultConfig()
	if host := settings().CharmHost; host != "" {
		charmCfg.CharmHost = host
	}
	client, err := charm.NewClient(charmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create charm client: %w", err)
	}
	return client, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: <data_dir>/tracker.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
