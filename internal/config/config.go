// ABOUTME: Tracker configuration management
// ABOUTME: Loads the JSON config file, applies .env and TRACKER_* overrides, and opens storage

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/tracker/internal/location"
	"github.com/harper/tracker/internal/notify"
	"github.com/harper/tracker/internal/storage"
	"github.com/joho/godotenv"
)

// Defaults for unset fields.
const (
	DefaultListenAddr = "127.0.0.1:8765"
	DefaultSource     = SourceGPSD
	DefaultLogLevel   = "info"
)

// Location sources.
const (
	SourceGPSD   = "gpsd"
	SourceReplay = "replay"
	SourcePush   = "push"
)

// Notifier kinds.
const (
	NotifierTerminal = "terminal"
	NotifierLog      = "log"
	NotifierMQTT     = "mqtt"
)

// Config stores tracker configuration.
type Config struct {
	// DataDir holds tracker.db. Supports ~ expansion.
	// Defaults to ~/.local/share/tracker.
	DataDir string `json:"data_dir,omitempty"`

	// ListenAddr is where the daemon serves its HTTP API.
	ListenAddr string `json:"listen_addr,omitempty"`

	// Interval between location updates, as a Go duration ("1s").
	Interval string `json:"interval,omitempty"`

	// Source selects the location provider: gpsd, replay, or push.
	Source     string `json:"source,omitempty"`
	GPSDAddr   string `json:"gpsd_addr,omitempty"`
	ReplayFile string `json:"replay_file,omitempty"`
	ReplayLoop bool   `json:"replay_loop,omitempty"`

	// Notifier lists where the tracking notification goes.
	Notifier   []string `json:"notifier,omitempty"`
	MQTTBroker string   `json:"mqtt_broker,omitempty"`
	MQTTTopic  string   `json:"mqtt_topic,omitempty"`

	// Mirror copies every stored sample to Charm KV.
	Mirror    bool   `json:"mirror,omitempty"`
	CharmHost string `json:"charm_host,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetDBPath returns the SQLite database path inside the data directory.
func (c *Config) GetDBPath() string {
	return filepath.Join(c.GetDataDir(), storage.DBFilename)
}

// GetListenAddr returns the HTTP listen address.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return c.ListenAddr
}

// GetInterval parses the update interval, defaulting to one second.
func (c *Config) GetInterval() (time.Duration, error) {
	if c.Interval == "" {
		return location.DefaultInterval, nil
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", c.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", d)
	}
	return d, nil
}

// GetSource returns the location source, defaulting to gpsd.
func (c *Config) GetSource() string {
	if c.Source == "" {
		return DefaultSource
	}
	return c.Source
}

// GetGPSDAddr returns the gpsd address.
func (c *Config) GetGPSDAddr() string {
	if c.GPSDAddr == "" {
		return location.DefaultGPSDAddr
	}
	return c.GPSDAddr
}

// GetNotifiers returns the notifier kinds, defaulting to the log notifier.
func (c *Config) GetNotifiers() []string {
	if len(c.Notifier) == 0 {
		return []string{NotifierLog}
	}
	return c.Notifier
}

// GetMQTTTopic returns the notification topic.
func (c *Config) GetMQTTTopic() string {
	if c.MQTTTopic == "" {
		return notify.DefaultTopic
	}
	return c.MQTTTopic
}

// GetLogLevel returns the log level name.
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return c.LogLevel
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	if _, err := c.GetInterval(); err != nil {
		return err
	}
	switch c.GetSource() {
	case SourceGPSD, SourcePush:
	case SourceReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("source %q needs replay_file", SourceReplay)
		}
	default:
		return fmt.Errorf("unknown source: %q", c.Source)
	}
	for _, n := range c.GetNotifiers() {
		switch n {
		case NotifierTerminal, NotifierLog:
		case NotifierMQTT:
			if c.MQTTBroker == "" {
				return fmt.Errorf("notifier %q needs mqtt_broker", NotifierMQTT)
			}
		default:
			return fmt.Errorf("unknown notifier: %q", n)
		}
	}
	if _, err := log.ParseLevel(c.GetLogLevel()); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// NewLogger builds the structured logger for the configured level.
func (c *Config) NewLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "tracker",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	if level, err := log.ParseLevel(c.GetLogLevel()); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// OpenStorage opens the SQLite database in the data directory.
func (c *Config) OpenStorage(opts ...storage.Option) (*storage.SQLiteDB, error) {
	return storage.NewSQLiteDB(c.GetDBPath(), opts...)
}

// defaultDataDir returns the default XDG data directory for tracker.
func defaultDataDir() string {
	return filepath.Dir(storage.DefaultDBPath())
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "tracker", "config.json")
}

// Load reads config from disk, creating a default file on first run, then
// applies environment overrides. A .env file in the working directory is
// loaded first; variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := loadFile()
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from XDG dirs
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			if saveErr := cfg.Save(); saveErr != nil {
				fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", saveErr)
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEnv overrides fields from TRACKER_* variables.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TRACKER_DATA_DIR":    &c.DataDir,
		"TRACKER_LISTEN_ADDR": &c.ListenAddr,
		"TRACKER_INTERVAL":    &c.Interval,
		"TRACKER_SOURCE":      &c.Source,
		"TRACKER_GPSD_ADDR":   &c.GPSDAddr,
		"TRACKER_REPLAY_FILE": &c.ReplayFile,
		"TRACKER_MQTT_BROKER": &c.MQTTBroker,
		"TRACKER_MQTT_TOPIC":  &c.MQTTTopic,
		"TRACKER_CHARM_HOST":  &c.CharmHost,
		"TRACKER_LOG_LEVEL":   &c.LogLevel,
	}
	for key, field := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*field = v
		}
	}

	bools := map[string]*bool{
		"TRACKER_REPLAY_LOOP": &c.ReplayLoop,
		"TRACKER_MIRROR":      &c.Mirror,
	}
	for key, field := range bools {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*field = b
	}

	if v := os.Getenv("TRACKER_NOTIFIER"); v != "" {
		c.Notifier = c.Notifier[:0]
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" && !slices.Contains(c.Notifier, n) {
				c.Notifier = append(c.Notifier, n)
			}
		}
	}
	return nil
}

// Save writes config to disk atomically.
func (c *Config) Save() error {
	path := GetConfigPath()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
