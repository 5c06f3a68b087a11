// Package config loads pagecache configuration.
//
// Configuration is an overlay:
//
//  1. built-in defaults, embedded from default.toml;
//  2. the config file, if it exists;
//  3. command-line flags, applied by the CLI layer.
//
// The TOML decoder only sets keys present in the file, so anything the
// file omits keeps its default. A missing file is not an error; a file
// that exists but does not parse is.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultConfigTOML string

// DefaultConfigPath is where the CLI looks when --config is not given.
const DefaultConfigPath = "/etc/pagecache/pagecache.toml"

// Config is the top-level configuration.
type Config struct {
	StateDir string        `toml:"state_dir"`
	RunDir   string        `toml:"run_dir"`
	Monitor  MonitorConfig `toml:"monitor"`
	Store    StoreConfig   `toml:"store"`
	Metrics  MetricsConfig `toml:"metrics"`
	Health   HealthConfig  `toml:"health"`
	Logging  LoggingConfig `toml:"logging"`
}

// MonitorConfig controls the TTL monitor loop.
type MonitorConfig struct {
	TmpDir        string        `toml:"tmp_dir"`
	Interval      time.Duration `toml:"interval"`
	MaxTimeWindow time.Duration `toml:"max_time_window"`
	LockFile      string        `toml:"lock_file"`
}

// StoreConfig controls sample persistence.
type StoreConfig struct {
	Enabled   bool          `toml:"enabled"`
	DBPath    string        `toml:"db_path"`
	Retention time.Duration `toml:"retention"`
}

// MetricsConfig controls where samples are published.
type MetricsConfig struct {
	Address       string `toml:"address"`
	Stdout        bool   `toml:"stdout"`
	StatsdEnabled bool   `toml:"statsd_enabled"`
	StatsdAddress string `toml:"statsd_address"`
}

// HealthConfig controls the gRPC health endpoint.
type HealthConfig struct {
	Enabled bool   `toml:"enabled"`
	Socket  string `toml:"socket"`
}

// LoggingConfig controls logging.
type LoggingConfig struct {
	// Level is a log spec such as "info" or "info,monitor=debug".
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
	// Components is an alternative to writing overrides into Level.
	Components map[string]string `toml:"components"`
}

// ToSpec returns the log spec described by c. Level wins when set.
func (c *LoggingConfig) ToSpec() string {
	if c.Level != "" && len(c.Components) == 0 {
		return c.Level
	}
	if len(c.Components) == 0 {
		return ""
	}

	base := c.Level
	if base == "" {
		base = "info"
	}
	parts := []string{base}
	for component, level := range c.Components {
		parts = append(parts, component+"="+level)
	}
	return strings.Join(parts, ",")
}

// DefaultConfig returns the embedded defaults.
func DefaultConfig() Config {
	var cfg Config
	if _, err := toml.Decode(defaultConfigTOML, &cfg); err != nil {
		// default.toml is compiled in; this only fires on a broken build.
		panic(fmt.Sprintf("invalid embedded default.toml: %v", err))
	}
	return cfg
}

// Load overlays the file at path onto the defaults. An empty path means
// DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown keys in config file: %s", strings.Join(keys, ", "))
	}

	return cfg, nil
}

// Dirs returns the RuntimeDirs for the configured roots.
func (c *Config) Dirs() (RuntimeDirs, error) {
	return NewRuntimeDirs(c.StateDir, c.RunDir)
}

// Resolve fills every empty path with its value derived from the
// runtime directories.
func (c *Config) Resolve() error {
	dirs, err := c.Dirs()
	if err != nil {
		return err
	}
	if c.Monitor.TmpDir == "" {
		c.Monitor.TmpDir = dirs.Sentinels()
	}
	if c.Monitor.LockFile == "" {
		c.Monitor.LockFile = dirs.Lock()
	}
	if c.Store.DBPath == "" {
		c.Store.DBPath = dirs.DBPath()
	}
	if c.Health.Socket == "" {
		c.Health.Socket = dirs.HealthSocketPath()
	}
	return nil
}

// Validate checks field ranges and cross-field consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.Monitor.Interval < time.Second {
		errs = append(errs, fmt.Errorf("monitor.interval must be at least 1s, got %s", c.Monitor.Interval))
	}
	if c.Monitor.MaxTimeWindow <= 0 {
		errs = append(errs, fmt.Errorf("monitor.max_time_window must be positive, got %s", c.Monitor.MaxTimeWindow))
	}
	if c.Monitor.MaxTimeWindow > 0 && c.Monitor.MaxTimeWindow < c.Monitor.Interval {
		errs = append(errs, fmt.Errorf("monitor.max_time_window (%s) is shorter than monitor.interval (%s)",
			c.Monitor.MaxTimeWindow, c.Monitor.Interval))
	}
	if c.Store.Retention < 0 {
		errs = append(errs, fmt.Errorf("store.retention cannot be negative, got %s", c.Store.Retention))
	}
	if c.Metrics.StatsdEnabled && c.Metrics.StatsdAddress == "" {
		errs = append(errs, errors.New("metrics.statsd_address is required when statsd is enabled"))
	}
	return errors.Join(errs...)
}
