// Package capconfig loads the configuration of the capres tool.
//
// It supports two configuration formats:
//   - capres.sky: Starlark configuration, a configure() function returning a dict
//   - capres.toml: declarative TOML configuration
//
// Configuration files are discovered by walking up the directory tree from
// the starting directory, stopping at the git root. The CAPRES_CONFIG
// environment variable or the -config flag override discovery.
package capconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NigeWarren/dotty/internal/migration"
)

// Config file names in priority order.
const (
	ConfigSky  = "capres.sky"
	ConfigTOML = "capres.toml"
)

// EnvConfig is the environment variable for specifying config file path.
const EnvConfig = "CAPRES_CONFIG"

// ErrConflict is returned when multiple config files exist in the same directory.
var ErrConflict = errors.New("multiple config files found in the same directory; use only one")

// Config represents the capres configuration.
type Config struct {
	Resolve ResolveConfig `json:"resolve" toml:"resolve"`
	Log     LogConfig     `json:"log" toml:"log"`
	Output  OutputConfig  `json:"output" toml:"output"`
	Watch   WatchConfig   `json:"watch" toml:"watch"`
}

// ResolveConfig controls the resolver.
type ResolveConfig struct {
	// Source is the language-version target, e.g. "3.0" or "3.1-migration".
	// It selects the migration mode unless Mode is set.
	Source string `json:"source" toml:"source"`

	// Mode is an explicit migration mode: "permissive", "warn" or "strict".
	Mode string `json:"mode" toml:"mode"`

	// Parallel is the number of sites resolved concurrently; 0 means GOMAXPROCS.
	Parallel int `json:"parallel" toml:"parallel"`

	// Specificity lets a strictly more specific provider win a tie between
	// equally ranked providers instead of reporting ambiguity.
	Specificity bool `json:"specificity" toml:"specificity"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level" toml:"level"`

	// Format is "text" or "json".
	Format string `json:"format" toml:"format"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	// Format is "text" or "json".
	Format string `json:"format" toml:"format"`

	// Quiet suppresses the summary line.
	Quiet bool `json:"quiet" toml:"quiet"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// Debounce is how long to wait for more changes before re-running.
	Debounce Duration `json:"debounce" toml:"debounce"`
}

// Duration wraps time.Duration for TOML/JSON string parsing.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	if d.Duration == 0 {
		return nil, nil
	}
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "text",
		},
		Watch: WatchConfig{
			Debounce: Duration{100 * time.Millisecond},
		},
	}
}

// MigrationMode returns the configured migration mode. An explicit Mode
// wins over Source; with neither set the mode is Permissive.
func (c *Config) MigrationMode() (migration.Mode, error) {
	if c.Resolve.Mode != "" {
		return migration.Parse(c.Resolve.Mode)
	}
	if c.Resolve.Source != "" {
		return migration.FromVersion(c.Resolve.Source)
	}
	return migration.Permissive, nil
}

// Validate checks values that are only known to be wrong once loaded.
func (c *Config) Validate() error {
	if _, err := c.MigrationMode(); err != nil {
		return err
	}
	if c.Resolve.Parallel < 0 {
		return fmt.Errorf("resolve.parallel must not be negative, got %d", c.Resolve.Parallel)
	}
	switch c.Output.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", c.Output.Format)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (expected text or json)", c.Log.Format)
	}
	return nil
}

// LoadConfig loads configuration from the specified path.
// The format is auto-detected based on file extension.
func LoadConfig(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		cfg, err = LoadTOMLConfig(path)
	case ".sky", ".star":
		cfg, err = LoadStarlarkConfig(path, DefaultStarlarkTimeout)
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s (expected .sky, .star, or .toml)", ext)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DiscoverConfig finds a configuration file with FindConfig and loads it.
// If no config is found, returns (DefaultConfig(), "", nil).
func DiscoverConfig(startDir string) (*Config, string, error) {
	path, err := FindConfig(startDir)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		if os.Getenv(EnvConfig) != "" {
			return nil, "", fmt.Errorf("loading config from %s: %w", EnvConfig, err)
		}
		return nil, "", err
	}
	return cfg, path, nil
}

// FindConfig returns the path of the configuration file that applies to
// startDir without loading it, or "" if there is none.
//
// Resolution order:
//  1. If CAPRES_CONFIG env var is set, use that path
//  2. Walk up from startDir looking for config files, stopping at the git root
func FindConfig(startDir string) (string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		return envPath, nil
	}

	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
	}

	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	gitRoot := findGitRoot(absDir)

	dir := absDir
	for {
		configPath, err := findConfigInDir(dir)
		if err != nil {
			return "", err
		}
		if configPath != "" {
			return configPath, nil
		}

		if gitRoot != "" && dir == gitRoot {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

// findConfigInDir returns the config file in dir, or "" if there is none.
// More than one config file in the same directory is an error.
func findConfigInDir(dir string) (string, error) {
	var found []string
	for _, name := range []string{ConfigSky, ConfigTOML} {
		if fileExists(filepath.Join(dir, name)) {
			found = append(found, name)
		}
	}
	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return filepath.Join(dir, found[0]), nil
	default:
		return "", fmt.Errorf("%w: found %s in %s", ErrConflict, strings.Join(found, ", "), dir)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// findGitRoot finds the git repository root from a starting directory.
// Returns empty string if not in a git repository.
func findGitRoot(startDir string) string {
	dir := startDir
	for {
		if fileExists(filepath.Join(dir, ".git")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Merge merges the other config into this one.
// Non-zero values from other override values in c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Resolve.Source != "" {
		c.Resolve.Source = other.Resolve.Source
	}
	if other.Resolve.Mode != "" {
		c.Resolve.Mode = other.Resolve.Mode
	}
	if other.Resolve.Parallel != 0 {
		c.Resolve.Parallel = other.Resolve.Parallel
	}
	if other.Resolve.Specificity {
		c.Resolve.Specificity = true
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}

	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Quiet {
		c.Output.Quiet = true
	}

	if other.Watch.Debounce.Duration != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}
