// Package config holds daemon configuration: JSON on disk, defaults merged
// underneath.
package config

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnvConfig names the environment variable that overrides the default
// config file location.
const EnvConfig = "CLIPD_CONFIG"

// Config holds daemon configuration.
type Config struct {
	// Host is the interface both listeners bind to. The daemon is meant to
	// stay on loopback.
	Host string `json:"host"`

	// RawPort carries the framed text protocol.
	RawPort int `json:"raw_port"`

	// HTTPPort carries the JSON command endpoint, health, metrics and events.
	HTTPPort int `json:"http_port"`

	// Interactive runs the console inside the daemon process. Defaults to
	// on; closing the console shuts the daemon down.
	Interactive *bool `json:"interactive,omitempty"`

	// DBPath is where save and load keep the store snapshot.
	DBPath string `json:"db_path"`

	// JournalPath enables the SQLite capture journal when set.
	JournalPath string `json:"journal_path,omitempty"`

	// PollIntervalMS is the clipboard poll cadence in milliseconds.
	PollIntervalMS int `json:"poll_interval_ms,omitempty"`

	// PreviewLength bounds rendered values in listings.
	PreviewLength int `json:"preview_length,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is text or json.
	LogFormat string `json:"log_format,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from
	// registration. Unknown names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	interactive := true
	return &Config{
		Host:           "127.0.0.1",
		RawPort:        8931,
		HTTPPort:       8932,
		Interactive:    &interactive,
		DBPath:         "./clipd.json",
		PollIntervalMS: 500,
		PreviewLength:  64,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// RawAddr is the raw listener's host:port.
func (c *Config) RawAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.RawPort))
}

// HTTPAddr is the HTTP listener's host:port.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort))
}

// InteractiveEnabled resolves the tri-state Interactive field.
func (c *Config) InteractiveEnabled() bool {
	return c.Interactive == nil || *c.Interactive
}

// PollInterval is the clipboard poll cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Load reads configuration from an explicit file path, merged over
// defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	file, err := loadFileRaw(path)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), file), nil
}

// LoadDefault resolves the config location: $CLIPD_CONFIG if set, otherwise
// ~/.config/clipd/config.json. Either may be absent.
func LoadDefault() (*Config, error) {
	if path := os.Getenv(EnvConfig); path != "" {
		return Load(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// No home, no file; defaults still work.
		return DefaultConfig(), nil
	}
	return Load(filepath.Join(home, ".config", "clipd", "config.json"))
}

// loadFileRaw loads configuration from a specific file path. Returns a
// zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge combines base and overlay configs. Overlay values take precedence
// for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Host = overlay.Host
	if result.Host == "" {
		result.Host = base.Host
	}

	result.RawPort = overlay.RawPort
	if result.RawPort == 0 {
		result.RawPort = base.RawPort
	}

	result.HTTPPort = overlay.HTTPPort
	if result.HTTPPort == 0 {
		result.HTTPPort = base.HTTPPort
	}

	result.Interactive = overlay.Interactive
	if result.Interactive == nil {
		result.Interactive = base.Interactive
	}

	result.DBPath = overlay.DBPath
	if result.DBPath == "" {
		result.DBPath = base.DBPath
	}

	result.JournalPath = overlay.JournalPath
	if result.JournalPath == "" {
		result.JournalPath = base.JournalPath
	}

	result.PollIntervalMS = overlay.PollIntervalMS
	if result.PollIntervalMS == 0 {
		result.PollIntervalMS = base.PollIntervalMS
	}

	result.PreviewLength = overlay.PreviewLength
	if result.PreviewLength == 0 {
		result.PreviewLength = base.PreviewLength
	}

	result.LogLevel = overlay.LogLevel
	if result.LogLevel == "" {
		result.LogLevel = base.LogLevel
	}

	result.LogFormat = overlay.LogFormat
	if result.LogFormat == "" {
		result.LogFormat = base.LogFormat
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes
// duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
