package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gravity-api/g4-recorder/internal/event"
)

// Mode selects the execution strategy actions are compiled for.
type Mode string

const (
	// ModeStandard targets elements through their resolved locators.
	ModeStandard Mode = "standard"
	// ModeUser32 uses low-level input injection against locators.
	ModeUser32 Mode = "user32"
	// ModeCoordinate uses low-level injection at literal coordinates.
	ModeCoordinate Mode = "coordinate"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStandard, ModeUser32, ModeCoordinate:
		return Mode(s), nil
	case "":
		return ModeStandard, nil
	default:
		return "", fmt.Errorf("unknown capture mode %q", s)
	}
}

// ConnectionConfig describes one capture connection.
type ConnectionConfig struct {
	Name             string                  `yaml:"name"`
	BaseURL          string                  `yaml:"base_url"`
	Subject          string                  `yaml:"subject"`
	Mode             Mode                    `yaml:"mode"`
	DriverParameters map[string]any          `yaml:"driver_parameters"`
	ThinkTime        event.ThinkTimeSettings `yaml:"think_time"`
}

// ViewerConfig locates the external workflow designer.
type ViewerConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Config holds full recorder configuration.
type Config struct {
	// ServerURL is the NATS server delivering capture streams.
	ServerURL string `yaml:"server_url"`

	// AuthToken is carried verbatim into the assembled document.
	AuthToken string `yaml:"auth_token"`

	// SelfMarker identifies events originating from the recorder's own
	// control surface; matching locators are filtered out.
	SelfMarker string `yaml:"self_marker"`

	// DriverParameters are the session defaults inherited by the first
	// job when its connection supplies none of its own.
	DriverParameters map[string]any `yaml:"driver_parameters"`

	Settings    map[string]any     `yaml:"settings"`
	Connections []ConnectionConfig `yaml:"connections"`
	Viewer      ViewerConfig       `yaml:"viewer"`
	ArchivePath string             `yaml:"archive_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerURL:        "nats://127.0.0.1:4222",
		SelfMarker:       "g4-designer",
		DriverParameters: map[string]any{},
		Settings:         map[string]any{},
		Viewer: ViewerConfig{
			URL:            "http://127.0.0.1:9955/workflow",
			TimeoutSeconds: 10,
		},
	}
}

// DefaultDir returns the recorder's state directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".g4recorder"
	}
	return filepath.Join(home, ".g4recorder")
}

// EffectivePath resolves an explicit config path, falling back to
// ~/.g4recorder/config.yaml when none is given. Load and the reloader
// resolve through the same path.
func EffectivePath(path string) string {
	if path == "" {
		return filepath.Join(DefaultDir(), "config.yaml")
	}
	return path
}

// Load reads configuration from a YAML file. Empty path falls back to
// ~/.g4recorder/config.yaml. Missing file returns defaults. Invalid
// YAML or an unknown mode returns an error.
func Load(path string) (*Config, error) {
	path = EffectivePath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks connection modes, names, and subjects.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Connections))
	for i := range c.Connections {
		conn := &c.Connections[i]
		if conn.Name == "" {
			return fmt.Errorf("connection %d: name is required", i)
		}
		if seen[conn.Name] {
			return fmt.Errorf("connection %q: duplicate name", conn.Name)
		}
		seen[conn.Name] = true

		mode, err := ParseMode(string(conn.Mode))
		if err != nil {
			return fmt.Errorf("connection %q: %w", conn.Name, err)
		}
		conn.Mode = mode

		if conn.Subject == "" {
			conn.Subject = "g4.recorder.events." + conn.Name
		}
		if conn.ThinkTime.Enabled && conn.ThinkTime.MaxThinkTime < conn.ThinkTime.MinThinkTime {
			return fmt.Errorf("connection %q: max_think_time below min_think_time", conn.Name)
		}
	}
	return nil
}
