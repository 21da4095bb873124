package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.ServerURL == "" {
		t.Error("default server URL must be set")
	}
	if cfg.SelfMarker == "" {
		t.Error("default self marker must be set")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != Default().ServerURL {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server_url: nats://capture.example:4222
auth_token: secret
connections:
  - name: desk-1
    base_url: http://desk-1.example
    mode: user32
    think_time:
      enabled: true
      min_think_time: 500
      max_think_time: 8000
  - name: desk-2
    base_url: http://desk-2.example
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthToken != "secret" {
		t.Errorf("expected auth token, got %q", cfg.AuthToken)
	}
	if len(cfg.Connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(cfg.Connections))
	}
	if cfg.Connections[0].Mode != ModeUser32 {
		t.Errorf("expected user32 mode, got %q", cfg.Connections[0].Mode)
	}
	if !cfg.Connections[0].ThinkTime.Enabled || cfg.Connections[0].ThinkTime.MaxThinkTime != 8000 {
		t.Errorf("think-time settings not loaded: %+v", cfg.Connections[0].ThinkTime)
	}
	// Empty mode defaults to standard; empty subject derives from name.
	if cfg.Connections[1].Mode != ModeStandard {
		t.Errorf("expected standard mode default, got %q", cfg.Connections[1].Mode)
	}
	if cfg.Connections[1].Subject != "g4.recorder.events.desk-2" {
		t.Errorf("expected derived subject, got %q", cfg.Connections[1].Subject)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad yaml", "connections: ["},
		{"unknown mode", "connections:\n  - name: x\n    mode: telepathy\n"},
		{"missing name", "connections:\n  - base_url: http://x\n"},
		{"duplicate name", "connections:\n  - name: x\n  - name: x\n"},
		{"inverted think time", "connections:\n  - name: x\n    think_time:\n      enabled: true\n      min_think_time: 900\n      max_think_time: 100\n"},
	}
	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestEffectivePath(t *testing.T) {
	if got := EffectivePath("/etc/g4/config.yaml"); got != "/etc/g4/config.yaml" {
		t.Errorf("explicit path must pass through, got %q", got)
	}
	want := filepath.Join(DefaultDir(), "config.yaml")
	if got := EffectivePath(""); got != want {
		t.Errorf("empty path must resolve to the default file: got %q, want %q", got, want)
	}
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"", "standard", "user32", "coordinate"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q): %v", valid, err)
		}
	}
	if _, err := ParseMode("hybrid"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
