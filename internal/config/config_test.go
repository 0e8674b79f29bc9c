package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unbound-force/sounding/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if !cfg.APOSD.ExcludeIdioms {
		t.Error("ExcludeIdioms should default to true")
	}
	if cfg.Engine.ModuleTimeout != 30*time.Second {
		t.Errorf("ModuleTimeout = %s, want 30s", cfg.Engine.ModuleTimeout)
	}
	if cfg.Facts.Mode != config.ModeAuto {
		t.Errorf("Facts.Mode = %q, want %q", cfg.Facts.Mode, config.ModeAuto)
	}
}

func TestLoad_MissingOptional(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine.Parallelism != 4 {
		t.Errorf("Parallelism = %d, want default 4", cfg.Engine.Parallelism)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
	if !strings.Contains(err.Error(), "config file") {
		t.Errorf("error should mention 'config file', got: %s", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `aposd:
  exclude_idioms: false
  exclude_prefixes: [load_]
  exclude_methods: [Forward]
engine:
  parallelism: 8
  module_timeout: 5s
facts:
  mode: lexical
`)
	cfg, err := config.Load(path, false)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APOSD.ExcludeIdioms {
		t.Error("ExcludeIdioms should be false")
	}
	if len(cfg.APOSD.ExcludePrefixes) != 1 || cfg.APOSD.ExcludePrefixes[0] != "load_" {
		t.Errorf("ExcludePrefixes = %v", cfg.APOSD.ExcludePrefixes)
	}
	if cfg.Engine.Parallelism != 8 {
		t.Errorf("Parallelism = %d, want 8", cfg.Engine.Parallelism)
	}
	if cfg.Engine.ModuleTimeout != 5*time.Second {
		t.Errorf("ModuleTimeout = %s, want 5s", cfg.Engine.ModuleTimeout)
	}
	if cfg.Facts.Mode != config.ModeLexical {
		t.Errorf("Facts.Mode = %q", cfg.Facts.Mode)
	}
	// Untouched sections keep defaults.
	if cfg.APOSD.HotspotThreshold != 10 {
		t.Errorf("HotspotThreshold = %d, want 10", cfg.APOSD.HotspotThreshold)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero parallelism", "engine:\n  parallelism: 0\n"},
		{"negative timeout", "engine:\n  module_timeout: -1s\n"},
		{"bad mode", "facts:\n  mode: regex\n"},
		{"zero hotspot threshold", "aposd:\n  hotspot_threshold: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content), false)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, config.ErrInvalid) {
				t.Errorf("error should wrap ErrInvalid, got: %v", err)
			}
			if !strings.Contains(err.Error(), "config file") {
				t.Errorf("error should mention 'config file', got: %s", err)
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := config.Load(writeConfig(t, "engine: [unterminated\n"), false)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("unexpected error: %s", err)
	}
}

func TestLanguageEnabled(t *testing.T) {
	cfg := config.DefaultConfig()
	if !cfg.LanguageEnabled("python") {
		t.Error("python should be enabled by default")
	}
	if cfg.LanguageEnabled("cobol") {
		t.Error("cobol should not be enabled")
	}
	cfg.Scan.Languages = nil
	if !cfg.LanguageEnabled("cobol") {
		t.Error("empty language list should enable everything")
	}
}
