// Package config loads and validates the .sounding.yaml configuration
// file that tunes discovery, scoring and the parallel driver.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file auto-discovered in the analysed
// root directory.
const FileName = ".sounding.yaml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Fact extraction modes.
const (
	ModeAuto       = "auto"
	ModeLexical    = "lexical"
	ModeTreeSitter = "treesitter"
)

// SoundingConfig is the top-level configuration document.
type SoundingConfig struct {
	APOSD  APOSDConfig  `yaml:"aposd"`
	Scan   ScanConfig   `yaml:"scan"`
	Engine EngineConfig `yaml:"engine"`
	Facts  FactsConfig  `yaml:"facts"`
}

// APOSDConfig tunes the depth scorer and the pass-through detector.
type APOSDConfig struct {
	// ExcludeIdioms enables the built-in list of idiomatic delegation
	// names (conversions, accessors, standard interface methods).
	// When false only the custom lists below apply.
	ExcludeIdioms bool `yaml:"exclude_idioms"`

	// ExcludePrefixes are extra snake_case name prefixes never
	// reported as pass-through.
	ExcludePrefixes []string `yaml:"exclude_prefixes"`

	// ExcludeMethods are extra exact method names never reported as
	// pass-through.
	ExcludeMethods []string `yaml:"exclude_methods"`

	// HotspotThreshold is the cyclomatic complexity at or above which
	// a function is listed as a hotspot of its module.
	HotspotThreshold int `yaml:"hotspot_threshold"`

	// HotspotTop caps the number of hotspots kept per module. Zero
	// keeps them all.
	HotspotTop int `yaml:"hotspot_top"`
}

// ScanConfig controls module discovery.
type ScanConfig struct {
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`
	IncludeTests    bool     `yaml:"include_tests"`
	IgnoreGenerated bool     `yaml:"ignore_generated"`
	Languages       []string `yaml:"languages"`
}

// EngineConfig controls the parallel per-module driver.
type EngineConfig struct {
	Parallelism   int           `yaml:"parallelism"`
	ModuleTimeout time.Duration `yaml:"module_timeout"`
	CacheSize     int           `yaml:"cache_size"`
}

// FactsConfig selects the fact extractor used for temporal and
// connascence signals.
type FactsConfig struct {
	Mode string `yaml:"mode"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *SoundingConfig {
	return &SoundingConfig{
		APOSD: APOSDConfig{
			ExcludeIdioms:    true,
			HotspotThreshold: 10,
			HotspotTop:       5,
		},
		Scan: ScanConfig{
			Exclude: []string{
				"vendor/**",
				"testdata/**",
				"node_modules/**",
				"target/**",
			},
			IgnoreGenerated: true,
			Languages: []string{
				"go", "rust", "python", "java", "javascript", "typescript",
			},
		},
		Engine: EngineConfig{
			Parallelism:   4,
			ModuleTimeout: 30 * time.Second,
			CacheSize:     256,
		},
		Facts: FactsConfig{Mode: ModeAuto},
	}
}

// Load reads path and overlays it onto DefaultConfig. A missing file
// is not an error when optional is true.
func Load(path string, optional bool) (*SoundingConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first out-of-range value.
func (c *SoundingConfig) Validate() error {
	if c.Engine.Parallelism < 1 {
		return fmt.Errorf("%w: engine.parallelism must be >= 1, got %d",
			ErrInvalid, c.Engine.Parallelism)
	}
	if c.Engine.ModuleTimeout < 0 {
		return fmt.Errorf("%w: engine.module_timeout must not be negative, got %s",
			ErrInvalid, c.Engine.ModuleTimeout)
	}
	if c.Engine.CacheSize < 1 {
		return fmt.Errorf("%w: engine.cache_size must be >= 1, got %d",
			ErrInvalid, c.Engine.CacheSize)
	}
	if c.APOSD.HotspotThreshold < 1 {
		return fmt.Errorf("%w: aposd.hotspot_threshold must be >= 1, got %d",
			ErrInvalid, c.APOSD.HotspotThreshold)
	}
	if c.APOSD.HotspotTop < 0 {
		return fmt.Errorf("%w: aposd.hotspot_top must not be negative, got %d",
			ErrInvalid, c.APOSD.HotspotTop)
	}
	switch c.Facts.Mode {
	case ModeAuto, ModeLexical, ModeTreeSitter:
	default:
		return fmt.Errorf("%w: facts.mode %q must be one of %q, %q, %q",
			ErrInvalid, c.Facts.Mode, ModeAuto, ModeLexical, ModeTreeSitter)
	}
	return nil
}

// LanguageEnabled reports whether lang is in the scan language list.
// An empty list enables every supported language.
func (c *SoundingConfig) LanguageEnabled(lang string) bool {
	if len(c.Scan.Languages) == 0 {
		return true
	}
	for _, l := range c.Scan.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
