// Package config loads application configuration from ~/.jam/config.json.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/misnaej/the-jam-machine/internal/codec"
)

// Config holds application configuration.
type Config struct {
	// BeatsPerBar and UnitsPerBeat override the codec's bar geometry.
	// Zero means use the codec default (4 beats of 4 units).
	BeatsPerBar  int `json:"beats_per_bar,omitempty"`
	UnitsPerBeat int `json:"units_per_beat,omitempty"`

	// BarsPerSection overrides the section window size (default 8).
	BarsPerSection int `json:"bars_per_section,omitempty"`

	// DensityLowMax and DensityMediumMax override the note-on count
	// breakpoints for the per-bar density class. DensityLowMax is a
	// pointer because 0 is a legal breakpoint (any note-on makes a bar
	// at least medium), so nil, not zero, means unset.
	DensityLowMax    *int `json:"density_low_max,omitempty"`
	DensityMediumMax int  `json:"density_medium_max,omitempty"`

	// DefaultVelocity is reattached to decoded note-ons (default 99).
	DefaultVelocity int `json:"default_velocity,omitempty"`

	// Familize coarsens instrument programs to family numbers by default.
	// The CLI and web flags can still override per request.
	Familize bool `json:"familize,omitempty"`

	// ImportWorkers bounds the worker pool for directory imports.
	// 0 means one worker per CPU.
	ImportWorkers int `json:"import_workers,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	c := codec.DefaultConfig()
	return &Config{
		BeatsPerBar:      c.BeatsPerBar,
		UnitsPerBeat:     c.UnitsPerBeat,
		BarsPerSection:   c.BarsPerSection,
		DensityLowMax:    &c.DensityLowMax,
		DensityMediumMax: c.DensityMediumMax,
		DefaultVelocity:  c.DefaultVelocity,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.jam.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
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

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars when non-zero.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.BeatsPerBar = pick(overlay.BeatsPerBar, base.BeatsPerBar)
	result.UnitsPerBeat = pick(overlay.UnitsPerBeat, base.UnitsPerBeat)
	result.BarsPerSection = pick(overlay.BarsPerSection, base.BarsPerSection)
	result.DensityLowMax = pickPtr(overlay.DensityLowMax, base.DensityLowMax)
	result.DensityMediumMax = pick(overlay.DensityMediumMax, base.DensityMediumMax)
	result.DefaultVelocity = pick(overlay.DefaultVelocity, base.DefaultVelocity)
	result.ImportWorkers = pick(overlay.ImportWorkers, base.ImportWorkers)
	result.DBMaxOpenConns = pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base.
	result.Familize = base.Familize || overlay.Familize

	return result
}

func pick(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickPtr(overlay, base *int) *int {
	if overlay != nil {
		return overlay
	}
	return base
}

// Codec translates the application config into codec constants.
func (c *Config) Codec() codec.Config {
	out := codec.Config{
		BeatsPerBar:      c.BeatsPerBar,
		UnitsPerBeat:     c.UnitsPerBeat,
		BarsPerSection:   c.BarsPerSection,
		DensityLowMax:    codec.DefaultConfig().DensityLowMax,
		DensityMediumMax: c.DensityMediumMax,
		DefaultVelocity:  c.DefaultVelocity,
		Familize:         c.Familize,
	}
	if c.DensityLowMax != nil {
		out.DensityLowMax = *c.DensityLowMax
	}
	return out
}
