// Package config loads the latticectl configuration file. Fields are
// pointers so a partial file only overrides what it names; merge order
// is defaults, then file, then flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tomerten/latticeconstructor/lattice"
)

// DefaultConfigPath is where latticectl looks for a config file when
// -config is not given.
const DefaultConfigPath = "latticeconstructor.json"

// Config is the root configuration.
type Config struct {
	// DatabasePath is the SQLite file holding stored lattices.
	DatabasePath *string `json:"database_path,omitempty"`

	// DefaultFormat is assumed for imports when -format is not given
	// ("lte" or "madx").
	DefaultFormat *string `json:"default_format,omitempty"`

	// ListenAddr is the HTTP listen address for -serve.
	ListenAddr *string `json:"listen_addr,omitempty"`

	// FamilyOverrides extends the built-in Elegant-to-MAD-X element
	// type conversion table with site-specific entries.
	FamilyOverrides map[string]string `json:"family_overrides,omitempty"`
}

func ptrString(v string) *string { return &v }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DatabasePath:  ptrString("lattices.db"),
		DefaultFormat: ptrString("lte"),
		ListenAddr:    ptrString(":8080"),
	}
}

// Load reads a config file and merges it over the defaults. A missing
// file at the default path is not an error; a missing explicit path
// is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultConfigPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.MergeWith(&file)
	return cfg, nil
}

// MergeWith overlays non-nil fields of other onto c.
func (c *Config) MergeWith(other *Config) {
	if other.DatabasePath != nil {
		c.DatabasePath = other.DatabasePath
	}
	if other.DefaultFormat != nil {
		c.DefaultFormat = other.DefaultFormat
	}
	if other.ListenAddr != nil {
		c.ListenAddr = other.ListenAddr
	}
	for from, to := range other.FamilyOverrides {
		if c.FamilyOverrides == nil {
			c.FamilyOverrides = map[string]string{}
		}
		c.FamilyOverrides[from] = to
	}
}

// Apply installs the config's side effects: family conversion
// overrides are registered with the lattice package.
func (c *Config) Apply() {
	for from, to := range c.FamilyOverrides {
		lattice.RegisterFamily(from, to)
	}
}
