// Package config loads VM tuning knobs from a TOML file, e.g.
//
//	[gc]
//	initial-heap-mb = 4
//	growth-factor = 3
//	stress = false
//
// Every field has a working default, so a missing or absent file just
// means "use the defaults".
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// GC holds the collector tuning knobs a driver applies to a fresh VM.
type GC struct {
	InitialHeapMB uint64 `toml:"initial-heap-mb"`
	GrowthFactor  uint64 `toml:"growth-factor"`
	Stress        bool   `toml:"stress"`
}

// Config is the top-level shape of raven.toml.
type Config struct {
	GC GC `toml:"gc"`
}

// Default returns the configuration a VM uses when no file is supplied.
func Default() Config {
	return Config{GC: GC{InitialHeapMB: 1, GrowthFactor: 2, Stress: false}}
}

// Load reads and decodes path. A missing file is not an error: it yields
// Default() unchanged, since raven.toml is optional.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	return cfg, nil
}

// InitialHeapBytes converts the configured MB figure to the byte count the
// VM's tuning setter expects.
func (c Config) InitialHeapBytes() uint64 { return c.GC.InitialHeapMB * 1 << 20 }
