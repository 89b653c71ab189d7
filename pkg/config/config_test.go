package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("a missing config file should not be an error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load of a missing file = %+v, want Default() = %+v", cfg, Default())
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(\"\") = %+v, want Default()", cfg)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raven.toml")
	contents := "[gc]\ninitial-heap-mb = 8\ngrowth-factor = 4\nstress = true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write test fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GC.InitialHeapMB != 8 || cfg.GC.GrowthFactor != 4 || !cfg.GC.Stress {
		t.Errorf("Load(%q) = %+v, want InitialHeapMB=8 GrowthFactor=4 Stress=true", path, cfg)
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raven.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{"), 0o644); err != nil {
		t.Fatalf("failed to write test fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("Load of malformed TOML should return an error")
	}
}

func TestInitialHeapBytesConvertsMegabytesToBytes(t *testing.T) {
	cfg := Config{GC: GC{InitialHeapMB: 2}}
	if got, want := cfg.InitialHeapBytes(), uint64(2<<20); got != want {
		t.Errorf("InitialHeapBytes() = %d, want %d", got, want)
	}
}
