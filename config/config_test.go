package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Assembler.CaseSensitive {
		t.Error("expected CaseSensitive=false by default")
	}
	if cfg.VM.MaxCycles != 0 {
		t.Errorf("expected MaxCycles=0 (unbounded), got %d", cfg.VM.MaxCycles)
	}
	if cfg.IO.PollIntervalMillis != 10 {
		t.Errorf("expected PollIntervalMillis=10, got %d", cfg.IO.PollIntervalMillis)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IO.PollIntervalMillis != 10 {
		t.Errorf("expected defaults when file is missing, got %+v", cfg)
	}
}

func TestLoadOverlaysFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lc3.toml")
	contents := `
[assembler]
case_sensitive = true

[vm]
max_cycles = 500000

[trap_vectors]
HALT = 37
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Assembler.CaseSensitive {
		t.Error("expected CaseSensitive=true from file")
	}
	if cfg.VM.MaxCycles != 500000 {
		t.Errorf("expected MaxCycles=500000, got %d", cfg.VM.MaxCycles)
	}
	if cfg.TrapVectors["HALT"] != 37 {
		t.Errorf("expected trap vector override HALT=37, got %d", cfg.TrapVectors["HALT"])
	}
	// Untouched sections keep their defaults.
	if cfg.IO.PollIntervalMillis != 10 {
		t.Errorf("expected untouched IO.PollIntervalMillis to stay at default 10, got %d", cfg.IO.PollIntervalMillis)
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lc3.toml")
	if err := os.WriteFile(path, []byte("not valid toml [["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed TOML")
	}
}
