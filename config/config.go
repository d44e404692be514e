// Package config loads the toolchain's optional lc3.toml settings file:
// TOML-tagged sections with built-in defaults, loaded if present and left
// at the defaults otherwise. CLI flags always override file values.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable the assembler and VM expose.
type Config struct {
	Assembler struct {
		CaseSensitive bool `toml:"case_sensitive"`
		NoSymFile     bool `toml:"no_sym_file"`
	} `toml:"assembler"`

	VM struct {
		MaxCycles uint64 `toml:"max_cycles"`
	} `toml:"vm"`

	IO struct {
		PollIntervalMillis int `toml:"poll_interval_millis"`
	} `toml:"io"`

	// TrapVectors overrides the default 8-bit vectors for the synthetic
	// convenience mnemonics (GETC/OUT/PUTS/IN/HALT). Absent entries keep
	// isa's built-in defaults.
	TrapVectors map[string]uint8 `toml:"trap_vectors"`
}

// Default returns a Config with the toolchain's built-in defaults: no
// config file needed for ordinary use.
func Default() *Config {
	cfg := &Config{}
	cfg.Assembler.CaseSensitive = false
	cfg.Assembler.NoSymFile = false
	cfg.VM.MaxCycles = 0 // 0 means unbounded
	cfg.IO.PollIntervalMillis = 10
	return cfg
}

// Load reads path if it exists, overlaying its values onto the defaults; a
// missing file is not an error — it simply yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
