// Package config loads tool defaults from a TOML file. Every field has a
// working default so the tool runs with no config file at all; a file only
// overrides what it names.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds tool-wide defaults. All lengths are in millimeters.
type Config struct {
	// QRSize is the default overall pattern footprint side length.
	QRSize float64 `toml:"qr_size"`
	// BlockHeight is the default raised block height.
	BlockHeight float64 `toml:"block_height"`
	// BaseHeight is the default base plate height; 0 disables the plate.
	BaseHeight float64 `toml:"base_height"`
	// RecoveryLevel is the QR error-correction level: L, M, Q, or H.
	RecoveryLevel string `toml:"recovery_level"`
	// ExportDir is where interchange files are written.
	ExportDir string `toml:"export_dir"`
	// MeshCells is the marching cubes resolution for STL export.
	MeshCells int `toml:"mesh_cells"`
}

// Default returns the built-in configuration: 24 mm pattern, 0.4 mm
// blocks, no base plate, medium error correction, exports to the system
// temporary directory.
func Default() Config {
	return Config{
		QRSize:        24,
		BlockHeight:   0.4,
		BaseHeight:    0,
		RecoveryLevel: "M",
		ExportDir:     os.TempDir(),
		MeshCells:     200,
	}
}

// Load reads a TOML config file over the defaults. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.QRSize <= 0 {
		return fmt.Errorf("qr_size must be positive, got %g", c.QRSize)
	}
	if c.BlockHeight <= 0 {
		return fmt.Errorf("block_height must be positive, got %g", c.BlockHeight)
	}
	if c.BaseHeight < 0 {
		return fmt.Errorf("base_height cannot be negative, got %g", c.BaseHeight)
	}
	if c.MeshCells <= 0 {
		return fmt.Errorf("mesh_cells must be positive, got %d", c.MeshCells)
	}
	return nil
}
