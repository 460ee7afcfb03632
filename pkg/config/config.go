package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

// DefaultPath is where Load looks when no explicit path is given. The
// ROTA_CONFIG environment variable overrides it.
const DefaultPath = "rota.yaml"

// ShiftOverride adjusts the displayed hours of one live shift slot. Empty
// fields keep the built-in values; overrides never add or remove slots.
type ShiftOverride struct {
	Tier  string `yaml:"tier"`
	Type  string `yaml:"shift_type"`
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`
	Label string `yaml:"label,omitempty"`
}

// File models rota.yaml.
type File struct {
	Tolerance int             `yaml:"tolerance"`
	Shifts    []ShiftOverride `yaml:"shifts,omitempty"`
}

// Config carries the settings the serving layer and CLI read at startup.
// Secrets and connection strings stay in the environment.
type Config struct {
	// Tolerance is the widest acceptable per-tier month-count spread
	// before the validator flags an imbalance.
	Tolerance int

	// Shifts are the live shift slots with any overrides applied.
	Shifts []models.ShiftDefinition
}

// Default returns the built-in settings: tolerance 1 and the standard five
// shift slots.
func Default() *Config {
	return &Config{
		Tolerance: 1,
		Shifts:    models.DefaultShiftDefinitions(),
	}
}

// Load reads the config file at path, falling back to ROTA_CONFIG and then
// DefaultPath when path is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ROTA_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Config from raw rota.yaml content.
func Parse(data []byte) (*Config, error) {
	parsed := File{Tolerance: 1}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if parsed.Tolerance < 0 {
		return nil, fmt.Errorf("config: tolerance must be >= 0, got %d", parsed.Tolerance)
	}

	cfg := &Config{
		Tolerance: parsed.Tolerance,
		Shifts:    models.DefaultShiftDefinitions(),
	}
	for i, ovr := range parsed.Shifts {
		if err := cfg.apply(ovr); err != nil {
			return nil, fmt.Errorf("config: shifts[%d]: %w", i, err)
		}
	}
	return cfg, nil
}

func (c *Config) apply(ovr ShiftOverride) error {
	for i := range c.Shifts {
		d := &c.Shifts[i]
		if string(d.Tier) != ovr.Tier || string(d.Type) != ovr.Type {
			continue
		}
		if ovr.Start != "" {
			d.Start = ovr.Start
		}
		if ovr.End != "" {
			d.End = ovr.End
		}
		if ovr.Label != "" {
			d.TimeLabel = ovr.Label
		}
		return nil
	}
	return fmt.Errorf("no shift slot %s/%s", ovr.Tier, ovr.Type)
}

// ShiftFor looks up the configured slot for a tier and shift type.
func (c *Config) ShiftFor(tier models.Tier, st models.ShiftType) (models.ShiftDefinition, bool) {
	for _, d := range c.Shifts {
		if d.Tier == tier && d.Type == st {
			return d, true
		}
	}
	return models.ShiftDefinition{}, false
}
