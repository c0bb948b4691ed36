// Package tuning loads the driver's operational parameters from YAML.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// IntervalMs is the tick interval handed to fresh states.
	IntervalMs int `yaml:"interval_ms"`
	// Running starts fresh states with the simulation clock enabled.
	Running bool `yaml:"running"`

	SnapshotEveryTicks uint64 `yaml:"snapshot_every_ticks"`
	// ArchiveEveryTicks controls milestone archiving; zero disables it.
	ArchiveEveryTicks uint64 `yaml:"archive_every_ticks"`

	// SpoilPerTick is the driver's apple spoilage increment per tick.
	SpoilPerTick float64 `yaml:"spoil_per_tick"`
}

func (t *Tuning) applyDefaults() {
	if t.IntervalMs <= 0 {
		t.IntervalMs = 1000
	}
	if t.SnapshotEveryTicks == 0 {
		t.SnapshotEveryTicks = 600
	}
	if t.ArchiveEveryTicks == 0 {
		t.ArchiveEveryTicks = 6000
	}
}

// Load reads path and fills in defaults for unset values.
func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

// Default returns the tuning used when no file is present.
func Default() Tuning {
	var t Tuning
	t.applyDefaults()
	t.Running = true
	return t
}
