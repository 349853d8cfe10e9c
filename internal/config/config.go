// Package config loads the runtime's ingestion-time options (§3.3) from
// YAML, grounded on the teacher's integration-test runner convention of
// os.ReadFile + yaml.Unmarshal into a typed struct.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wod-wiki/runtime/internal/provider"
)

// Defaults per §3.3.
const (
	DefaultMaxStackDepth       = 64
	DefaultTickIntervalMs      = 100
	DefaultActionQueueMaxBatch = 1024
)

// Capabilities mirrors provider.Capabilities plus the read-side filter
// flags §3.3 groups alongside it.
type Capabilities struct {
	CanWrite       bool `yaml:"can_write"`
	CanDelete      bool `yaml:"can_delete"`
	CanFilter      bool `yaml:"can_filter"`
	CanMultiSelect bool `yaml:"can_multi_select"`
	SupportsHistory bool `yaml:"supports_history"`
}

// ToProviderCapabilities projects the write/delete subset used by
// provider.ContentProvider.
func (c Capabilities) ToProviderCapabilities() provider.Capabilities {
	return provider.Capabilities{CanWrite: c.CanWrite, CanDelete: c.CanDelete}
}

// Options is the §3.3 ingestion-time configuration table. ClockSource and
// ContentProvider are runtime collaborators, not YAML-serializable, and
// are set programmatically by the host after Load (see runtime.Options).
type Options struct {
	MaxStackDepth       int          `yaml:"max_stack_depth"`
	TickIntervalMs       int          `yaml:"tick_interval_ms"`
	ActionQueueMaxBatch int          `yaml:"action_queue_max_batch"`
	Capabilities        Capabilities `yaml:"capabilities"`
}

// TickInterval returns TickIntervalMs as a time.Duration.
func (o Options) TickInterval() time.Duration {
	return time.Duration(o.TickIntervalMs) * time.Millisecond
}

// Default returns the §3.3 default configuration.
func Default() Options {
	return Options{
		MaxStackDepth:       DefaultMaxStackDepth,
		TickIntervalMs:      DefaultTickIntervalMs,
		ActionQueueMaxBatch: DefaultActionQueueMaxBatch,
	}
}

// Load reads and parses a YAML configuration file at path, applying
// defaults for any zero-valued field.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied config file, not user input
	if err != nil {
		return Options{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	opts := Default()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&opts)
	return opts, nil
}

func applyDefaults(o *Options) {
	if o.MaxStackDepth <= 0 {
		o.MaxStackDepth = DefaultMaxStackDepth
	}
	if o.TickIntervalMs <= 0 {
		o.TickIntervalMs = DefaultTickIntervalMs
	}
	if o.ActionQueueMaxBatch <= 0 {
		o.ActionQueueMaxBatch = DefaultActionQueueMaxBatch
	}
}
