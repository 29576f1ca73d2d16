// Package config loads and validates think configuration.
package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/rcliao/think/internal/memory"
)

// ErrInvalidConfig wraps validation failures outside the memory section.
// Memory section failures wrap memory.ErrInvalidConfig instead.
var ErrInvalidConfig = errors.New("invalid config")

// Load decodes the merged viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a TOML file on top of the defaults without consulting the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Version != CurrentV {
		return fmt.Errorf("%w: unsupported config version %d", ErrInvalidConfig, c.Version)
	}
	if _, err := c.MemoryConfig(); err != nil {
		return fmt.Errorf("memory section: %w", err)
	}
	if c.Simulation.Runs < 0 {
		return fmt.Errorf("%w: negative simulation runs %d", ErrInvalidConfig, c.Simulation.Runs)
	}
	switch c.Log.Format {
	case "", "pretty", "json", "text":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// MemoryConfig converts the memory section into a validated memory.Config.
func (c *Config) MemoryConfig() (memory.Config, error) {
	decay, err := memory.ParseDecayPolicy(c.Memory.Decay)
	if err != nil {
		return memory.Config{}, err
	}
	mc := memory.Config{
		Decay:              decay,
		DecayRate:          c.Memory.DecayRate,
		ActivationNoise:    c.Memory.ActivationNoise,
		RetrievalThreshold: c.Memory.RetrievalThreshold,
		LatencyFactor:      c.Memory.LatencyFactor,
		MatchScale:         c.Memory.MatchScale,
		UseBlending:        c.Memory.UseBlending,
	}
	if err := mc.Validate(); err != nil {
		return memory.Config{}, err
	}
	return mc, nil
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}
