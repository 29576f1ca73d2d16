package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. THINK_MEMORY_DECAY.
const EnvPrefix = "THINK"

// InitViper returns a viper instance holding the defaults, the config file
// and environment overrides.
//
// Precedence (highest to lowest):
//  1. CLI flags, once bound by the caller
//  2. THINK_* environment variables
//  3. the TOML config file
//  4. NewDefaultConfig
//
// An empty path searches for think.toml in the working directory and in
// $HOME/.think. A missing file is not an error unless path names it.
func InitViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)
	v.SetConfigType("toml")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("think")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".think"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("memory.decay", d.Memory.Decay)
	v.SetDefault("memory.decay_rate", d.Memory.DecayRate)
	v.SetDefault("memory.activation_noise", d.Memory.ActivationNoise)
	v.SetDefault("memory.retrieval_threshold", d.Memory.RetrievalThreshold)
	v.SetDefault("memory.latency_factor", d.Memory.LatencyFactor)
	v.SetDefault("memory.match_scale", d.Memory.MatchScale)
	v.SetDefault("memory.use_blending", d.Memory.UseBlending)

	v.SetDefault("simulation.seed", d.Simulation.Seed)
	v.SetDefault("simulation.runs", d.Simulation.Runs)

	v.SetDefault("trace.sqlite_path", d.Trace.SQLitePath)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.source", d.Log.Source)
}
