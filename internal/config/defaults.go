package config

const (
	// CurrentV is the supported config layout version.
	CurrentV = 0

	defaultDecay         = "none"
	defaultDecayRate     = 0.5
	defaultLatencyFactor = 1.0
	defaultSeed          = 1
	defaultRuns          = 10
	defaultLogFormat     = "pretty"
)

// NewDefaultConfig returns a Config holding every default value.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Memory: MemoryConfig{
			Decay:         defaultDecay,
			DecayRate:     defaultDecayRate,
			LatencyFactor: defaultLatencyFactor,
		},
		Simulation: SimulationConfig{
			Seed: defaultSeed,
			Runs: defaultRuns,
		},
		Log: LogConfig{
			Format: defaultLogFormat,
		},
	}
}
