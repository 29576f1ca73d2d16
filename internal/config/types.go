package config

// Config is the persistent think configuration stored as TOML. Sections
// group the memory knobs, the simulation settings and the ambient stack.
type Config struct {
	Version    int              `toml:"version" mapstructure:"version"`
	Memory     MemoryConfig     `toml:"memory" mapstructure:"memory"`
	Simulation SimulationConfig `toml:"simulation" mapstructure:"simulation"`
	Trace      TraceConfig      `toml:"trace" mapstructure:"trace"`
	Log        LogConfig        `toml:"log" mapstructure:"log"`
}

// MemoryConfig holds the declarative memory knobs. They are fixed for the
// lifetime of a run.
type MemoryConfig struct {
	Decay              string  `toml:"decay" mapstructure:"decay"`
	DecayRate          float64 `toml:"decay_rate" mapstructure:"decay_rate"`
	ActivationNoise    float64 `toml:"activation_noise" mapstructure:"activation_noise"`
	RetrievalThreshold float64 `toml:"retrieval_threshold" mapstructure:"retrieval_threshold"`
	LatencyFactor      float64 `toml:"latency_factor" mapstructure:"latency_factor"`
	MatchScale         float64 `toml:"match_scale" mapstructure:"match_scale"`
	UseBlending        bool    `toml:"use_blending" mapstructure:"use_blending"`
}

// SimulationConfig controls experiment runs.
type SimulationConfig struct {
	Seed int64 `toml:"seed" mapstructure:"seed"`
	Runs int   `toml:"runs" mapstructure:"runs"`
}

// TraceConfig holds trace storage settings. An empty path disables tracing.
type TraceConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Debug  bool   `toml:"debug" mapstructure:"debug"`
	Format string `toml:"format" mapstructure:"format"`
	Source bool   `toml:"source" mapstructure:"source"`
}
