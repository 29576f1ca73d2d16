package memory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid memory config")
	// ErrNoiseNotConfigured is returned by computations that are only
	// defined when activation noise is enabled.
	ErrNoiseNotConfigured = errors.New("activation noise not configured")
	// ErrUnknownChunk is returned when a chunk id is not in the store.
	ErrUnknownChunk = errors.New("unknown chunk")
)

// DecayPolicy selects how activation changes with time and use.
type DecayPolicy int

const (
	// NoDecay keeps every chunk at its initial activation.
	NoDecay DecayPolicy = iota + 1
	// OptimizedDecay approximates base-level learning from a use count and
	// the chunk's age.
	OptimizedDecay
	// AdvancedDecay sums the decayed contribution of every recorded use.
	AdvancedDecay
)

func (p DecayPolicy) String() string {
	switch p {
	case NoDecay:
		return "none"
	case OptimizedDecay:
		return "optimized"
	case AdvancedDecay:
		return "advanced"
	default:
		return fmt.Sprintf("DecayPolicy(%d)", int(p))
	}
}

// ParseDecayPolicy parses "none", "optimized" or "advanced".
func ParseDecayPolicy(s string) (DecayPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "no", "no-decay":
		return NoDecay, nil
	case "optimized", "optimised":
		return OptimizedDecay, nil
	case "advanced":
		return AdvancedDecay, nil
	}
	return 0, fmt.Errorf("%w: unknown decay policy %q", ErrInvalidConfig, s)
}

// Config holds the knobs of one memory. It is fixed once the memory is
// constructed.
type Config struct {
	Decay     DecayPolicy
	DecayRate float64

	// ActivationNoise is the standard deviation of the Gaussian noise added
	// to activation on each retrieval attempt. Zero disables noise.
	ActivationNoise float64

	RetrievalThreshold float64
	LatencyFactor      float64

	// MatchScale weights the dissimilarity penalty. Zero disables partial
	// matching, so only chunks satisfying the query compete.
	MatchScale float64

	UseBlending bool
}

// DefaultConfig returns the configuration a memory starts with.
func DefaultConfig() Config {
	return Config{
		Decay:              NoDecay,
		DecayRate:          0.5,
		RetrievalThreshold: 0.0,
		LatencyFactor:      1.0,
	}
}

// Validate checks the configuration for the selected decay policy.
func (c Config) Validate() error {
	switch c.Decay {
	case NoDecay:
	case OptimizedDecay:
		if c.DecayRate <= 0 || c.DecayRate >= 1 {
			return fmt.Errorf("%w: optimized decay needs 0 < decay rate < 1, got %v", ErrInvalidConfig, c.DecayRate)
		}
	case AdvancedDecay:
		if c.DecayRate <= 0 {
			return fmt.Errorf("%w: advanced decay needs a positive decay rate, got %v", ErrInvalidConfig, c.DecayRate)
		}
	default:
		return fmt.Errorf("%w: unknown decay policy %d", ErrInvalidConfig, int(c.Decay))
	}
	if c.ActivationNoise < 0 {
		return fmt.Errorf("%w: negative activation noise %v", ErrInvalidConfig, c.ActivationNoise)
	}
	if c.LatencyFactor < 0 {
		return fmt.Errorf("%w: negative latency factor %v", ErrInvalidConfig, c.LatencyFactor)
	}
	if c.MatchScale < 0 {
		return fmt.Errorf("%w: negative match scale %v", ErrInvalidConfig, c.MatchScale)
	}
	return nil
}
