package memory

import (
	"math"

	"github.com/rcliao/think/internal/model"
)

// minAge floors the age of a chunk so that decay never takes log(0).
const minAge = 0.001

// computeActivation refreshes the resting activation of c at time now.
// Callers hold m.mu.
func (m *Memory) computeActivation(c *model.Chunk, now float64) float64 {
	switch m.cfg.Decay {
	case OptimizedDecay:
		if c.UseCount <= 0 {
			return c.Activation
		}
		age := now - c.CreationTime
		if age < minAge {
			age = minAge
		}
		d := m.cfg.DecayRate
		c.Activation = math.Log(float64(c.UseCount)/(1-d)) - d*math.Log(age)
	case AdvancedDecay:
		sum := 0.0
		for _, use := range c.Uses {
			dt := now - use
			if dt <= 0 {
				continue
			}
			sum += math.Pow(dt, -m.cfg.DecayRate)
		}
		if sum <= 0 {
			return c.Activation
		}
		c.Activation = math.Log(sum)
	}
	return c.Activation
}

// computeTransient draws one noisy activation for a retrieval attempt and
// records it on the chunk. Callers hold m.mu.
func (m *Memory) computeTransient(c *model.Chunk, now float64) float64 {
	act := m.computeActivation(c, now)
	if m.cfg.ActivationNoise > 0 {
		act += m.rng.NormFloat64() * m.cfg.ActivationNoise
	}
	c.TransientActivation = act
	return act
}

// Activation returns the resting activation of c at the current time.
func (m *Memory) Activation(c *model.Chunk) float64 {
	now := m.sched.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computeActivation(c, now)
}

// ProbabilityOfRecall returns the logistic probability that c clears the
// retrieval threshold under the configured noise.
func (m *Memory) ProbabilityOfRecall(c *model.Chunk) (float64, error) {
	if m.cfg.ActivationNoise <= 0 {
		return 0, ErrNoiseNotConfigured
	}
	act := m.Activation(c)
	x := -(act - m.cfg.RetrievalThreshold) / m.cfg.ActivationNoise
	return 1 / (1 + math.Exp(x)), nil
}

// RecallLatency returns the time a successful retrieval of c takes, based on
// its last computed resting activation.
func (m *Memory) RecallLatency(c *model.Chunk) float64 {
	m.mu.Lock()
	act := c.Activation
	m.mu.Unlock()
	return m.latencyFor(act)
}

func (m *Memory) latencyFor(act float64) float64 {
	return m.cfg.LatencyFactor * math.Exp(math.Min(-act, m.cfg.RetrievalThreshold))
}

func (m *Memory) failureLatency() float64 {
	return m.cfg.LatencyFactor * math.Exp(-m.cfg.RetrievalThreshold)
}
