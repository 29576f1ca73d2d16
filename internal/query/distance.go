package query

import (
	"math"

	"github.com/rcliao/think/internal/model"
)

// DistanceFunc measures how far a candidate slot value is from the queried
// value. It must return a non-negative number.
type DistanceFunc func(candidate, query model.Value) float64

// Distances maps slot names to their distance functions.
type Distances map[string]DistanceFunc

// Clone returns a copy of the registry.
func (d Distances) Clone() Distances {
	out := make(Distances, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Linear returns |a-b|/scale for numeric values, and 1 for any value that is
// not a number.
func Linear(scale float64) DistanceFunc {
	if scale <= 0 {
		scale = 1
	}
	return func(candidate, query model.Value) float64 {
		a, okA := model.ToFloat(candidate)
		b, okB := model.ToFloat(query)
		if !okA || !okB {
			return 1
		}
		return math.Abs(a-b) / scale
	}
}

// Circular returns the shortest distance around a circle of the given
// period, normalized so that opposite points are 1 apart. Hue angles use a
// period of 360.
func Circular(period float64) DistanceFunc {
	if period <= 0 {
		period = 360
	}
	return func(candidate, query model.Value) float64 {
		a, okA := model.ToFloat(candidate)
		b, okB := model.ToFloat(query)
		if !okA || !okB {
			return 1
		}
		d := math.Mod(math.Abs(a-b), period)
		if d > period/2 {
			d = period - d
		}
		return d / (period / 2)
	}
}

// Cosine returns 1 - cosine similarity for numeric vector values
// ([]float64 or []float32). Mismatched or zero vectors are 1 apart.
func Cosine() DistanceFunc {
	return func(candidate, query model.Value) float64 {
		a, okA := vector(candidate)
		b, okB := vector(query)
		if !okA || !okB {
			return 1
		}
		return 1 - CosineSimilarity(a, b)
	}
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func vector(v model.Value) ([]float64, bool) {
	switch vec := v.(type) {
	case []float64:
		return vec, true
	case []float32:
		out := make([]float64, len(vec))
		for i, x := range vec {
			out[i] = float64(x)
		}
		return out, true
	}
	return nil, false
}

// Weighted scales fn by w. A zero weight makes the slot irrelevant.
func Weighted(fn DistanceFunc, w float64) DistanceFunc {
	return func(candidate, query model.Value) float64 {
		return fn(candidate, query) * w
	}
}
