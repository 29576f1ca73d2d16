package experiment

import (
	"math"

	"github.com/rcliao/think/internal/model"
	"github.com/rcliao/think/internal/query"
)

// Color is an HSL color. Hue is in degrees, saturation and lightness in
// percent.
type Color struct {
	H, S, L float64
}

// Slots returns the color as chunk slots.
func (c Color) Slots() model.Slots {
	return model.Slots{"h": c.H, "s": c.S, "l": c.L}
}

// Query returns an equality query on the color's slots.
func (c Color) Query() *query.Query {
	return query.New().Eq("h", c.H).Eq("s", c.S).Eq("l", c.L)
}

// Pair assigns a color (1-based index into Colors) to a category.
type Pair struct {
	Color    int
	Category int
}

// Stimuli of the color classification study.
var (
	Colors = [...]Color{
		{S: 15, L: 64}, {S: 56, L: 74}, {S: 32, L: 59}, {S: 65, L: 65},
		{S: 18, L: 51}, {S: 46, L: 51}, {S: 78, L: 48}, {S: 32, L: 42},
		{S: 64, L: 42}, {S: 12, L: 29}, {S: 52, L: 26}, {S: 65, L: 26},
	}

	Pairs = []Pair{
		{1, 1}, {2, 2}, {3, 2}, {4, 2}, {5, 1}, {6, 2},
		{7, 2}, {8, 1}, {9, 2}, {10, 1}, {11, 1}, {12, 1},
	}

	// Knowledge is the prior color knowledge each agent starts with, by
	// category.
	Knowledge = map[int][]Color{
		1: {{H: 11, S: 45, L: 35}},
		2: {{H: 350, S: 100, L: 88}},
	}
)

// NumColors is the number of stimulus colors.
const NumColors = len(Colors)

// Weights scales the per-slot distances of hue, saturation and lightness.
type Weights struct {
	H, S, L float64
}

// DefaultWeights ignores hue, as the stimuli are all hue 0.
var DefaultWeights = Weights{H: 0, S: 1.17, L: 0.83}

// Distances returns the partial-matching distance functions for colors.
func Distances(w Weights) query.Distances {
	return query.Distances{
		"h": query.Weighted(hueDistance, w.H),
		"s": query.Weighted(query.Linear(100), w.S),
		"l": query.Weighted(query.Linear(100), w.L),
	}
}

// hueDistance compares hues by their distance from cyan.
func hueDistance(candidate, q model.Value) float64 {
	a, okA := model.ToFloat(candidate)
	b, okB := model.ToFloat(q)
	if !okA || !okB {
		return 1
	}
	return math.Abs(math.Abs(180-a)-math.Abs(180-b)) / 360
}
