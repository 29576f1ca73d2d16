package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/think/internal/model"
)

func TestSlotQuery_Operators(t *testing.T) {
	item := model.ItemOf(model.Slots{"n": 5, "s": "m", "f": 2.5})

	tests := []struct {
		name string
		sq   SlotQuery
		want bool
	}{
		{"eq hit", SlotQuery{"n", OpEq, 5}, true},
		{"eq numeric types", SlotQuery{"n", OpEq, 5.0}, true},
		{"eq miss", SlotQuery{"n", OpEq, 4}, false},
		{"ne hit", SlotQuery{"n", OpNe, 4}, true},
		{"ne miss", SlotQuery{"n", OpNe, 5}, false},
		{"gt", SlotQuery{"n", OpGt, 4}, true},
		{"gt equal", SlotQuery{"n", OpGt, 5}, false},
		{"ge equal", SlotQuery{"n", OpGe, 5}, true},
		{"lt", SlotQuery{"f", OpLt, 3}, true},
		{"le", SlotQuery{"f", OpLe, 2.5}, true},
		{"string order", SlotQuery{"s", OpGt, "a"}, true},
		{"mixed kinds", SlotQuery{"s", OpGt, 1}, false},
		{"absent eq", SlotQuery{"x", OpEq, 1}, false},
		{"absent gt", SlotQuery{"x", OpGt, 1}, false},
		{"absent le", SlotQuery{"x", OpLe, 1}, false},
		{"absent ne", SlotQuery{"x", OpNe, 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sq.Matches(item))
		})
	}
}

func TestQuery_SubsetMatch(t *testing.T) {
	a := model.ItemOf(model.Slots{"color": "red", "category": 1, "h": 11})

	q := FromSlots(model.Slots{"color": "red", "category": 1})
	assert.True(t, q.Matches(a))

	q.Eq("h", 12)
	assert.False(t, q.Matches(a), "one mismatched predicate must fail the query")

	assert.True(t, New().Matches(a), "empty query matches everything")
	assert.True(t, FromItem(a).Matches(a))
}

func TestQuery_Accessors(t *testing.T) {
	q := New().Eq("isa", "goal").Gt("n", 2)
	sq, ok := q.Get("n")
	assert.True(t, ok)
	assert.Equal(t, OpGt, sq.Op)
	assert.True(t, q.Has("isa"))
	assert.False(t, q.Has("x"))
	assert.Len(t, q.Predicates(), 2)
	assert.Equal(t, "[isa=goal, n>2]", q.String())
}

func TestQuery_DistanceBinary(t *testing.T) {
	item := model.ItemOf(model.Slots{"a": 1, "b": 2})

	assert.Equal(t, 0.0, FromSlots(model.Slots{"a": 1, "b": 2}).Distance(item, nil))

	oneMiss := FromSlots(model.Slots{"a": 1, "b": 3}).Distance(item, nil)
	assert.InDelta(t, math.Exp(-1)-1, oneMiss, 1e-12)

	twoMiss := FromSlots(model.Slots{"a": 0, "b": 3}).Distance(item, nil)
	assert.InDelta(t, math.Exp(-math.Sqrt(2))-1, twoMiss, 1e-12)
	assert.Less(t, twoMiss, oneMiss)
}

func TestQuery_DistanceWithFunctions(t *testing.T) {
	item := model.ItemOf(model.Slots{"s": 40, "l": 60})
	fns := Distances{"s": Linear(100), "l": Linear(100)}

	q := FromSlots(model.Slots{"s": 10, "l": 20})
	// (0.3)^2 + (0.4)^2 = 0.25 -> sqrt = 0.5
	assert.InDelta(t, math.Exp(-0.5)-1, q.Distance(item, fns), 1e-12)

	// An absent slot with a registered function counts as a full miss.
	q2 := FromSlots(model.Slots{"h": 10})
	assert.InDelta(t, math.Exp(-1)-1, q2.Distance(item, Distances{"h": Linear(1)}), 1e-12)
}

func TestCircular(t *testing.T) {
	fn := Circular(360)
	assert.InDelta(t, 0.0, fn(10, 10), 1e-12)
	assert.InDelta(t, 20.0/180, fn(350, 10), 1e-12)
	assert.InDelta(t, 1.0, fn(0, 180), 1e-12)
	assert.Equal(t, 1.0, fn("red", 10))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
		delta    float64
	}{
		{"identical", []float64{1, 0, 0}, []float64{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", []float64{1, 0, 0}, []float64{0, 1, 0}, 0.0, 0.001},
		{"opposite", []float64{1, 0, 0}, []float64{-1, 0, 0}, -1.0, 0.001},
		{"similar", []float64{1, 1, 0}, []float64{1, 0, 0}, 0.707, 0.01},
		{"empty", []float64{}, []float64{}, 0.0, 0.001},
		{"different lengths", []float64{1, 0}, []float64{1, 0, 0}, 0.0, 0.001},
		{"zero vector", []float64{0, 0, 0}, []float64{1, 0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f (±%f)", tt.a, tt.b, got, tt.expected, tt.delta)
			}
		})
	}
}

func TestCosineDistance(t *testing.T) {
	fn := Cosine()
	assert.InDelta(t, 0.0, fn([]float32{1, 2}, []float64{2, 4}), 1e-6)
	assert.Equal(t, 1.0, fn("x", []float64{1}))
}

func TestWeighted(t *testing.T) {
	fn := Weighted(Linear(100), 0.5)
	if got := fn(10, 30); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("Weighted(Linear(100), 0.5)(10, 30) = %v, want 0.1", got)
	}
	if got := Weighted(Linear(100), 0)(0, 100); got != 0 {
		t.Errorf("zero weight = %v, want 0", got)
	}
}

func TestQuery_Slots(t *testing.T) {
	q := New().Gt("n", 1).Lt("n", 5).Eq("color", "red")
	assert.Equal(t, []string{"n", "color"}, q.Slots())
	assert.Nil(t, New().Slots())
}
