// Package query implements slot predicates over items and the similarity
// score used for partial matching.
package query

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rcliao/think/internal/model"
)

// Op is a slot comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpGt Op = ">"
	OpGe Op = ">="
	OpLt Op = "<"
	OpLe Op = "<="
)

// SimilarityScale is the constant c in exp(-c*sqrt(sum)) - 1.
const SimilarityScale = 1.0

// SlotQuery is a single predicate on one slot.
type SlotQuery struct {
	Slot  string
	Op    Op
	Value model.Value
}

// Matches evaluates the predicate against an item.
//
// An absent slot fails every operator except !=, which succeeds: an absent
// value differs from any value. Relational operators fail when the two
// values are not of a comparable kind.
func (sq SlotQuery) Matches(item *model.Item) bool {
	v, ok := item.Get(sq.Slot)
	if !ok {
		return sq.Op == OpNe
	}
	switch sq.Op {
	case OpEq:
		return model.ValuesEqual(v, sq.Value)
	case OpNe:
		return !model.ValuesEqual(v, sq.Value)
	}
	c, ok := model.Compare(v, sq.Value)
	if !ok {
		return false
	}
	switch sq.Op {
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	}
	return false
}

func (sq SlotQuery) String() string {
	return fmt.Sprintf("%s%s%v", sq.Slot, sq.Op, sq.Value)
}

// Query is an ordered conjunction of slot predicates.
type Query struct {
	slotqs []SlotQuery
}

// New returns an empty query, which matches every item.
func New() *Query {
	return &Query{}
}

// FromItem builds an equality query for every slot of item, in slot order.
func FromItem(item *model.Item) *Query {
	q := New()
	for _, slot := range item.Slots() {
		q.Eq(slot, item.Value(slot))
	}
	return q
}

// FromSlots builds an equality query from a slot map, ordered by slot name.
func FromSlots(s model.Slots) *Query {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	q := New()
	for _, name := range names {
		q.Eq(name, s[name])
	}
	return q
}

func (q *Query) add(slot string, op Op, val model.Value) *Query {
	q.slotqs = append(q.slotqs, SlotQuery{Slot: slot, Op: op, Value: val})
	return q
}

// Eq appends slot = val.
func (q *Query) Eq(slot string, val model.Value) *Query { return q.add(slot, OpEq, val) }

// Ne appends slot != val.
func (q *Query) Ne(slot string, val model.Value) *Query { return q.add(slot, OpNe, val) }

// Gt appends slot > val.
func (q *Query) Gt(slot string, val model.Value) *Query { return q.add(slot, OpGt, val) }

// Ge appends slot >= val.
func (q *Query) Ge(slot string, val model.Value) *Query { return q.add(slot, OpGe, val) }

// Lt appends slot < val.
func (q *Query) Lt(slot string, val model.Value) *Query { return q.add(slot, OpLt, val) }

// Le appends slot <= val.
func (q *Query) Le(slot string, val model.Value) *Query { return q.add(slot, OpLe, val) }

// Predicates returns a copy of the predicates in order.
func (q *Query) Predicates() []SlotQuery {
	out := make([]SlotQuery, len(q.slotqs))
	copy(out, q.slotqs)
	return out
}

// Slots returns the constrained slot names in predicate order, without
// repeats.
func (q *Query) Slots() []string {
	var out []string
	seen := map[string]bool{}
	for _, sq := range q.slotqs {
		if !seen[sq.Slot] {
			seen[sq.Slot] = true
			out = append(out, sq.Slot)
		}
	}
	return out
}

// Get returns the first predicate on slot.
func (q *Query) Get(slot string) (SlotQuery, bool) {
	for _, sq := range q.slotqs {
		if sq.Slot == slot {
			return sq, true
		}
	}
	return SlotQuery{}, false
}

// Has reports whether any predicate constrains slot.
func (q *Query) Has(slot string) bool {
	_, ok := q.Get(slot)
	return ok
}

// Matches reports whether every predicate holds for item.
func (q *Query) Matches(item *model.Item) bool {
	for _, sq := range q.slotqs {
		if !sq.Matches(item) {
			return false
		}
	}
	return true
}

// Distance returns the similarity of item to the query: 0 for a perfect
// match, approaching -1 as the item grows dissimilar.
//
// Each predicate adds a squared term. A slot with a registered distance
// function adds fn(candidate, query)^2; any other predicate adds 1 when it
// fails and 0 when it holds. A slot absent from item always adds 1.
func (q *Query) Distance(item *model.Item, fns Distances) float64 {
	sum := 0.0
	for _, sq := range q.slotqs {
		fn, ok := fns[sq.Slot]
		if !ok {
			if !sq.Matches(item) {
				sum++
			}
			continue
		}
		v, present := item.Get(sq.Slot)
		if !present {
			sum++
			continue
		}
		d := fn(v, sq.Value)
		sum += d * d
	}
	return math.Exp(-SimilarityScale*math.Sqrt(sum)) - 1
}

func (q *Query) String() string {
	parts := make([]string, len(q.slotqs))
	for i, sq := range q.slotqs {
		parts[i] = sq.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
