// Package model defines the slotted records stored in declarative memory.
package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Value is a slot value: a number, a string, or a reference to another value.
type Value = any

// Slots is a convenience literal for building items.
type Slots map[string]Value

// Item is an ordered mapping from slot name to value. The zero value is an
// empty item ready to use.
type Item struct {
	slots map[string]Value
	order []string
}

// NewItem returns an empty item.
func NewItem() *Item {
	return &Item{slots: map[string]Value{}}
}

// ItemOf builds an item from a slot map. Slots are ordered by name so that
// items built from the same map always print and iterate the same way.
func ItemOf(s Slots) *Item {
	it := NewItem()
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		it.Set(name, s[name])
	}
	return it
}

// Get returns the slot value and whether the slot is present.
func (it *Item) Get(slot string) (Value, bool) {
	v, ok := it.slots[slot]
	return v, ok
}

// Value returns the slot value, or nil when the slot is absent.
func (it *Item) Value(slot string) Value {
	return it.slots[slot]
}

// Has reports whether the slot is present.
func (it *Item) Has(slot string) bool {
	_, ok := it.slots[slot]
	return ok
}

// Set assigns a slot, appending it to the slot order if new.
func (it *Item) Set(slot string, val Value) *Item {
	if it.slots == nil {
		it.slots = map[string]Value{}
	}
	if _, ok := it.slots[slot]; !ok {
		it.order = append(it.order, slot)
	}
	it.slots[slot] = val
	return it
}

// Unset removes a slot if present.
func (it *Item) Unset(slot string) *Item {
	if _, ok := it.slots[slot]; !ok {
		return it
	}
	delete(it.slots, slot)
	for i, name := range it.order {
		if name == slot {
			it.order = append(it.order[:i:i], it.order[i+1:]...)
			break
		}
	}
	return it
}

// Slots returns the slot names in insertion order.
func (it *Item) Slots() []string {
	out := make([]string, len(it.order))
	copy(out, it.order)
	return out
}

// Len returns the number of slots.
func (it *Item) Len() int {
	return len(it.order)
}

// Matches reports whether every slot of other is present in the receiver
// with an equal value. It is a subset test, not symmetric equality.
func (it *Item) Matches(other *Item) bool {
	for _, slot := range other.order {
		v, ok := it.slots[slot]
		if !ok || !ValuesEqual(v, other.slots[slot]) {
			return false
		}
	}
	return true
}

// Equals reports whether both items hold exactly the same slots and values.
func (it *Item) Equals(other *Item) bool {
	return it.Len() == other.Len() && it.Matches(other)
}

// Clone returns a copy of the item. Values are copied shallowly.
func (it *Item) Clone() *Item {
	c := &Item{slots: make(map[string]Value, len(it.slots)), order: it.Slots()}
	for k, v := range it.slots {
		c.slots[k] = v
	}
	return c
}

// Merge overwrites or extends the receiver's slots with those of other.
func (it *Item) Merge(other *Item) *Item {
	for _, slot := range other.order {
		it.Set(slot, other.slots[slot])
	}
	return it
}

func (it *Item) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, slot := range it.order {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", slot, it.slots[slot])
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the slots as a JSON object.
func (it *Item) MarshalJSON() ([]byte, error) {
	if it.slots == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(it.slots)
}

// IsNumeric reports whether v is an integer or floating point number.
func IsNumeric(v Value) bool {
	_, ok := ToFloat(v)
	return ok
}

// IsContinuous reports whether v is a floating point number.
func IsContinuous(v Value) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

// ToFloat converts any Go numeric value to float64.
func ToFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// ValuesEqual compares two slot values. Numbers compare by value regardless
// of their Go type, so 1 and 1.0 are equal.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, okA := ToFloat(a)
	fb, okB := ToFloat(b)
	if okA || okB {
		return okA && okB && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two values of the same kind. It returns false when the
// values are not comparable (absent, mixed kinds, or references).
func Compare(a, b Value) (int, bool) {
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	sa, ok := a.(string)
	if !ok {
		return 0, false
	}
	sb, ok := b.(string)
	if !ok {
		return 0, false
	}
	return strings.Compare(sa, sb), true
}
