package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// InitialActivation is the activation a chunk holds before any decay
// computation.
var InitialActivation = -math.Log(0.1)

// Chunk is an item stored in declarative memory, carrying identity,
// creation time and usage history.
type Chunk struct {
	Item

	ID                  string
	CreationTime        float64
	Activation          float64
	TransientActivation float64
	UseCount            int
	Uses                []float64

	// BlendedFrom is set on chunks synthesized by blended retrieval and
	// points at the highest scoring contributor.
	BlendedFrom *Chunk

	created bool
}

// NewChunk builds a chunk from a copy of the given item.
func NewChunk(item *Item) *Chunk {
	c := &Chunk{Activation: InitialActivation}
	if item != nil {
		c.Item = *item.Clone()
	}
	c.ID = DefaultID(&c.Item)
	return c
}

// ChunkOf builds a chunk from a slot map.
func ChunkOf(s Slots) *Chunk {
	return NewChunk(ItemOf(s))
}

// DefaultID derives a chunk id from the id, name or isa slot, in that order.
func DefaultID(item *Item) string {
	for _, slot := range []string{"id", "name", "isa"} {
		if v, ok := item.Get(slot); ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return "chunk"
}

// IncrementUse bumps the use counter.
func (c *Chunk) IncrementUse() {
	c.UseCount++
}

// AddUse records a use at the given time.
func (c *Chunk) AddUse(t float64) {
	c.Uses = append(c.Uses, t)
}

// SetCreationTime records the creation time. Later calls are ignored.
func (c *Chunk) SetCreationTime(t float64) {
	if c.created {
		return
	}
	c.CreationTime = t
	c.created = true
}

// HasCreationTime reports whether the chunk has been stored.
func (c *Chunk) HasCreationTime() bool {
	return c.created
}

func (c *Chunk) String() string {
	return fmt.Sprintf("<%s>%s", c.ID, c.Item.String())
}

type chunkJSON struct {
	ID                  string    `json:"id"`
	Slots               *Item     `json:"slots"`
	CreationTime        float64   `json:"creation_time"`
	Activation          float64   `json:"activation"`
	TransientActivation float64   `json:"transient_activation"`
	UseCount            int       `json:"use_count,omitempty"`
	Uses                []float64 `json:"uses,omitempty"`
}

// MarshalJSON encodes the chunk with its slots nested under "slots".
func (c *Chunk) MarshalJSON() ([]byte, error) {
	return json.Marshal(chunkJSON{
		ID:                  c.ID,
		Slots:               &c.Item,
		CreationTime:        c.CreationTime,
		Activation:          c.Activation,
		TransientActivation: c.TransientActivation,
		UseCount:            c.UseCount,
		Uses:                c.Uses,
	})
}
