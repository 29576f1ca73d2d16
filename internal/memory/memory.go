// Package memory implements declarative memory: chunks stored by slot,
// strengthened by use, weakened by time, and retrieved by partial-match cue
// after a latency that depends on their activation.
//
// Retrieval is exposed through a Buffer. StartRecall computes the result
// immediately against a single snapshot of simulated time, and the result
// becomes visible to GetRecalled only once its latency has elapsed on the
// scheduler.
package memory

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/rcliao/think/internal/buffer"
	"github.com/rcliao/think/internal/clock"
	"github.com/rcliao/think/internal/logger"
	"github.com/rcliao/think/internal/model"
	"github.com/rcliao/think/internal/query"
	"github.com/rcliao/think/internal/trace"
)

// DefaultSeed seeds the noise source when no generator is supplied.
const DefaultSeed = 1

// Option configures a Memory.
type Option func(*Memory)

// WithRand sets the pseudo-random source for activation noise.
func WithRand(r *rand.Rand) Option {
	return func(m *Memory) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Memory) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRecorder sets the trace recorder.
func WithRecorder(r trace.Recorder) Option {
	return func(m *Memory) {
		if r != nil {
			m.rec = r
		}
	}
}

// WithDistances registers per-slot distance functions for partial matching.
func WithDistances(d query.Distances) Option {
	return func(m *Memory) {
		for slot, fn := range d {
			m.distances[slot] = fn
		}
	}
}

// Memory owns a chunk store and the retrieval buffer in front of it.
type Memory struct {
	cfg    Config
	sched  clock.Scheduler
	rng    *rand.Rand
	log    *slog.Logger
	rec    trace.Recorder
	buffer *buffer.Buffer

	mu        sync.Mutex
	chunks    []*model.Chunk
	byID      map[string]*model.Chunk
	distances query.Distances
	unique    int
}

// New creates an empty memory. The configuration is validated and then
// fixed for the lifetime of the memory.
func New(cfg Config, sched clock.Scheduler, opts ...Option) (*Memory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, fmt.Errorf("%w: nil scheduler", ErrInvalidConfig)
	}
	m := &Memory{
		cfg:       cfg,
		sched:     sched,
		rng:       rand.New(rand.NewSource(DefaultSeed)),
		log:       logger.Nop(),
		rec:       trace.Nop{},
		byID:      map[string]*model.Chunk{},
		distances: query.Distances{},
		unique:    1,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("module", "memory")
	m.buffer = buffer.New("memory", sched, buffer.WithLogger(m.log))
	return m, nil
}

// Config returns the memory's configuration.
func (m *Memory) Config() Config { return m.cfg }

// Buffer returns the retrieval buffer.
func (m *Memory) Buffer() *buffer.Buffer { return m.buffer }

// Now returns the current simulated time.
func (m *Memory) Now() float64 { return m.sched.Now() }

// AddDistance registers a distance function for slot.
func (m *Memory) AddDistance(slot string, fn query.DistanceFunc) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distances[slot] = fn
	return m
}

// StoreOption modifies a single Store call.
type StoreOption func(*storeOptions)

type storeOptions struct {
	boost int
}

// WithBoost registers n extra uses on top of the natural one, modeling
// deliberate rehearsal.
func WithBoost(n int) StoreOption {
	return func(o *storeOptions) {
		if n > 0 {
			o.boost = n
		}
	}
}

// Store stores the item as a chunk, or reinforces the existing chunk holding
// exactly the same slots. It returns the stored or reinforced chunk.
func (m *Memory) Store(item *model.Item, opts ...StoreOption) *model.Chunk {
	return m.StoreChunk(model.NewChunk(item), opts...)
}

// StoreSlots is Store for a slot map.
func (m *Memory) StoreSlots(s model.Slots, opts ...StoreOption) *model.Chunk {
	return m.Store(model.ItemOf(s), opts...)
}

// StoreChunk stores a prepared chunk. A chunk built with a preset UseCount
// keeps it, which lets callers seed prior knowledge strength.
func (m *Memory) StoreChunk(c *model.Chunk, opts ...StoreOption) *model.Chunk {
	var so storeOptions
	for _, opt := range opts {
		opt(&so)
	}

	now := m.sched.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	kind := trace.KindStore
	target := m.findEqual(c)
	if target != nil {
		kind = trace.KindMerge
		m.addUse(target, now)
		m.log.Debug("stored and merged", "chunk", target.String(), "sim_time", now)
	} else {
		target = c
		target.ID = m.uniquify(target.ID)
		target.SetCreationTime(now)
		m.addUse(target, now)
		m.chunks = append(m.chunks, target)
		m.byID[target.ID] = target
		m.log.Debug("stored", "chunk", target.String(), "sim_time", now)
	}
	for i := 0; i < so.boost; i++ {
		m.addUse(target, now)
	}
	if so.boost > 0 {
		m.log.Debug("boosted", "chunk", target.ID, "times", so.boost)
	}

	act := m.computeActivation(target, now)
	m.rec.Record(trace.Event{
		Kind:       kind,
		SimTime:    now,
		ChunkID:    target.ID,
		Slots:      target.Item.String(),
		Activation: act,
	})
	return target
}

// Get returns the chunk with the given id.
func (m *Memory) Get(id string) (*model.Chunk, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	return c, ok
}

// Chunks returns the stored chunks in store order.
func (m *Memory) Chunks() []*model.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Chunk, len(m.chunks))
	copy(out, m.chunks)
	return out
}

// Len returns the number of stored chunks.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

// Clear removes every chunk.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	m.byID = map[string]*model.Chunk{}
	m.unique = 1
}

func (m *Memory) findEqual(c *model.Chunk) *model.Chunk {
	for _, existing := range m.chunks {
		if existing.Equals(&c.Item) {
			return existing
		}
	}
	return nil
}

func (m *Memory) uniquify(id string) string {
	candidate := id
	for {
		if _, taken := m.byID[candidate]; !taken {
			return candidate
		}
		m.unique++
		candidate = fmt.Sprintf("%s~%d", id, m.unique)
	}
}

// addUse registers one use according to the decay policy.
func (m *Memory) addUse(c *model.Chunk, now float64) {
	switch m.cfg.Decay {
	case OptimizedDecay:
		c.IncrementUse()
	case AdvancedDecay:
		c.AddUse(now)
	}
}
