package memory

import (
	"context"
	"fmt"

	"github.com/rcliao/think/internal/model"
	"github.com/rcliao/think/internal/query"
	"github.com/rcliao/think/internal/trace"
)

// RecallOption modifies a single recall.
type RecallOption func(*recallOptions)

type recallOptions struct {
	distances query.Distances
}

// WithRecallDistances supplies distance functions for one recall. They take
// precedence over registered functions for the same slot and are forgotten
// once the result is computed.
func WithRecallDistances(d query.Distances) RecallOption {
	return func(o *recallOptions) {
		if o.distances == nil {
			o.distances = query.Distances{}
		}
		for slot, fn := range d {
			o.distances[slot] = fn
		}
	}
}

// StartRecall acquires the buffer and starts retrieving the chunk that best
// answers q. The result is computed now and delivered once its latency has
// elapsed. A nil query matches every chunk.
func (m *Memory) StartRecall(q *query.Query, opts ...RecallOption) error {
	if q == nil {
		q = query.New()
	}
	var ro recallOptions
	for _, opt := range opts {
		opt(&ro)
	}
	if err := m.buffer.Acquire(); err != nil {
		return fmt.Errorf("start recall: %w", err)
	}
	now := m.sched.Now()
	m.log.Debug("recalling", "query", q.String(), "sim_time", now)
	return m.deliver(m.retrieve(q, now, ro.distances), q.String(), now)
}

// StartRecallByID acquires the buffer and starts retrieving the chunk with
// the given id. The chunk is recalled when its transient activation reaches
// the retrieval threshold.
func (m *Memory) StartRecallByID(id string) error {
	c, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("recall %q: %w", id, ErrUnknownChunk)
	}
	if err := m.buffer.Acquire(); err != nil {
		return fmt.Errorf("start recall: %w", err)
	}
	now := m.sched.Now()
	m.log.Debug("recalling", "chunk", id, "sim_time", now)

	m.mu.Lock()
	act := m.computeTransient(c, now)
	m.mu.Unlock()

	var result *model.Chunk
	if act >= m.cfg.RetrievalThreshold {
		result = c
	}
	return m.deliver(result, "<"+id+">", now)
}

// deliver schedules the outcome of a retrieval on the buffer.
func (m *Memory) deliver(result *model.Chunk, cue string, now float64) error {
	if result == nil {
		latency := m.failureLatency()
		m.rec.Record(trace.Event{
			Kind:    trace.KindRecallFailed,
			SimTime: now,
			Query:   cue,
			Latency: latency,
		})
		return m.buffer.Clear(latency, "recall failed")
	}

	target := result
	if result.BlendedFrom != nil {
		target = result.BlendedFrom
	}
	latency := m.latencyFor(result.TransientActivation)
	m.rec.Record(trace.Event{
		Kind:       trace.KindRecall,
		SimTime:    now,
		ChunkID:    target.ID,
		Slots:      result.Item.String(),
		Query:      cue,
		Activation: result.TransientActivation,
		Latency:    latency,
	})
	return m.buffer.Set(result, latency, "recalled "+result.String(), func() {
		t := m.sched.Now()
		m.mu.Lock()
		defer m.mu.Unlock()
		m.addUse(target, t)
	})
}

// GetRecalled waits for the pending recall to complete and releases the
// buffer. A nil chunk with a nil error is a retrieval miss.
func (m *Memory) GetRecalled(ctx context.Context) (*model.Chunk, error) {
	v, err := m.buffer.GetAndRelease(ctx)
	if err != nil {
		return nil, err
	}
	c, _ := v.(*model.Chunk)
	return c, nil
}

// Recall is StartRecall followed by GetRecalled.
func (m *Memory) Recall(ctx context.Context, q *query.Query, opts ...RecallOption) (*model.Chunk, error) {
	if err := m.StartRecall(q, opts...); err != nil {
		return nil, err
	}
	return m.GetRecalled(ctx)
}

// RecallSlots is Recall with an equality query built from a slot map.
func (m *Memory) RecallSlots(ctx context.Context, s model.Slots, opts ...RecallOption) (*model.Chunk, error) {
	return m.Recall(ctx, query.FromSlots(s), opts...)
}

// RecallByID is StartRecallByID followed by GetRecalled.
func (m *Memory) RecallByID(ctx context.Context, id string) (*model.Chunk, error) {
	if err := m.StartRecallByID(id); err != nil {
		return nil, err
	}
	return m.GetRecalled(ctx)
}

// Rehearse recalls c by id, reinforcing it when the recall succeeds.
func (m *Memory) Rehearse(ctx context.Context, c *model.Chunk) (*model.Chunk, error) {
	if c == nil {
		return nil, fmt.Errorf("rehearse: %w", ErrUnknownChunk)
	}
	return m.RecallByID(ctx, c.ID)
}
