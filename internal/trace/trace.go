// Package trace records simulation events (stores, merges, recalls) so a run
// can be analyzed after it finishes. It records what memory did; it is never
// read back into a memory.
package trace

import "sync"

// Kind classifies a recorded event.
type Kind string

const (
	KindStore        Kind = "store"
	KindMerge        Kind = "merge"
	KindRecall       Kind = "recall"
	KindRecallFailed Kind = "recall_failed"
)

// Event is one observable memory action at a simulated time.
type Event struct {
	ID         string  `json:"id,omitempty"`
	RunID      string  `json:"run_id,omitempty"`
	Seq        int     `json:"seq"`
	Kind       Kind    `json:"kind"`
	SimTime    float64 `json:"sim_time"`
	ChunkID    string  `json:"chunk_id,omitempty"`
	Slots      string  `json:"slots,omitempty"`
	Query      string  `json:"query,omitempty"`
	Activation float64 `json:"activation"`
	Latency    float64 `json:"latency,omitempty"`
}

// Recorder receives events. Record must not block on I/O.
type Recorder interface {
	Record(ev Event)
}

// Nop discards events.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Event) {}

// Collector keeps events in memory.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Record implements Recorder.
func (c *Collector) Record(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev.Seq = len(c.events) + 1
	c.events = append(c.events, ev)
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
