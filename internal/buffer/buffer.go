// Package buffer implements the single-slot timed resource through which a
// module exposes the latency of its actions.
//
// A buffer moves Free -> Busy on Acquire, Busy -> Full once a Set or Clear
// completes after its simulated duration, and Full -> Free on
// GetAndRelease. A caller that asks for the payload while the buffer is
// still Busy is suspended on the scheduler until the completion fires.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rcliao/think/internal/clock"
	"github.com/rcliao/think/internal/logger"
)

var (
	// ErrNotFree is returned by Acquire when the buffer is already owned.
	ErrNotFree = errors.New("buffer: acquire while not free")
	// ErrNotAcquired is returned when the buffer is used without Acquire.
	ErrNotAcquired = errors.New("buffer: not acquired")
	// ErrAlreadyFull is returned by Set or Clear once the payload is ready.
	ErrAlreadyFull = errors.New("buffer: payload already delivered")
)

// State is the buffer's lifecycle state.
type State int

const (
	Free State = iota
	Busy
	Full
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Busy:
		return "busy"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.log = l
		}
	}
}

// Buffer is a timed, cancelable, single-slot completion.
type Buffer struct {
	name  string
	sched clock.Scheduler
	log   *slog.Logger

	mu      sync.Mutex
	state   State
	value   any
	pending clock.Handle
	ready   chan struct{}
}

// New creates a free buffer driven by sched.
func New(name string, sched clock.Scheduler, opts ...Option) *Buffer {
	b := &Buffer{name: name, sched: sched, log: logger.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With("buffer", name)
	return b
}

// Name returns the buffer name.
func (b *Buffer) Name() string { return b.name }

// State returns the current state.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Acquire takes exclusive ownership of a free buffer.
func (b *Buffer) Acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Free {
		return fmt.Errorf("%s is %s: %w", b.name, b.state, ErrNotFree)
	}
	b.state = Busy
	b.value = nil
	b.ready = make(chan struct{})
	return nil
}

// Set delivers value after duration simulated seconds and then runs
// onComplete. A completion still pending from an earlier Set or Clear is
// canceled first, so its value is never delivered and its callback never
// runs.
func (b *Buffer) Set(value any, duration float64, description string, onComplete func()) error {
	return b.schedule(value, duration, description, onComplete)
}

// Clear completes the buffer with no payload after duration.
func (b *Buffer) Clear(duration float64, description string) error {
	return b.schedule(nil, duration, description, nil)
}

func (b *Buffer) schedule(value any, duration float64, description string, onComplete func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Free:
		return fmt.Errorf("%s: %w", b.name, ErrNotAcquired)
	case Full:
		return fmt.Errorf("%s: %w", b.name, ErrAlreadyFull)
	}
	if b.pending != nil && b.pending.Cancel() {
		b.log.Debug("canceled pending completion", "sim_time", b.sched.Now())
	}

	var h clock.Handle
	h = b.sched.Schedule(duration, func() {
		b.mu.Lock()
		if b.pending != h || b.state != Busy {
			b.mu.Unlock()
			return
		}
		b.pending = nil
		b.value = value
		b.state = Full
		close(b.ready)
		b.mu.Unlock()

		b.log.Debug(description, "sim_time", b.sched.Now())
		if onComplete != nil {
			onComplete()
		}
	})
	b.pending = h
	return nil
}

// GetAndRelease returns the payload and frees the buffer. While the buffer
// is Busy the caller is suspended until the completion fires. A Clear
// completion yields a nil payload.
func (b *Buffer) GetAndRelease(ctx context.Context) (any, error) {
	b.mu.Lock()
	if b.state == Free {
		b.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", b.name, ErrNotAcquired)
	}
	ready := b.ready
	b.mu.Unlock()

	if err := b.sched.Await(ctx, ready); err != nil {
		return nil, fmt.Errorf("await %s: %w", b.name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	value := b.value
	b.value = nil
	b.state = Free
	return value, nil
}
