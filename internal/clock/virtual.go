package clock

import (
	"container/heap"
	"context"
	"sync"
)

// Virtual is a deterministic discrete-event scheduler. Events run in order
// of their due time, ties in order of scheduling. Callbacks run one at a
// time and must not call Await on the same scheduler.
type Virtual struct {
	mu    sync.Mutex
	run   sync.Mutex
	now   float64
	seq   uint64
	queue eventQueue
	wake  chan struct{}
}

// NewVirtual returns a scheduler whose clock starts at start.
func NewVirtual(start float64) *Virtual {
	return &Virtual{now: start, wake: make(chan struct{})}
}

// Now returns the current simulated time.
func (v *Virtual) Now() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Schedule queues fn to run delay seconds from now.
func (v *Virtual) Schedule(delay float64, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	ev := &event{owner: v, at: v.now + delay, seq: v.seq, fn: fn}
	heap.Push(&v.queue, ev)
	close(v.wake)
	v.wake = make(chan struct{})
	return ev
}

// Pending returns the number of queued events.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.queue)
}

// Step runs the next due event, advancing the clock to its time. It reports
// false when the queue is empty.
func (v *Virtual) Step() bool {
	return v.stepUntil(nil)
}

// RunUntil runs every event due at or before t, then moves the clock to t.
// It returns the number of events run.
func (v *Virtual) RunUntil(t float64) int {
	n := 0
	for v.stepUntil(&t) {
		n++
	}
	v.mu.Lock()
	if t > v.now {
		v.now = t
	}
	v.mu.Unlock()
	return n
}

// Advance runs events for the next d simulated seconds.
func (v *Virtual) Advance(d float64) int {
	return v.RunUntil(v.Now() + d)
}

// Run drains the queue and returns the number of events run.
func (v *Virtual) Run() int {
	n := 0
	for v.Step() {
		n++
	}
	return n
}

// Await pumps events in time order until done is closed. When the queue is
// empty it waits for another goroutine to schedule an event or close done;
// with a context that can never be canceled that wait could not end, so it
// returns ErrDeadlock instead.
func (v *Virtual) Await(ctx context.Context, done <-chan struct{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-done:
			return nil
		default:
		}
		if v.Step() {
			continue
		}
		v.mu.Lock()
		empty := len(v.queue) == 0
		wake := v.wake
		v.mu.Unlock()
		if !empty {
			continue
		}
		if ctx.Done() == nil {
			select {
			case <-done:
				return nil
			default:
				return ErrDeadlock
			}
		}
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (v *Virtual) stepUntil(limit *float64) bool {
	v.run.Lock()
	defer v.run.Unlock()

	v.mu.Lock()
	if len(v.queue) == 0 || (limit != nil && v.queue[0].at > *limit) {
		v.mu.Unlock()
		return false
	}
	ev := heap.Pop(&v.queue).(*event)
	if ev.at > v.now {
		v.now = ev.at
	}
	ev.fired = true
	v.mu.Unlock()

	if ev.fn != nil {
		ev.fn()
	}
	return true
}

type event struct {
	owner    *Virtual
	at       float64
	seq      uint64
	fn       func()
	index    int
	fired    bool
	canceled bool
}

func (e *event) At() float64 { return e.at }

func (e *event) Fired() bool {
	e.owner.mu.Lock()
	defer e.owner.mu.Unlock()
	return e.fired
}

func (e *event) Canceled() bool {
	e.owner.mu.Lock()
	defer e.owner.mu.Unlock()
	return e.canceled
}

func (e *event) Cancel() bool {
	e.owner.mu.Lock()
	defer e.owner.mu.Unlock()
	if e.fired || e.canceled {
		return false
	}
	e.canceled = true
	heap.Remove(&e.owner.queue, e.index)
	return true
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(*event)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*q = old[:n-1]
	return ev
}
