// Package clock provides the simulated time source shared by memory and its
// buffers. Time is a float64 number of simulated seconds and never moves
// backwards; nothing in this package reads the wall clock.
package clock

import (
	"context"
	"errors"
)

// ErrDeadlock is returned by Await when the awaited completion can never
// happen: no event is pending and nothing else can wake the caller.
var ErrDeadlock = errors.New("clock: await with no pending events")

// Clock reports the current simulated time.
type Clock interface {
	Now() float64
}

// Handle is a scheduled callback. Cancel prevents it from running and is a
// no-op once the callback has fired or was already canceled.
type Handle interface {
	Cancel() bool
	At() float64
	Fired() bool
	Canceled() bool
}

// Scheduler runs callbacks at simulated times and lets a logical thread
// suspend until a completion signal.
type Scheduler interface {
	Clock

	// Schedule runs fn once delay simulated seconds have elapsed. A negative
	// delay is treated as zero.
	Schedule(delay float64, fn func()) Handle

	// Await suspends the caller until done is closed, letting simulated time
	// advance while it waits.
	Await(ctx context.Context, done <-chan struct{}) error
}
