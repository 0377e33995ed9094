// Package ratelimit spaces out calls to the generation backend.
//
// A single Gate is shared by every session in the process. Each Acquire
// grants one call and guarantees that the start of any two granted calls is
// at least MinInterval apart, in grant order across all callers.
package ratelimit

import (
	"context"
	"time"
)

// DefaultMinInterval matches the upstream request ceiling.
const DefaultMinInterval = 2500 * time.Millisecond

// Clock is the time source used by a Gate.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

type Gate struct {
	minInterval time.Duration
	clock       Clock

	// slot holds the last grant time. Receiving takes exclusive ownership of
	// the gate, sending it back releases it.
	slot chan time.Time
}

type GateOption func(*Gate)

func WithMinInterval(interval time.Duration) GateOption {
	return func(g *Gate) {
		if interval >= 0 {
			g.minInterval = interval
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock Clock) GateOption {
	return func(g *Gate) {
		if clock != nil {
			g.clock = clock
		}
	}
}

func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		minInterval: DefaultMinInterval,
		clock:       SystemClock(),
		slot:        make(chan time.Time, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.slot <- time.Time{}
	return g
}

func (g *Gate) MinInterval() time.Duration {
	return g.minInterval
}

// Acquire blocks until the caller may start its call. It returns the context
// error if ctx ends first, in which case no call is granted and the previous
// grant time is kept.
func (g *Gate) Acquire(ctx context.Context) error {
	var last time.Time
	select {
	case last = <-g.slot:
	case <-ctx.Done():
		return ctx.Err()
	}

	if !last.IsZero() && g.minInterval > 0 {
		if wait := g.minInterval - g.clock.Now().Sub(last); wait > 0 {
			select {
			case <-g.clock.After(wait):
			case <-ctx.Done():
				g.slot <- last
				return ctx.Err()
			}
		}
	}

	g.slot <- g.clock.Now()
	return nil
}
