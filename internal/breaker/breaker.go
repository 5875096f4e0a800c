// Package breaker is the engine's one circuit breaker implementation,
// shared by the Redis client and the exchange REST client (spec §[AMBIENT]
// error handling: "applied uniformly to both the Redis client and the
// exchange REST client"). Lifted out of the teacher's
// internal/store/redis/circuitbreaker.go, which applied this only to
// Redis; generalized here to a standalone package so any boundary call can
// wrap itself in one.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed   State = 0 // normal operation — calls pass through
	StateOpen     State = 1 // tripped — calls rejected immediately
	StateHalfOpen State = 2 // probing — one call allowed through
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker is open and the reset timeout has
// not yet elapsed.
var ErrOpen = errors.New("breaker: circuit is open")

// Breaker implements a simple circuit breaker: after maxFailures
// consecutive failures it opens and rejects calls for resetTimeout; after
// the timeout it half-opens and allows a single probe through.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time
	probing      bool // a half-open probe call is in flight

	// OnStateChange, if set, is called on every state transition.
	OnStateChange func(from, to State)
}

// New builds a Breaker. maxFailures is the consecutive-failure threshold
// before opening; resetTimeout is how long to wait before a half-open probe.
func New(maxFailures int, resetTimeout time.Duration) *Breaker {
	return &Breaker{maxFailures: maxFailures, resetTimeout: resetTimeout, state: StateClosed}
}

// Execute runs fn through the breaker, returning ErrOpen without calling fn
// if the circuit is open and the reset timeout hasn't elapsed.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.transition(StateHalfOpen)
		} else {
			b.mu.Unlock()
			return ErrOpen
		}
	case StateHalfOpen:
		// allow the probe through; the probing flag below rejects every
		// other caller until it finishes.
	}
	probe := b.state == StateHalfOpen
	if probe {
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}
	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			b.transition(StateOpen)
		}
		return err
	}
	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.failures = 0
	return nil
}

// CurrentState returns the breaker's current state.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	if b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}
