// Package resilience protects calls to remote collaborators with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without running it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker's position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker opens after MaxFailures consecutive failures and rejects calls until
// Timeout has elapsed. It then lets a single probe through: success closes the
// circuit, failure reopens it.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	probing     bool
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	isFailure   func(error) bool
	now         func() time.Time // for testing
}

// Option customizes a Breaker.
type Option func(*Breaker)

// WithFailurePredicate sets which errors count against the breaker.
// Errors for which fn returns false are passed through and reset the
// failure streak like a success.
func WithFailurePredicate(fn func(error) bool) Option {
	return func(b *Breaker) { b.isFailure = fn }
}

// NewBreaker creates a closed breaker. By default every non-nil error except
// context cancellation counts as a failure.
func NewBreaker(maxFailures int, timeout time.Duration, opts ...Option) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	b := &Breaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		isFailure:   defaultIsFailure,
		now:         time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func defaultIsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// Execute runs fn unless the circuit is open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	probe, ok := b.allow()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}
	if err != nil && b.isFailure(err) {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return err
}

// State reports the current position, moving open to half-open once the
// timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.timeout {
		return StateHalfOpen
	}
	return b.state
}

// allow reports whether a call may proceed and whether it is the half-open probe.
func (b *Breaker) allow() (probe, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.timeout {
			return false, false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true, true
	case StateHalfOpen:
		if b.probing {
			return false, false
		}
		b.probing = true
		return true, true
	}
	return false, false
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	b.failures = 0
	b.state = StateClosed
}
