// Package circuitbreaker guards the REST transport against hammering an
// unreachable host. Only transport-level failures trip the breaker;
// application-level error responses do not.
package circuitbreaker

import (
	"sync"
	"time"
)

// State of the breaker.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config controls the breaker thresholds.
type Config struct {
	// FailThreshold is the number of consecutive failures that open the breaker.
	FailThreshold int
	// SuccessThreshold is the number of consecutive half-open successes that
	// close it again.
	SuccessThreshold int
	// Timeout is how long an open breaker waits before probing.
	Timeout time.Duration
}

// Breaker is a classic closed / open / half-open circuit breaker.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	lastFailTime time.Time
	config       Config

	now func() time.Time
}

// New creates a Breaker in the closed state.
func New(config Config) *Breaker {
	return &Breaker{
		state:  StateClosed,
		config: config,
		now:    time.Now,
	}
}

// Allow reports whether a call may proceed. An open breaker transitions to
// half-open once its timeout has elapsed, admitting a single probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailTime) >= b.config.Timeout {
			b.state = StateHalfOpen
			b.successes = 0
			return true
		}
		return false
	}
	return false
}

// Record reports the outcome of a call that Allow admitted.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.config.FailThreshold {
			b.state = StateOpen
			b.lastFailTime = b.now()
		}
	case StateHalfOpen:
		if !success {
			b.state = StateOpen
			b.lastFailTime = b.now()
			b.failures = b.config.FailThreshold
			return
		}
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
		}
	case StateOpen:
		if !success {
			b.lastFailTime = b.now()
		}
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
