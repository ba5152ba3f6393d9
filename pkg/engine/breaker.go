package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/calewin/fieldhand/pkg/core"
)

// BreakerState is the circuit breaker's current mode.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
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

// CircuitBreaker guards one scraping target across a whole batch. It opens
// after a threshold of consecutive item failures, short-circuits further
// attempts during the recovery timeout, then half-opens to probe with a
// single call.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	threshold       int
	recoveryTimeout time.Duration
	lastFailureTime time.Time

	// now is replaceable for tests.
	now func() time.Time
}

func NewCircuitBreaker(cfg core.BreakerConfig) *CircuitBreaker {
	cfg.Normalize()
	return &CircuitBreaker{
		state:           StateClosed,
		threshold:       cfg.FailureThreshold,
		recoveryTimeout: cfg.RecoveryTimeout,
		now:             time.Now,
	}
}

// Call executes f under the breaker's policy. In the open state, and before
// the recovery timeout has elapsed, f is never invoked and ErrCircuitOpen is
// returned.
func (cb *CircuitBreaker) Call(f func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.recoveryTimeout {
			cb.mu.Unlock()
			return fmt.Errorf("%w: retry after %s", core.ErrCircuitOpen, cb.recoveryTimeout)
		}
		cb.state = StateHalfOpen
	}
	probing := cb.state == StateHalfOpen
	cb.mu.Unlock()

	err := f()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		if probing {
			cb.state = StateOpen
			cb.lastFailureTime = cb.now()
			return err
		}
		cb.failureCount++
		if cb.failureCount >= cb.threshold {
			cb.state = StateOpen
			cb.lastFailureTime = cb.now()
		}
		return err
	}

	cb.failureCount = 0
	cb.state = StateClosed
	return nil
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}
