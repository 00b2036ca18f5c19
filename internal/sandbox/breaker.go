package sandbox

import (
	"errors"
	"sync"
	"time"
)

// ErrEngineUnavailable is returned while the breaker is open after repeated
// engine failures.
var ErrEngineUnavailable = errors.New("diagram engine unavailable")

// BreakerState is the breaker position.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// String returns the string representation of the state
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half-open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// breaker stops calling into a library that keeps hanging. Only engine
// faults count: a timeout, an unsettled promise or an exhausted pool. A
// diagram the library rejects is the document's problem, not the engine's.
type breaker struct {
	threshold int
	cooldown  time.Duration
	onChange  func(from, to BreakerState)

	mu       sync.Mutex
	state    BreakerState
	failures int
	probing  bool
	reopen   time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &breaker{threshold: threshold, cooldown: cooldown}
}

// allow reports whether a call may proceed. In half-open state a single
// probe is let through.
func (b *breaker) allow(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && !now.Before(b.reopen) {
		b.setState(BreakerHalfOpen)
	}
	switch b.state {
	case BreakerOpen:
		return ErrEngineUnavailable
	case BreakerHalfOpen:
		if b.probing {
			return ErrEngineUnavailable
		}
		b.probing = true
	}
	return nil
}

// record feeds a call's outcome back into the breaker.
func (b *breaker) record(now time.Time, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !engineFault(err) {
		b.failures = 0
		if b.state == BreakerHalfOpen {
			b.setState(BreakerClosed)
		}
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.reopen = now.Add(b.cooldown)
		b.setState(BreakerOpen)
	}
}

func (b *breaker) current() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *breaker) setState(state BreakerState) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.failures = 0
	b.probing = false
	if b.onChange != nil {
		b.onChange(prev, state)
	}
}

func engineFault(err error) bool {
	return errors.Is(err, ErrExecutionTimeout) ||
		errors.Is(err, ErrPending) ||
		errors.Is(err, ErrTimeout)
}
