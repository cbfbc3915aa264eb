// Package breaker implements a named circuit breaker with the classic
// closed/open/half-open state machine. It guards the outbound DNS client:
// when providers fail repeatedly the breaker opens and callers fail fast
// instead of piling up timeouts.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute when the circuit is open (or when the
// single half-open trial slot is already taken).
var ErrOpen = errors.New("breaker: circuit open")

// State is the breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config holds the breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5.
	FailureThreshold int
	// SuccessThreshold is the number of successful half-open trials that
	// closes the circuit again. Default: 2.
	SuccessThreshold int
	// ResetTimeout is how long the circuit stays open before allowing a
	// half-open trial. Default: 30s.
	ResetTimeout time.Duration
	// OnStateChange, when set, is invoked (outside the lock) after every
	// transition.
	OnStateChange func(name string, from, to State)
}

// Breaker is a single named circuit breaker. Safe for concurrent use.
type Breaker struct {
	name string
	cfg  Config

	mu                sync.Mutex
	state             State
	failures          int
	halfOpenSuccesses int
	openedAt          time.Time
	trialInFlight     bool

	now func() time.Time
}

// New creates a breaker with the given name, applying defaults for
// unset Config fields.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// NewWithClock creates a breaker with a custom time source (for testing).
func NewWithClock(name string, cfg Config, now func() time.Time) *Breaker {
	b := New(name, cfg)
	b.now = now
	return b
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, promoting open→half_open when the
// reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	return b.state
}

// Execute runs fn under the breaker. When the circuit is open it returns
// ErrOpen without calling fn. In half-open state exactly one caller at a
// time may run a trial; the rest get ErrOpen.
func (b *Breaker) Execute(fn func() error) error {
	trial, err := b.allow()
	if err != nil {
		return err
	}

	err = fn()
	b.record(err == nil, trial)
	return err
}

// allow decides whether a call may proceed. The returned bool marks the
// call as the half-open trial.
func (b *Breaker) allow() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refreshLocked()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateHalfOpen:
		if b.trialInFlight {
			return false, ErrOpen
		}
		b.trialInFlight = true
		return true, nil
	default: // StateOpen
		return false, ErrOpen
	}
}

// record updates counters after a call.
func (b *Breaker) record(success, trial bool) {
	b.mu.Lock()

	if trial {
		b.trialInFlight = false
	}

	var transition func()
	switch {
	case b.state == StateHalfOpen && success:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.cfg.SuccessThreshold {
			transition = b.transitionLocked(StateClosed)
			b.failures = 0
			b.halfOpenSuccesses = 0
		}
	case b.state == StateHalfOpen && !success:
		transition = b.transitionLocked(StateOpen)
		b.openedAt = b.now()
		b.halfOpenSuccesses = 0
	case success:
		b.failures = 0
	default:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold && b.state == StateClosed {
			transition = b.transitionLocked(StateOpen)
			b.openedAt = b.now()
		}
	}

	b.mu.Unlock()
	if transition != nil {
		transition()
	}
}

// refreshLocked promotes open→half_open after the reset timeout.
// Caller holds b.mu.
func (b *Breaker) refreshLocked() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.state = StateHalfOpen
		b.halfOpenSuccesses = 0
		b.trialInFlight = false
	}
}

// transitionLocked switches state and returns the notification callback
// to be run after the lock is released. Caller holds b.mu.
func (b *Breaker) transitionLocked(to State) func() {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange == nil || from == to {
		return nil
	}
	cb := b.cfg.OnStateChange
	name := b.name
	return func() { cb(name, from, to) }
}
