package resilience

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	// BreakerClosed means calls pass through normally.
	BreakerClosed BreakerState = iota

	// BreakerOpen means calls are rejected without reaching the service.
	BreakerOpen

	// BreakerHalfOpen means one trial call is allowed through.
	BreakerHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when the circuit is open and the call was
// rejected without touching the underlying service.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int

	// BackoffUnit scales the exponential backoff. The open duration is
	// min(2^(failures-threshold), MaxBackoff/BackoffUnit) units.
	BackoffUnit time.Duration

	// MaxBackoff caps how long the circuit stays open.
	MaxBackoff time.Duration

	// OnStateChange is called after every state transition.
	OnStateChange func(from, to BreakerState)
}

// DefaultBreakerConfig returns the standard engine breaker policy.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		BackoffUnit:      time.Second,
		MaxBackoff:       60 * time.Second,
	}
}

// Breaker shelves a misbehaving service for a backoff period instead of
// hammering it. Failures while closed accumulate; at the threshold the
// circuit opens and rejects calls until the backoff elapses, then admits
// exactly one trial call. A successful trial closes the circuit and
// resets the failure count; a failed trial reopens it with a longer
// backoff.
//
// Each engine adapter owns one Breaker; it is safe for concurrent use.
type Breaker struct {
	mu     sync.Mutex
	config BreakerConfig

	state    BreakerState
	failures int
	openedAt time.Time
	trialing bool
}

// NewBreaker creates a closed circuit breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	return &Breaker{config: cfg}
}

// Execute runs fn through the breaker and returns its result. When the
// circuit is open the call is rejected with ErrBreakerOpen. A call that
// fails counts as exactly one failure, however many retries it wrapped.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if !b.allow() {
		var zero T
		return zero, ErrBreakerOpen
	}

	result, err := fn()
	b.record(err)
	return result, err
}

// allow decides whether a call may proceed, transitioning Open to
// Half-Open once the backoff has elapsed.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true

	case BreakerOpen:
		if time.Since(b.openedAt) < b.backoff() {
			return false
		}
		b.transition(BreakerHalfOpen)
		b.trialing = true
		return true

	case BreakerHalfOpen:
		// Only one trial call at a time.
		if b.trialing {
			return false
		}
		b.trialing = true
		return true

	default:
		return false
	}
}

// backoff returns the current open duration (must hold lock).
func (b *Breaker) backoff() time.Duration {
	over := b.failures - b.config.FailureThreshold
	if over < 0 {
		over = 0
	}
	// Guard the shift; 2^30 units already exceeds any sane MaxBackoff.
	if over > 30 {
		over = 30
	}
	d := b.config.BackoffUnit << over
	if d > b.config.MaxBackoff {
		d = b.config.MaxBackoff
	}
	return d
}

// record accounts the outcome of a permitted call.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		switch b.state {
		case BreakerClosed:
			if b.failures >= b.config.FailureThreshold {
				b.openedAt = time.Now()
				b.transition(BreakerOpen)
			}
		case BreakerHalfOpen:
			b.trialing = false
			b.openedAt = time.Now()
			b.transition(BreakerOpen)
		}
		return
	}

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.trialing = false
		b.failures = 0
		b.transition(BreakerClosed)
	}
}

// transition switches state and fires the change callback (must hold lock).
func (b *Breaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(from, to)
	}
}

// State returns the current state, accounting for an elapsed backoff.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.backoff() {
		return BreakerHalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset returns the breaker to closed with no recorded failures.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.trialing = false
	if b.state != BreakerClosed {
		b.transition(BreakerClosed)
	}
}
