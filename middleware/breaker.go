package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/petal-labs/instructor/core"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // calls pass
	CircuitOpen                         // calls rejected
	CircuitHalfOpen                     // probing
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	FailureThreshold int           // consecutive transient failures before opening (default: 5)
	SuccessThreshold int           // half-open successes before closing (default: 2)
	OpenDuration     time.Duration // time spent open before probing (default: 30s)
}

// ErrCircuitOpen is returned without calling the transport while the
// breaker is open. It is not transient, so Create counts it as a normal
// transport failure.
var ErrCircuitOpen = errors.New("circuit breaker open: too many transport failures")

// CircuitBreaker stops calling a transport after repeated transient
// failures. Only core.IsTransient errors count; a 400 or 401 says nothing
// about the upstream's health.
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// State returns the current state.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

func (b *CircuitBreaker) advance() {
	if b.state == CircuitOpen && b.now().Sub(b.lastFailure) >= b.cfg.OpenDuration {
		b.state = CircuitHalfOpen
		b.successes = 0
	}
}

func (b *CircuitBreaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	if b.state == CircuitOpen {
		return ErrCircuitOpen
	}
	return nil
}

func (b *CircuitBreaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if core.IsTransient(err) {
		b.failures++
		b.lastFailure = b.now()
		if b.state == CircuitHalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.state = CircuitOpen
		}
		return
	}

	switch b.state {
	case CircuitHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = CircuitClosed
			b.failures = 0
		}
	case CircuitClosed:
		b.failures = 0
	}
}

// Middleware returns the breaker as a transport middleware. Transports
// wrapped by the same breaker share its state.
func (b *CircuitBreaker) Middleware() Middleware {
	return func(next core.Transport) core.Transport {
		chat := func(call ChatFunc) ChatFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
				if err := b.allow(); err != nil {
					return nil, err
				}
				resp, err := call(ctx, req)
				b.record(err)
				return resp, err
			}
		}
		stream := func(call StreamFunc) StreamFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
				if err := b.allow(); err != nil {
					return nil, err
				}
				s, err := call(ctx, req)
				if err != nil {
					b.record(err)
					return nil, err
				}
				return observe(ctx, s, b.record), nil
			}
		}
		return Wrap(next, chat, stream)
	}
}

// WithCircuitBreaker wraps transports with a fresh breaker.
func WithCircuitBreaker(cfg BreakerConfig) Middleware {
	return NewCircuitBreaker(cfg).Middleware()
}
