package core

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff decides how long Create waits before the next attempt. It never
// decides whether to retry; the attempt budget is CreateRequest.MaxRetries.
type Backoff interface {
	// Delay returns the wait before retry number attempt (starting at 0)
	// after err.
	Delay(attempt int, err error) time.Duration
}

// NoBackoff retries immediately. It is the default.
type NoBackoff struct{}

func (NoBackoff) Delay(int, error) time.Duration { return 0 }

// BackoffConfig configures ExponentialBackoff.
type BackoffConfig struct {
	BaseDelay time.Duration // Delay before the first retry (default: 500ms)
	MaxDelay  time.Duration // Cap (default: 10s)
	Jitter    float64       // Jitter factor 0.0-1.0 (default: 0.2)
}

// ExponentialBackoff returns a Backoff doubling BaseDelay per attempt with
// jitter. Rate-limit and server errors wait at least BaseDelay*2; parse and
// validation failures wait the plain schedule.
func ExponentialBackoff(cfg BackoffConfig) Backoff {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = 0.2
	}
	return &exponentialBackoff{cfg: cfg}
}

type exponentialBackoff struct {
	cfg BackoffConfig
}

func (e *exponentialBackoff) Delay(attempt int, err error) time.Duration {
	if IsTransient(err) && attempt < 1 {
		attempt = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.BaseDelay
	b.MaxInterval = e.cfg.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = e.cfg.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	var d time.Duration
	for i := 0; i <= attempt; i++ {
		d = b.NextBackOff()
	}
	return min(d, e.cfg.MaxDelay)
}

// IsTransient reports rate limiting and upstream failures, the errors
// worth retrying unchanged.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer) || errors.Is(err, ErrNetwork) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status == 429 || (pe.Status >= 500 && pe.Status < 600)
	}
	return false
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
