package middleware

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/petal-labs/instructor/core"
)

// RetryConfig configures WithRetry.
type RetryConfig struct {
	MaxRetries      uint64        // Extra calls after the first (default: 2)
	InitialInterval time.Duration // First wait (default: 500ms)
	MaxInterval     time.Duration // Cap per wait (default: 10s)

	// OnRetry, if set, is called before each wait.
	OnRetry func(err error, wait time.Duration)
}

// WithRetry resends calls that failed with a transient error (rate limit,
// 5xx, network) using exponential backoff. Other errors return at once.
// Streams are retried only while opening; a stream that fails midway is
// not replayed.
//
// These retries are invisible to core.Create and do not consume its
// MaxRetries budget.
func WithRetry(cfg RetryConfig) Middleware {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * time.Second
	}

	policy := func(ctx context.Context) backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.InitialInterval
		b.MaxInterval = cfg.MaxInterval
		b.MaxElapsedTime = 0
		return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
	}

	return func(next core.Transport) core.Transport {
		chat := func(call ChatFunc) ChatFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
				return backoff.RetryNotifyWithData(func() (*core.ChatResponse, error) {
					resp, err := call(ctx, req)
					return resp, permanentUnlessTransient(err)
				}, policy(ctx), cfg.OnRetry)
			}
		}
		stream := func(call StreamFunc) StreamFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
				return backoff.RetryNotifyWithData(func() (*core.ChatStream, error) {
					s, err := call(ctx, req)
					return s, permanentUnlessTransient(err)
				}, policy(ctx), cfg.OnRetry)
			}
		}
		return Wrap(next, chat, stream)
	}
}

func permanentUnlessTransient(err error) error {
	if err != nil && !core.IsTransient(err) {
		return backoff.Permanent(err)
	}
	return err
}
