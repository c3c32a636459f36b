package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/petal-labs/instructor/core"
)

// WithRateLimit spaces calls to at most perSecond per second with the
// given burst. Callers wait for a slot or until their context ends.
func WithRateLimit(perSecond float64, burst int) Middleware {
	if burst < 1 {
		burst = 1
	}
	return WithLimiter(rate.NewLimiter(rate.Limit(perSecond), burst))
}

// WithLimiter is WithRateLimit with a caller-owned limiter, which lets
// several transports share one budget.
func WithLimiter(l *rate.Limiter) Middleware {
	return func(next core.Transport) core.Transport {
		chat := func(call ChatFunc) ChatFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
				if err := l.Wait(ctx); err != nil {
					return nil, fmt.Errorf("rate limit wait: %w", err)
				}
				return call(ctx, req)
			}
		}
		stream := func(call StreamFunc) StreamFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
				if err := l.Wait(ctx); err != nil {
					return nil, fmt.Errorf("rate limit wait: %w", err)
				}
				return call(ctx, req)
			}
		}
		return Wrap(next, chat, stream)
	}
}
