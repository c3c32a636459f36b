package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/petal-labs/instructor/core"
)

// WithTimeout bounds each call to d. For streams the deadline covers the
// whole stream, not just the first byte. A non-positive d disables it.
func WithTimeout(d time.Duration) Middleware {
	return func(next core.Transport) core.Transport {
		if d <= 0 {
			return next
		}

		chat := func(call ChatFunc) ChatFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
				tctx, cancel := context.WithTimeout(ctx, d)
				defer cancel()
				resp, err := call(tctx, req)
				if err != nil && ctx.Err() == nil && tctx.Err() != nil {
					return nil, fmt.Errorf("transport timeout after %v: %w", d, err)
				}
				return resp, err
			}
		}

		stream := func(call StreamFunc) StreamFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
				tctx, cancel := context.WithTimeout(ctx, d)
				s, err := call(tctx, req)
				if err != nil {
					cancel()
					return nil, err
				}
				return observe(tctx, s, func(error) { cancel() }), nil
			}
		}

		return Wrap(next, chat, stream)
	}
}
