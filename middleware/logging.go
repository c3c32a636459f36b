package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/petal-labs/instructor/core"
)

// WithLogging logs every call at debug level with its duration and error.
// Message content is never logged.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next core.Transport) core.Transport {
		attrs := func(req *core.ChatRequest, stream bool) []any {
			return []any{"transport", next.ID(), "model", string(req.Model), "messages", len(req.Messages), "stream", stream}
		}

		chat := func(call ChatFunc) ChatFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
				logger.DebugContext(ctx, "transport call start", attrs(req, false)...)
				start := time.Now()
				resp, err := call(ctx, req)
				logEnd(ctx, logger, attrs(req, false), start, err)
				return resp, err
			}
		}

		stream := func(call StreamFunc) StreamFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
				logger.DebugContext(ctx, "transport call start", attrs(req, true)...)
				start := time.Now()
				s, err := call(ctx, req)
				if err != nil {
					logEnd(ctx, logger, attrs(req, true), start, err)
					return nil, err
				}
				return observe(ctx, s, func(err error) {
					logEnd(ctx, logger, attrs(req, true), start, err)
				}), nil
			}
		}

		return Wrap(next, chat, stream)
	}
}

func logEnd(ctx context.Context, logger *slog.Logger, attrs []any, start time.Time, err error) {
	attrs = append(attrs, "duration", time.Since(start))
	if err != nil {
		logger.DebugContext(ctx, "transport call failed", append(attrs, "error", err)...)
		return
	}
	logger.DebugContext(ctx, "transport call done", attrs...)
}
