// Package middleware decorates a core.Transport with cross-cutting
// behavior: logging, timeouts, rate limiting, transient-error retries, a
// circuit breaker and a response cache.
//
// Decorated transports keep the wrapped transport's ID and BaseURL, so
// provider detection in core.NewClient is unaffected:
//
//	tr := middleware.Chain(openai.New(key),
//		middleware.WithLogging(logger),
//		middleware.WithTimeout(30*time.Second),
//		middleware.WithRetry(middleware.RetryConfig{MaxRetries: 3}),
//	)
//	client, err := core.NewClient(tr)
package middleware

import (
	"context"

	"github.com/petal-labs/instructor/core"
)

// ChatFunc is the signature of core.Transport.Chat.
type ChatFunc func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error)

// StreamFunc is the signature of core.Transport.StreamChat.
type StreamFunc func(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error)

// Middleware wraps a transport.
type Middleware func(next core.Transport) core.Transport

// Chain applies middlewares to t. The first middleware is outermost.
func Chain(t core.Transport, middlewares ...Middleware) core.Transport {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			t = middlewares[i](t)
		}
	}
	return t
}

// Wrap builds a transport that delegates ID and BaseURL to next and
// routes calls through chat and stream. A nil func passes through.
func Wrap(next core.Transport, chat func(ChatFunc) ChatFunc, stream func(StreamFunc) StreamFunc) core.Transport {
	w := &wrapped{Transport: next, chat: next.Chat, stream: next.StreamChat}
	if chat != nil {
		w.chat = chat(next.Chat)
	}
	if stream != nil {
		w.stream = stream(next.StreamChat)
	}
	return w
}

type wrapped struct {
	core.Transport
	chat   ChatFunc
	stream StreamFunc
}

func (w *wrapped) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	return w.chat(ctx, req)
}

func (w *wrapped) StreamChat(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
	return w.stream(ctx, req)
}

// observe relays s unchanged and calls done once with the stream's error
// (nil on success) after every channel has been drained. If ctx ends
// while the consumer is not reading, the rest of s is discarded.
func observe(ctx context.Context, s *core.ChatStream, done func(error)) *core.ChatStream {
	ch := make(chan core.ChatChunk)
	errCh := make(chan error, 1)
	finalCh := make(chan *core.ChatResponse, 1)

	go func() {
		defer close(finalCh)
		defer close(errCh)

		var streamErr error
	relay:
		for c := range s.Ch {
			select {
			case ch <- c:
			case <-ctx.Done():
				streamErr = ctx.Err()
				for range s.Ch {
				}
				break relay
			}
		}
		close(ch)

		if err, ok := <-s.Err; ok && err != nil {
			streamErr = err
		}
		if streamErr != nil {
			errCh <- streamErr
		} else if final, ok := <-s.Final; ok {
			finalCh <- final
		}
		done(streamErr)
	}()

	return &core.ChatStream{Ch: ch, Err: errCh, Final: finalCh}
}
