package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petal-labs/instructor/internal/partialjson"
	"github.com/petal-labs/instructor/internal/tokens"
	"github.com/petal-labs/instructor/schema"
)

// Partial is one element of a PartialStream. Value holds every property
// that is complete so far. The last element has Done set and carries the
// usage accounting in Meta.
type Partial[T any] struct {
	Value T
	Done  bool
	Meta  Meta
}

// PartialStream delivers progressively more complete values.
//
// Ch is unbuffered: values are produced as the consumer receives them. Ch
// is closed when the stream ends. Err emits at most one error and is
// closed after Ch. Cancel ctx to abandon a stream early.
type PartialStream[T any] struct {
	Ch  <-chan Partial[T]
	Err <-chan error
}

// CreateStream extracts a value of type T from a streaming completion.
//
// Exactly one transport call is made; req.MaxRetries is ignored. Partial
// values are not validated. A transport failure ends the stream with a
// single error on Err.
func CreateStream[T any](ctx context.Context, c *Client, req CreateRequest[T]) (*PartialStream[T], error) {
	if req.ResponseModel == nil {
		return nil, &ConfigurationError{Op: "create stream", Err: ErrNoResponseModel}
	}
	if err := c.checkModel(ctx, "create stream", req.Model); err != nil {
		return nil, err
	}
	if req.MaxRetries > 0 {
		c.logf(ctx, slog.LevelWarn, "max retries not supported for streaming, ignoring",
			"max_retries", req.MaxRetries)
	}

	base := req.ChatRequest
	base.Stream = true
	built := c.prepare(&base, specOf(req.ResponseModel))

	callID := uuid.NewString()
	start := time.Now()
	c.telemetry.OnAttemptStart(AttemptStartEvent{
		CallID:   callID,
		Provider: c.provider,
		Mode:     c.mode,
		Model:    built.Model,
		Stream:   true,
		Start:    start,
	})
	c.logf(ctx, slog.LevelDebug, "calling transport", "call_id", callID, "model", built.Model, "stream", true)

	stream, err := c.transport.StreamChat(ctx, built)
	if err != nil {
		c.endStream(callID, built.Model, start, nil, err)
		c.logf(ctx, slog.LevelError, "stream setup failed", "call_id", callID, "error", err)
		return nil, err
	}

	out := make(chan Partial[T])
	errCh := make(chan error, 1)
	ps := &partialPump[T]{
		c:      c,
		rm:     req.ResponseModel,
		req:    built,
		callID: callID,
		start:  start,
		out:    out,
	}
	go func() {
		defer close(errCh)
		defer close(out)
		if err := ps.run(ctx, stream); err != nil {
			errCh <- err
		}
	}()
	return &PartialStream[T]{Ch: out, Err: errCh}, nil
}

func (c *Client) endStream(callID string, model ModelID, start time.Time, usage *TokenUsage, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeTransportError
	}
	c.telemetry.OnAttemptEnd(AttemptEndEvent{
		CallID:   callID,
		Provider: c.provider,
		Mode:     c.mode,
		Model:    model,
		Stream:   true,
		Start:    start,
		End:      time.Now(),
		Usage:    usage,
		Outcome:  outcome,
		Err:      err,
	})
}

type partialPump[T any] struct {
	c      *Client
	rm     *schema.ResponseModel[T]
	req    *ChatRequest
	callID string
	start  time.Time
	out    chan<- Partial[T]

	parser  partialjson.Parser
	raw     strings.Builder
	feeding bool // MD_JSON: the parser has seen the document start
	last    string
	value   T
}

func (p *partialPump[T]) run(ctx context.Context, s *ChatStream) (err error) {
	var usage *TokenUsage
	defer func() {
		p.c.endStream(p.callID, p.req.Model, p.start, usage, err)
		if err != nil {
			p.c.logf(ctx, slog.LevelError, "stream failed", "call_id", p.callID, "error", err)
		}
	}()

	args := p.c.mode.streamsArguments()
	for chunk := range s.Ch {
		delta := chunk.Delta
		if args {
			delta = chunk.ArgumentsDelta
		}
		if delta == "" {
			continue
		}
		p.raw.WriteString(delta)
		p.feed(delta)
		if !p.advance() {
			continue
		}
		if err := p.emit(ctx, Partial[T]{Value: p.value, Meta: Meta{Attempts: 1, CallID: p.callID}}); err != nil {
			return err
		}
	}

	var final *ChatResponse
	errCh, finalCh := s.Err, s.Final
	for errCh != nil || finalCh != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case serr, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if serr != nil {
				return serr
			}
		case resp, ok := <-finalCh:
			if !ok {
				finalCh = nil
				continue
			}
			final = resp
		}
	}

	if !p.feeding && p.c.mode == ModeMarkdownJSON {
		// No fence arrived; fall back to the same span Create would use.
		p.feeding = true
		p.write(MarkdownJSON(p.raw.String()))
		p.advance()
	}

	meta := Meta{Attempts: 1, CallID: p.callID}
	if final != nil && final.Usage != nil {
		u := *final.Usage
		meta.Usage = &u
	} else {
		meta.Usage = p.estimate()
		meta.UsageEstimated = true
	}
	usage = meta.Usage
	p.c.logf(ctx, slog.LevelDebug, "stream complete", "call_id", p.callID, "bytes", p.raw.Len())
	return p.emit(ctx, Partial[T]{Value: p.value, Done: true, Meta: meta})
}

// feed passes delta to the parser. In MD_JSON mode text is held back until
// the opening ```json fence arrives, unless the answer is a bare document.
func (p *partialPump[T]) feed(delta string) {
	if p.c.mode != ModeMarkdownJSON || p.feeding {
		p.write(delta)
		return
	}
	raw := p.raw.String()
	if i := strings.Index(raw, jsonFence); i >= 0 {
		p.feeding = true
		p.write(raw[i+len(jsonFence):])
		return
	}
	if t := strings.TrimLeft(raw, " \t\r\n"); t != "" && (t[0] == '{' || t[0] == '[') {
		p.feeding = true
		p.write(raw)
	}
}

// write feeds s to the parser. A root that closes without being valid JSON,
// such as a bracketed aside in prose, is dropped and scanning resumes
// after it.
func (p *partialPump[T]) write(s string) {
	for s != "" {
		n := p.parser.Write(s)
		s = s[n:]
		if !p.parser.Done() {
			return
		}
		if doc, _ := p.parser.Snapshot(); json.Valid([]byte(doc)) {
			return
		}
		p.parser.Reset()
	}
}

// advance decodes the completed prefix and reports whether it changed.
func (p *partialPump[T]) advance() bool {
	doc, ok := p.parser.Snapshot()
	if !ok || doc == p.last {
		return false
	}
	var instance any
	if err := json.Unmarshal([]byte(doc), &instance); err != nil {
		return false
	}
	p.last = doc
	p.value = p.rm.DecodePartial(instance)
	return true
}

func (p *partialPump[T]) emit(ctx context.Context, v Partial[T]) error {
	select {
	case p.out <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *partialPump[T]) estimate() *TokenUsage {
	msgs := make([]tokens.Message, len(p.req.Messages))
	for i, m := range p.req.Messages {
		msgs[i] = tokens.Message{Role: string(m.Role), Content: m.Content, Name: m.Name}
	}
	prompt := tokens.Prompt(msgs)
	completion := tokens.Count(p.raw.String())
	return &TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}
