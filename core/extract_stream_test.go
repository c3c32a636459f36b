package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// split cuts s into pieces of n bytes.
func split(s string, n int) []ChatChunk {
	var out []ChatChunk
	for len(s) > 0 {
		k := min(n, len(s))
		out = append(out, ChatChunk{ArgumentsDelta: s[:k]})
		s = s[k:]
	}
	return out
}

func textChunks(s string, n int) []ChatChunk {
	chunks := split(s, n)
	for i := range chunks {
		chunks[i] = ChatChunk{Delta: chunks[i].ArgumentsDelta}
	}
	return chunks
}

func collect[T any](t *testing.T, ps *PartialStream[T]) ([]Partial[T], error) {
	t.Helper()
	var got []Partial[T]
	for p := range ps.Ch {
		got = append(got, p)
	}
	return got, <-ps.Err
}

func TestCreateStreamTools(t *testing.T) {
	hook := &mockTelemetryHook{}
	final := &ChatResponse{Usage: &TokenUsage{PromptTokens: 20, CompletionTokens: 9, TotalTokens: 29}}
	tr := &mockTransport{streamFunc: func(context.Context, *ChatRequest) (*ChatStream, error) {
		return chunkStream(final, nil, split(validUser, 3)...), nil
	}}
	c := newTestClient(t, tr, WithTelemetry(hook))

	ps, err := CreateStream(context.Background(), c, userRequest(0))
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	partials, err := collect(t, ps)
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}
	if len(partials) < 3 {
		t.Fatalf("got %d partials, want several", len(partials))
	}

	for i := 1; i < len(partials); i++ {
		prev, cur := partials[i-1].Value, partials[i].Value
		if !strings.HasPrefix(cur.Name, prev.Name) {
			t.Errorf("partial %d: Name %q does not extend %q", i, cur.Name, prev.Name)
		}
		if prev.Age != 0 && cur.Age == 0 {
			t.Errorf("partial %d: Age lost", i)
		}
	}
	for i, p := range partials[:len(partials)-1] {
		if p.Done {
			t.Errorf("partial %d marked Done before the end", i)
		}
	}

	last := partials[len(partials)-1]
	if !last.Done {
		t.Fatal("last partial not Done")
	}
	if last.Value != (user{Name: "Jason", Age: 30}) {
		t.Errorf("final Value = %+v", last.Value)
	}
	if last.Meta.Usage == nil || last.Meta.Usage.TotalTokens != 29 || last.Meta.UsageEstimated {
		t.Errorf("final Meta = %+v, want reported usage", last.Meta)
	}

	calls := tr.calls()
	if tr.streams != 1 || len(calls) != 1 {
		t.Fatalf("stream calls = %d, want 1", tr.streams)
	}
	if !calls[0].Stream || calls[0].ToolChoice != "User" {
		t.Errorf("request = %+v, want stream with forced tool", calls[0])
	}

	if len(hook.starts) != 1 || len(hook.ends) != 1 {
		t.Fatalf("telemetry = %d starts, %d ends, want 1 each", len(hook.starts), len(hook.ends))
	}
	if e := hook.ends[0]; !e.Stream || e.Outcome != OutcomeSuccess || e.Usage == nil {
		t.Errorf("end event = %+v", e)
	}
}

func TestCreateStreamEstimatesUsage(t *testing.T) {
	tr := &mockTransport{streamFunc: func(context.Context, *ChatRequest) (*ChatStream, error) {
		return chunkStream(&ChatResponse{}, nil, textChunks(validUser, 5)...), nil
	}}
	c := newTestClient(t, tr, WithMode(ModeJSON))

	ps, err := CreateStream(context.Background(), c, userRequest(0))
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	partials, err := collect(t, ps)
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}
	last := partials[len(partials)-1]
	if last.Value.Name != "Jason" || last.Value.Age != 30 {
		t.Errorf("final Value = %+v", last.Value)
	}
	u := last.Meta.Usage
	if u == nil || !last.Meta.UsageEstimated {
		t.Fatalf("final Meta = %+v, want estimated usage", last.Meta)
	}
	if u.PromptTokens <= 0 || u.CompletionTokens <= 0 || u.TotalTokens != u.PromptTokens+u.CompletionTokens {
		t.Errorf("usage = %+v", u)
	}
}

func TestCreateStreamIgnoresMaxRetries(t *testing.T) {
	tr := &mockTransport{streamFunc: func(context.Context, *ChatRequest) (*ChatStream, error) {
		return chunkStream(nil, ErrServer, split(`{"name":"Ja`, 4)...), nil
	}}
	c := newTestClient(t, tr)

	ps, err := CreateStream(context.Background(), c, userRequest(5))
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	partials, err := collect(t, ps)
	if !errors.Is(err, ErrServer) {
		t.Fatalf("stream error = %v, want ErrServer", err)
	}
	for _, p := range partials {
		if p.Done {
			t.Error("failed stream produced a Done partial")
		}
	}
	if tr.streams != 1 {
		t.Errorf("stream calls = %d, want 1", tr.streams)
	}
}

func TestCreateStreamSetupError(t *testing.T) {
	hook := &mockTelemetryHook{}
	tr := &mockTransport{streamFunc: func(context.Context, *ChatRequest) (*ChatStream, error) {
		return nil, ErrUnauthorized
	}}
	c := newTestClient(t, tr, WithTelemetry(hook))

	ps, err := CreateStream(context.Background(), c, userRequest(2))
	if !errors.Is(err, ErrUnauthorized) || ps != nil {
		t.Fatalf("CreateStream() = %v, %v, want ErrUnauthorized", ps, err)
	}
	if tr.streams != 1 {
		t.Errorf("stream calls = %d, want 1", tr.streams)
	}
	if len(hook.ends) != 1 || hook.ends[0].Outcome != OutcomeTransportError {
		t.Errorf("end events = %+v", hook.ends)
	}
}

func TestCreateStreamUnsupportedModel(t *testing.T) {
	tr := &mockTransport{baseURL: endpointFor(ProviderAnyscale)}
	c := newTestClient(t, tr)

	req := userRequest(0)
	req.Model = "gpt-4o"
	if _, err := CreateStream(context.Background(), c, req); !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("CreateStream() error = %v, want ErrUnsupportedModel", err)
	}
	if n := len(tr.calls()); n != 0 {
		t.Errorf("transport calls = %d, want 0", n)
	}
}

func TestCreateStreamNilResponseModel(t *testing.T) {
	_, err := CreateStream(context.Background(), newTestClient(t, &mockTransport{}), CreateRequest[user]{})
	if !errors.Is(err, ErrNoResponseModel) {
		t.Errorf("CreateStream() error = %v, want ErrNoResponseModel", err)
	}
}

func TestCreateStreamCancel(t *testing.T) {
	tr := &mockTransport{streamFunc: func(ctx context.Context, _ *ChatRequest) (*ChatStream, error) {
		ch := make(chan ChatChunk)
		errCh := make(chan error, 1)
		finalCh := make(chan *ChatResponse, 1)
		go func() {
			defer close(errCh)
			defer close(finalCh)
			defer close(ch)
			select {
			case ch <- ChatChunk{ArgumentsDelta: `{"name":"Ja`}:
			case <-ctx.Done():
			}
			<-ctx.Done()
			errCh <- ctx.Err()
		}()
		return &ChatStream{Ch: ch, Err: errCh, Final: finalCh}, nil
	}}
	c := newTestClient(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ps, err := CreateStream(ctx, c, userRequest(0))
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}

	first := <-ps.Ch
	if first.Value.Name != "Ja" {
		t.Errorf("first partial = %+v", first.Value)
	}
	cancel()

	for range ps.Ch {
	}
	if err := <-ps.Err; !errors.Is(err, context.Canceled) {
		t.Errorf("stream error = %v, want context.Canceled", err)
	}
}

func TestCreateStreamSkipsProseBrackets(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		text string
	}{
		{"markdown fence after aside", ModeMarkdownJSON, "Sure [see below]:\n```json\n" + validUser + "\n```"},
		{"markdown without fence", ModeMarkdownJSON, "Here it is (see [1]): " + validUser},
		{"json after aside", ModeJSON, "[note] " + validUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &mockTransport{streamFunc: func(context.Context, *ChatRequest) (*ChatStream, error) {
				return chunkStream(&ChatResponse{}, nil, textChunks(tt.text, 4)...), nil
			}}
			c := newTestClient(t, tr, WithMode(tt.mode))

			ps, err := CreateStream(context.Background(), c, userRequest(0))
			if err != nil {
				t.Fatalf("CreateStream() error = %v", err)
			}
			partials, err := collect(t, ps)
			if err != nil {
				t.Fatalf("stream error = %v", err)
			}
			last := partials[len(partials)-1]
			if !last.Done || last.Value != (user{Name: "Jason", Age: 30}) {
				t.Errorf("final partial = %+v", last)
			}
		})
	}
}
