package core

import (
	"context"
	"log/slog"
)

// Transport is the chat-completions client wrapped by Client.
// Transports SHOULD be safe for concurrent calls.
type Transport interface {
	// ID returns the transport identifier (e.g., "openai", "go-openai").
	ID() string

	// BaseURL returns the endpoint the transport talks to. It is used once,
	// at NewClient, to detect the provider.
	BaseURL() string

	// Chat sends a non-streaming chat request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamChat sends a streaming chat request.
	StreamChat(ctx context.Context, req *ChatRequest) (*ChatStream, error)
}

// Client wraps a Transport with structured extraction. Provider and Mode
// are fixed at construction. Client is safe for concurrent use.
//
// Client implements Transport itself, forwarding every operation to the
// wrapped transport, so it can be used wherever the transport was.
type Client struct {
	transport Transport
	provider  Provider
	mode      Mode
	matrix    Matrix
	logger    *slog.Logger
	debug     bool
	telemetry TelemetryHook
	backoff   Backoff
}

var _ Transport = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// DefaultMode is used when WithMode is not given.
const DefaultMode = ModeTools

// NewClient wraps t. The provider is detected from t.BaseURL() and the
// mode is checked against the compatibility matrix; an unsupported
// combination returns a *ConfigurationError.
func NewClient(t Transport, opts ...ClientOption) (*Client, error) {
	if t == nil {
		return nil, &ConfigurationError{Op: "new client", Err: ErrNoTransport}
	}
	c := &Client{
		transport: t,
		mode:      DefaultMode,
		matrix:    DefaultMatrix(),
		logger:    slog.Default(),
		telemetry: NoopTelemetryHook{},
		backoff:   NoBackoff{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.provider = DetectProvider(t.BaseURL())

	if !c.provider.Known() {
		c.logf(context.Background(), slog.LevelInfo, "unknown provider, mode compatibility is not checked",
			"base_url", t.BaseURL())
	} else if !c.matrix.IsModeSupported(c.provider, c.mode) {
		return nil, &ConfigurationError{Op: "new client", Provider: c.provider, Mode: c.mode, Err: ErrUnsupportedMode}
	}
	c.logf(context.Background(), slog.LevelDebug, "client ready", "transport", t.ID())
	return c, nil
}

// WithMode sets the extraction mode.
func WithMode(m Mode) ClientOption {
	return func(c *Client) {
		if m != "" {
			c.mode = m
		}
	}
}

// WithDebug enables debug-level diagnostics.
func WithDebug(on bool) ClientOption {
	return func(c *Client) {
		c.debug = on
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTelemetry sets the telemetry hook for the client.
func WithTelemetry(h TelemetryHook) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.telemetry = h
		}
	}
}

// WithBackoff sets the delay schedule between extraction attempts.
func WithBackoff(b Backoff) ClientOption {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithMatrix replaces the compatibility matrix.
func WithMatrix(m Matrix) ClientOption {
	return func(c *Client) {
		if m.Modes != nil {
			c.matrix = m
		}
	}
}

// Provider returns the provider detected at construction.
func (c *Client) Provider() Provider {
	return c.provider
}

// Mode returns the extraction mode.
func (c *Client) Mode() Mode {
	return c.mode
}

// Transport returns the wrapped transport.
func (c *Client) Transport() Transport {
	return c.transport
}

// ID forwards to the wrapped transport.
func (c *Client) ID() string {
	return c.transport.ID()
}

// BaseURL forwards to the wrapped transport.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL()
}

// Chat checks model compatibility and forwards req unchanged.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := c.checkModel(ctx, "chat", req.Model); err != nil {
		return nil, err
	}
	return c.transport.Chat(ctx, req)
}

// StreamChat checks model compatibility and forwards req unchanged.
func (c *Client) StreamChat(ctx context.Context, req *ChatRequest) (*ChatStream, error) {
	if err := c.checkModel(ctx, "stream chat", req.Model); err != nil {
		return nil, err
	}
	return c.transport.StreamChat(ctx, req)
}

// checkModel runs the per-request half of the compatibility check.
func (c *Client) checkModel(ctx context.Context, op string, model ModelID) error {
	if !c.provider.Known() {
		c.logf(ctx, slog.LevelDebug, "unknown provider, model compatibility is not checked", "model", model)
		return nil
	}
	if !c.matrix.IsModelSupported(c.provider, c.mode, model) {
		c.logf(ctx, slog.LevelError, "model not supported", "model", model)
		return &ConfigurationError{Op: op, Provider: c.provider, Mode: c.mode, Model: model, Err: ErrUnsupportedModel}
	}
	return nil
}

// prepare builds the transport request for spec and applies the
// provider transformer.
func (c *Client) prepare(base *ChatRequest, spec ResponseSpec) *ChatRequest {
	req := BuildRequest(base, spec, c.mode)
	return LookupTransformer(c.provider, c.mode)(req)
}

// logf writes a log line tagged with provider and mode. Debug lines are
// dropped unless the client was built WithDebug(true).
func (c *Client) logf(ctx context.Context, level slog.Level, msg string, args ...any) {
	if level == slog.LevelDebug && !c.debug {
		return
	}
	attrs := make([]any, 0, len(args)+4)
	attrs = append(attrs, "provider", c.provider, "mode", c.mode)
	attrs = append(attrs, args...)
	c.logger.Log(ctx, level, msg, attrs...)
}
