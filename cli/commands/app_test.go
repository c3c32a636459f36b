package commands

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/petal-labs/instructor/cli/config"
	"github.com/petal-labs/instructor/cli/keystore"
	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/providers"
)

// fakeTransport replays scripted responses.
type fakeTransport struct {
	baseURL   string
	responses []*core.ChatResponse
	chunks    []core.ChatChunk
	err       error

	mu       sync.Mutex
	requests []*core.ChatRequest
}

func (f *fakeTransport) ID() string { return "fake" }

func (f *fakeTransport) BaseURL() string {
	if f.baseURL == "" {
		return "https://api.openai.com/v1"
	}
	return f.baseURL
}

func (f *fakeTransport) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.requests) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeTransport) StreamChat(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	ch := make(chan core.ChatChunk)
	errCh := make(chan error, 1)
	finalCh := make(chan *core.ChatResponse, 1)
	go func() {
		defer close(finalCh)
		defer close(errCh)
		for _, c := range f.chunks {
			ch <- c
		}
		close(ch)
		finalCh <- &core.ChatResponse{}
	}()
	return &core.ChatStream{Ch: ch, Err: errCh, Final: finalCh}, nil
}

func (f *fakeTransport) calls() []*core.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*core.ChatRequest(nil), f.requests...)
}

// memKeystore is an in-memory keystore.Keystore.
type memKeystore map[string]string

func (m memKeystore) Set(name, value string) error { m[name] = value; return nil }

func (m memKeystore) Get(name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", &keystore.ErrKeyNotFound{Name: name}
	}
	return v, nil
}

func (m memKeystore) Delete(name string) error {
	if _, ok := m[name]; !ok {
		return &keystore.ErrKeyNotFound{Name: name}
	}
	delete(m, name)
	return nil
}

func (m memKeystore) List() ([]string, error) {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

type harness struct {
	app    *App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	keys   memKeystore

	// transport/key the factory was called with
	gotName string
	gotCfg  providers.Config
}

func newHarness(t *testing.T, cfg *config.Config, tr core.Transport, stdin string, env map[string]string) *harness {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{Transports: map[string]config.TransportConfig{}}
	}
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, keys: memKeystore{}}
	h.app = NewApp(
		WithIO(strings.NewReader(stdin), h.stdout, h.stderr),
		WithConfigLoader(func(string) (*config.Config, error) { return cfg, nil }),
		WithTransportFactory(func(name string, c providers.Config) (core.Transport, error) {
			h.gotName, h.gotCfg = name, c
			if tr == nil {
				return nil, errors.New("no transport")
			}
			return tr, nil
		}),
		WithKeystoreFactory(func() (keystore.Keystore, error) { return h.keys, nil }),
		WithEnv(func(k string) string { return env[k] }),
	)
	return h
}

func (h *harness) run(args ...string) error {
	h.app.SetArgs(args)
	return h.app.Execute()
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{" error ", "ERROR"},
		{"warn", "WARN"},
		{"", "WARN"},
		{"verbose", "WARN"},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestConfigDefaultsApplied(t *testing.T) {
	cfg := &config.Config{DefaultTransport: "together", DefaultModel: "m", LogLevel: "debug"}
	h := newHarness(t, cfg, nil, "", nil)
	if err := h.run("version"); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if h.app.transport != "together" || h.app.model != "m" || h.app.logLevel != "debug" {
		t.Errorf("app = transport %q model %q level %q", h.app.transport, h.app.model, h.app.logLevel)
	}

	h = newHarness(t, cfg, nil, "", nil)
	if err := h.run("--transport", "openai", "--model", "x", "version"); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if h.app.transport != "openai" || h.app.model != "x" {
		t.Errorf("flags should win over config: transport %q model %q", h.app.transport, h.app.model)
	}
}

func TestConfigLoadError(t *testing.T) {
	h := newHarness(t, nil, nil, "", nil)
	h.app = NewApp(
		WithIO(nil, h.stdout, h.stderr),
		WithConfigLoader(func(string) (*config.Config, error) { return nil, errors.New("bad yaml") }),
	)
	err := h.run("version")
	if exitCode(err) != ExitValidation {
		t.Errorf("exit code = %d, want %d (err %v)", exitCode(err), ExitValidation, err)
	}
	if !strings.Contains(h.stderr.String(), "bad yaml") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestAPIKeyResolution(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		env     map[string]string
		stored  map[string]string
		want    string
		wantErr bool
	}{
		{
			name: "registered env var",
			env:  map[string]string{"OPENAI_API_KEY": "sk-env"},
			want: "sk-env",
		},
		{
			name: "configured env var",
			cfg:  &config.Config{Transports: map[string]config.TransportConfig{"openai": {APIKeyEnv: "MY_KEY"}}},
			env:  map[string]string{"MY_KEY": "sk-custom", "OPENAI_API_KEY": "sk-env"},
			want: "sk-custom",
		},
		{
			name:   "keystore fallback",
			stored: map[string]string{"openai": "sk-stored"},
			want:   "sk-stored",
		},
		{
			name:    "missing",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.cfg, nil, "", tt.env)
			for k, v := range tt.stored {
				h.keys[k] = v
			}
			if err := h.run("version"); err != nil {
				t.Fatal(err)
			}
			got, err := h.app.apiKey("openai")
			if (err != nil) != tt.wantErr {
				t.Fatalf("apiKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("apiKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPartialRendererNotLive(t *testing.T) {
	var buf bytes.Buffer
	r := newPartialRenderer(&buf, false)
	if err := r.render(map[string]any{"a": 1}); err != nil {
		t.Fatal(err)
	}
	r.finish()
	if buf.Len() != 0 {
		t.Errorf("output = %q, want none", buf.String())
	}
}

func TestPartialRendererLive(t *testing.T) {
	var buf bytes.Buffer
	r := newPartialRenderer(&buf, true)
	r.width = 12
	if err := r.render(map[string]any{"name": "Jason Liu"}); err != nil {
		t.Fatal(err)
	}
	r.finish()

	out := buf.String()
	if !strings.HasPrefix(out, "\r\x1b[K...") {
		t.Errorf("output = %q, want truncated redraw", out)
	}
	if !strings.HasSuffix(out, `Liu"}`+"\r\x1b[K") {
		t.Errorf("output = %q, want tail kept and line cleared", out)
	}
}
