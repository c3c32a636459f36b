package openai

import (
	"net/http"
	"testing"
	"time"
)

func TestOptions(t *testing.T) {
	custom := &http.Client{Timeout: 30 * time.Second}
	cfg := Config{}
	for _, opt := range []Option{
		WithBaseURL("https://custom.api.com/v1"),
		WithHTTPClient(custom),
		WithOrgID("org-12345"),
		WithProjectID("proj-67890"),
		WithHeader("X-First", "first"),
		WithHeader("X-Second", "second"),
		WithTimeout(45 * time.Second),
	} {
		opt(&cfg)
	}

	if cfg.BaseURL != "https://custom.api.com/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.HTTPClient != custom {
		t.Error("HTTPClient not set")
	}
	if cfg.OrgID != "org-12345" || cfg.ProjectID != "proj-67890" {
		t.Errorf("OrgID = %q, ProjectID = %q", cfg.OrgID, cfg.ProjectID)
	}
	if cfg.Headers.Get("X-First") != "first" || cfg.Headers.Get("X-Second") != "second" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
}

func TestBuildHeaders(t *testing.T) {
	p := New("sk-test", WithOrgID("org"), WithProjectID("proj"), WithHeader("X-Trace", "1"))
	h := p.buildHeaders()

	if h.Get("Authorization") != "Bearer sk-test" {
		t.Errorf("Authorization = %q", h.Get("Authorization"))
	}
	if h.Get("OpenAI-Organization") != "org" || h.Get("OpenAI-Project") != "proj" {
		t.Errorf("org/project headers = %v", h)
	}
	if h.Get("X-Trace") != "1" {
		t.Errorf("X-Trace = %q", h.Get("X-Trace"))
	}

	if h := New("").buildHeaders(); h.Get("Authorization") != "" {
		t.Errorf("Authorization = %q, want none without a key", h.Get("Authorization"))
	}
}
