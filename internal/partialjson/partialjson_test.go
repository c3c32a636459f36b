package partialjson

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestComplete(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
		ok     bool
	}{
		{name: "empty", prefix: "", ok: false},
		{name: "prose only", prefix: "Sure, here", ok: false},
		{name: "open object", prefix: "{", want: "{}", ok: true},
		{name: "partial key", prefix: `{"na`, want: "{}", ok: true},
		{name: "key without value", prefix: `{"name":`, want: "{}", ok: true},
		{name: "partial string", prefix: `{"name": "Ad`, want: `{"name": "Ad"}`, ok: true},
		{name: "complete member then partial key", prefix: `{"name": "Ada", "ag`, want: `{"name": "Ada"}`, ok: true},
		{name: "trailing comma", prefix: `{"name": "Ada",`, want: `{"name": "Ada"}`, ok: true},
		{name: "number", prefix: `{"age": 3`, want: `{"age": 3}`, ok: true},
		{name: "dangling minus", prefix: `{"age": -`, want: `{}`, ok: true},
		{name: "number mid fraction", prefix: `{"age": 3.`, want: `{"age": 3}`, ok: true},
		{name: "number mid exponent", prefix: `{"n": 1.5e-`, want: `{"n": 1.5}`, ok: true},
		{name: "partial literal", prefix: `{"ok": tr`, want: `{}`, ok: true},
		{name: "complete literal", prefix: `{"ok": true`, want: `{"ok": true}`, ok: true},
		{name: "nested", prefix: `{"a": {"b": [1, 2`, want: `{"a": {"b": [1, 2]}}`, ok: true},
		{name: "array of strings", prefix: `{"tags": ["x", "y`, want: `{"tags": ["x", "y"]}`, ok: true},
		{name: "pending escape", prefix: `{"q": "say \`, want: `{"q": "say "}`, ok: true},
		{name: "pending unicode escape", prefix: `{"q": "caf\u00`, want: `{"q": "caf"}`, ok: true},
		{name: "escaped quote", prefix: `{"q": "a\"b`, want: `{"q": "a\"b"}`, ok: true},
		{name: "markdown fence", prefix: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`, ok: true},
		{name: "text after root", prefix: `{"a": 1} trailing {"b": 2}`, want: `{"a": 1}`, ok: true},
		{name: "root array", prefix: `[{"a": 1}, {"a"`, want: `[{"a": 1}, {}]`, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Complete(tt.prefix)
			if ok != tt.ok {
				t.Fatalf("Complete(%q) ok = %v, want %v", tt.prefix, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Complete(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
			if ok && !json.Valid([]byte(got)) {
				t.Errorf("Complete(%q) = %q is not valid JSON", tt.prefix, got)
			}
		})
	}
}

func TestParserIncrementalMatchesComplete(t *testing.T) {
	doc := `{"name": "Ada Lovelace", "age": 36, "tags": ["math", "poetry"], "meta": {"born": 1815, "alive": false}}`

	var p Parser
	for i := 0; i < len(doc); i++ {
		p.Write(doc[i : i+1])
		got, ok := p.Snapshot()
		want, wantOK := Complete(doc[:i+1])
		if got != want || ok != wantOK {
			t.Fatalf("after %d bytes: Snapshot() = %q, %v; Complete() = %q, %v", i+1, got, ok, want, wantOK)
		}
		if ok && !json.Valid([]byte(got)) {
			t.Fatalf("after %d bytes: %q is not valid JSON", i+1, got)
		}
	}
	if !p.Done() {
		t.Error("Done() = false after the root closed")
	}
	got, _ := p.Snapshot()
	if got != doc {
		t.Errorf("final Snapshot() = %q, want %q", got, doc)
	}
}

func TestUnmarshal(t *testing.T) {
	var v struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	if Unmarshal("no json yet", &v) {
		t.Fatal("Unmarshal() = true for prose")
	}
	if !Unmarshal(`{"name": "Gr`, &v) {
		t.Fatal("Unmarshal() = false for a partial object")
	}
	if v.Name != "Gr" {
		t.Errorf("Name = %q, want Gr", v.Name)
	}
}

func TestParserWriteStopsAtRootClose(t *testing.T) {
	var p Parser
	in := `Sure [see below]: {"name": "Ada"}`
	n := p.Write(in)
	if want := strings.Index(in, "]") + 1; n != want {
		t.Fatalf("Write() = %d, want %d", n, want)
	}
	if !p.Done() {
		t.Fatal("Done() = false after the aside closed")
	}
	if doc, _ := p.Snapshot(); json.Valid([]byte(doc)) {
		t.Fatalf("aside snapshot %q decoded as JSON", doc)
	}

	p.Reset()
	if _, ok := p.Snapshot(); ok {
		t.Fatal("Snapshot() ok after Reset")
	}
	if m := p.Write(in[n:]); m != len(in)-n {
		t.Errorf("second Write() = %d, want the rest of the input", n)
	}
	if doc, _ := p.Snapshot(); doc != `{"name": "Ada"}` {
		t.Errorf("Snapshot() = %q", doc)
	}
}
