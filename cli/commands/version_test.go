package commands

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	h := newHarness(t, nil, nil, "", nil)
	if err := h.run("version"); err != nil {
		t.Fatal(err)
	}
	out := h.stdout.String()
	for _, want := range []string{"instruct " + Version, "commit:", runtime.Version(), runtime.GOOS + "/" + runtime.GOARCH} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVersionCommandJSON(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	h := newHarness(t, nil, nil, "", nil)
	if err := h.run("version", "--json"); err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(h.stdout.Bytes(), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v", err)
	}
	if got["version"] != "v1.2.3" || got["goVersion"] != runtime.Version() {
		t.Errorf("output = %v", got)
	}
}
