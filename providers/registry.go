package providers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/petal-labs/instructor/core"
)

// Config carries what a factory needs to build a transport. Empty fields
// select the factory's defaults.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Factory builds a transport.
type Factory func(cfg Config) core.Transport

// Registration describes a named factory.
type Registration struct {
	Name string
	// DefaultBaseURL is the endpoint used when Config.BaseURL is empty.
	DefaultBaseURL string
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string
	Factory   Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register adds a factory, replacing any previous one of the same name.
// It is typically called from a transport package's init function.
func Register(r Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[r.Name] = r
}

// Lookup returns the registration for name.
func Lookup(name string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	return r, ok
}

// Create builds the named transport.
func Create(name string, cfg Config) (core.Transport, error) {
	r, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown transport: %s (available: %v)", name, List())
	}
	return r.Factory(cfg), nil
}

// List returns the registered names in sorted order.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether name has a factory.
func IsRegistered(name string) bool {
	_, ok := Lookup(name)
	return ok
}
