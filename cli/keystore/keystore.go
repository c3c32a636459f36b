// Package keystore stores transport API keys in an encrypted file.
package keystore

import (
	"os"
	"path/filepath"
)

// EnvMasterKey, when set, is the secret the keystore encryption key is
// derived from. Otherwise a machine-specific value is used.
const EnvMasterKey = "INSTRUCTOR_MASTER_KEY"

// Keystore stores named secrets.
type Keystore interface {
	Set(name, value string) error
	// Get returns *ErrKeyNotFound for unknown names.
	Get(name string) (string, error)
	Delete(name string) error
	List() ([]string, error)
}

// ErrKeyNotFound is returned when a requested key does not exist.
type ErrKeyNotFound struct {
	Name string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Name
}

// DefaultKeystorePath returns the keystore location inside dir.
func DefaultKeystorePath(dir string) string {
	return filepath.Join(dir, "keys.enc")
}

// MasterKeySource supplies the secret the file key is derived from.
type MasterKeySource interface {
	MasterKey() ([]byte, error)
}

// EnvOrMachineSource reads EnvMasterKey and falls back to host and user
// names.
type EnvOrMachineSource struct{}

// MasterKey implements MasterKeySource.
func (EnvOrMachineSource) MasterKey() ([]byte, error) {
	if k := os.Getenv(EnvMasterKey); k != "" {
		return []byte(k), nil
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	return []byte(host + ":" + user + ":instructor-keystore"), nil
}

// StaticSource is a fixed master key.
type StaticSource []byte

// MasterKey implements MasterKeySource.
func (s StaticSource) MasterKey() ([]byte, error) { return []byte(s), nil }

// Open returns a file keystore at path keyed by EnvOrMachineSource.
func Open(path string) (Keystore, error) {
	return NewFileKeystore(path, EnvOrMachineSource{})
}
