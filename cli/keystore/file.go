package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/argon2"
)

// File layout: magic (4) | version (1) | salt (16) | nonce (12) | sealed JSON.
// The header is authenticated as additional data.
const (
	magic         = "INSK"
	formatVersion = byte(0x01)
	saltLength    = 16
	nonceLength   = 12
	headerLength  = len(magic) + 1 + saltLength + nonceLength
)

// Argon2id parameters.
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// ErrCorrupt is returned for files that are not keystores or cannot be
// decrypted with the current master key.
var ErrCorrupt = errors.New("keystore: unreadable or wrong master key")

// FileKeystore is a Keystore backed by a single AES-256-GCM sealed file.
type FileKeystore struct {
	path      string
	masterKey []byte
	mu        sync.RWMutex
}

// NewFileKeystore opens (lazily) the keystore at path.
func NewFileKeystore(path string, source MasterKeySource) (*FileKeystore, error) {
	mk, err := source.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("keystore master key: %w", err)
	}
	if len(mk) == 0 {
		return nil, errors.New("keystore master key is empty")
	}
	return &FileKeystore{path: path, masterKey: mk}, nil
}

// Set stores value under name.
func (f *FileKeystore) Set(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	data[name] = value
	return f.save(data)
}

// Get returns the value stored under name.
func (f *FileKeystore) Get(name string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := data[name]
	if !ok {
		return "", &ErrKeyNotFound{Name: name}
	}
	return v, nil
}

// Delete removes name.
func (f *FileKeystore) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := data[name]; !ok {
		return &ErrKeyNotFound{Name: name}
	}
	delete(data, name)
	return f.save(data)
}

// List returns the stored names, sorted.
func (f *FileKeystore) List() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FileKeystore) load() (map[string]string, error) {
	data := make(map[string]string)

	sealed, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(sealed) == 0) {
		return data, nil
	}
	if err != nil {
		return nil, err
	}

	plaintext, err := f.open(sealed)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return data, nil
}

func (f *FileKeystore) save(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	plaintext, err := json.Marshal(data)
	if err != nil {
		return err
	}
	sealed, err := f.seal(plaintext)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, sealed, 0o600)
}

func (f *FileKeystore) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(f.masterKey, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FileKeystore) seal(plaintext []byte) ([]byte, error) {
	header := make([]byte, headerLength)
	copy(header, magic)
	header[len(magic)] = formatVersion
	if _, err := io.ReadFull(rand.Reader, header[len(magic)+1:]); err != nil {
		return nil, err
	}
	salt := header[len(magic)+1 : len(magic)+1+saltLength]
	nonce := header[len(magic)+1+saltLength:]

	gcm, err := f.aead(salt)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(header, nonce, plaintext, header), nil
}

func (f *FileKeystore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < headerLength || string(sealed[:len(magic)]) != magic || sealed[len(magic)] != formatVersion {
		return nil, ErrCorrupt
	}
	header := sealed[:headerLength]
	salt := header[len(magic)+1 : len(magic)+1+saltLength]
	nonce := header[len(magic)+1+saltLength:]

	gcm, err := f.aead(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, sealed[headerLength:], header)
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}

var _ Keystore = (*FileKeystore)(nil)
