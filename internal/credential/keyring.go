// Package credential keeps the webhook API key and the admin PIN in the
// OS keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "pointake"

// Keys used in the ring.
const (
	KeyAPIKey   = "remote.api_key"
	KeyAdminPIN = "admin.pin"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// Ring wraps a keyring.Keyring.
type Ring struct {
	ring keyring.Keyring
}

// New wraps an already opened keyring. Tests pass keyring.NewArrayKeyring.
func New(ring keyring.Keyring) *Ring {
	return &Ring{ring: ring}
}

// Open opens the system keyring, falling back to an encrypted file store
// under fileDir.
func Open(fileDir string) (*Ring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("pointake-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// Get retrieves a credential value by key.
func (r *Ring) Get(key string) (string, error) {
	item, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key.
func (r *Ring) Set(key string, value string) error {
	err := r.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "pointake " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential. A missing key is not an error.
func (r *Ring) Delete(key string) error {
	err := r.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// APIKey returns the stored webhook key, or "" when none is stored.
func (r *Ring) APIKey() (string, error) {
	key, err := r.Get(KeyAPIKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return key, err
}
