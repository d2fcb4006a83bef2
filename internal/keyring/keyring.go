// Package keyring supplies signing credentials from outside the client core
// and rotates between accounts when several are provisioned.
package keyring

import (
	"fmt"
	"os"
	"sync"
	"time"

	"edgex/pkg/core"
)

// Environment variables consulted by FromEnv.
const (
	EnvPrivateKeyHex = "EDGEX_PRIVATE_KEY_HEX"
	EnvAccountID     = "EDGEX_ACCOUNT_ID"
)

// StarkKey is one provisioned signing identity.
type StarkKey struct {
	ID            string
	PrivateKeyHex string
	AccountID     string
	Disabled      bool
	LastUsed      time.Time
	ErrorCount    int
}

// Credentials parses the key into the immutable form the signature engine
// consumes.
func (k *StarkKey) Credentials() (*core.Credentials, error) {
	return core.ParseCredentials(k.PrivateKeyHex, k.AccountID)
}

// String implements fmt.Stringer without exposing the private key.
func (k *StarkKey) String() string {
	return fmt.Sprintf("StarkKey{ID:%s, Account:%s, Key:%s}", k.ID, k.AccountID, maskKey(k.PrivateKeyHex))
}

// KeyRing holds provisioned keys and hands out the current one.
type KeyRing struct {
	mu      sync.RWMutex
	keys    []*StarkKey
	current int
}

// New creates a KeyRing over copies of the given keys.
func New(keys []*StarkKey) *KeyRing {
	keysCopy := make([]*StarkKey, len(keys))
	for i, k := range keys {
		dup := *k
		keysCopy[i] = &dup
	}
	return &KeyRing{keys: keysCopy}
}

// FromEnv builds a single-key ring from EDGEX_PRIVATE_KEY_HEX and
// EDGEX_ACCOUNT_ID.
func FromEnv() (*KeyRing, error) {
	keyHex := os.Getenv(EnvPrivateKeyHex)
	accountID := os.Getenv(EnvAccountID)
	if keyHex == "" || accountID == "" {
		return nil, fmt.Errorf("%w: %s and %s must be set", core.ErrNoCredentials, EnvPrivateKeyHex, EnvAccountID)
	}

	key := &StarkKey{ID: "env", PrivateKeyHex: keyHex, AccountID: accountID}
	if _, err := key.Credentials(); err != nil {
		return nil, err
	}
	return New([]*StarkKey{key}), nil
}

// Current returns the active key, skipping disabled ones. It returns nil
// when every key is disabled or the ring is empty.
func (r *KeyRing) Current() *StarkKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := 0; i < len(r.keys); i++ {
		idx := (r.current + i) % len(r.keys)
		if !r.keys[idx].Disabled {
			return r.keys[idx]
		}
	}
	return nil
}

// Rotate advances to the next enabled key.
func (r *KeyRing) Rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotateLocked()
}

func (r *KeyRing) rotateLocked() {
	if len(r.keys) == 0 {
		return
	}

	start := r.current
	for {
		r.current = (r.current + 1) % len(r.keys)
		if !r.keys[r.current].Disabled || r.current == start {
			return
		}
	}
}

// MarkUsed stamps the active key's last-used time.
func (r *KeyRing) MarkUsed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return
	}
	r.keys[r.current].LastUsed = time.Now()
}

// OnAuthError counts a signature rejection against the active key. After
// three strikes the key is disabled and the ring rotates to the next
// enabled key.
func (r *KeyRing) OnAuthError() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return
	}
	key := r.keys[r.current]
	key.ErrorCount++
	if key.ErrorCount >= 3 {
		key.Disabled = true
		r.rotateLocked()
	}
}

// Disable marks the key with the given id as unusable.
func (r *KeyRing) Disable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.keys {
		if key.ID == id {
			key.Disabled = true
			return
		}
	}
}

// Enable re-arms the key with the given id and clears its error count.
func (r *KeyRing) Enable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.keys {
		if key.ID == id {
			key.Disabled = false
			key.ErrorCount = 0
			return
		}
	}
}

// Len returns the number of provisioned keys.
func (r *KeyRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
