// Package secure holds sensitive values (the CI passkey) in encrypted,
// mlock-backed memory so they never sit in plain Go heap between the moment
// they are resolved and the moment they are handed to the external CLI.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer wraps a memguard.Enclave. The plaintext exists only inside Open's
// returned LockedBuffer, which the caller must destroy when done.
type Buffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewBuffer seals the given bytes into an encrypted enclave. The input slice
// is consumed by memguard and wiped; callers must not reuse it.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// NewBufferFromString seals a string value.
func NewBufferFromString(value string) *Buffer {
	return NewBuffer([]byte(value))
}

// Open decrypts the enclave into a locked buffer. The caller must call
// Destroy on the result to wipe the plaintext.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return b.enclave.Open()
}

// Destroy marks the buffer unusable. Idempotent. The encrypted enclave data
// is left for the collector; call memguard.Purge at process exit for a full
// wipe of the session key.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
