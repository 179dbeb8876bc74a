package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

const (
	NonceSize = 12 // GCM nonce size
	TagSize   = 16 // GCM authentication tag size
)

// CipherBox provides authenticated encryption of credential values under a
// single derived key.
type CipherBox struct {
	mu  sync.RWMutex
	key *memguard.LockedBuffer
}

// NewCipherBox takes ownership of key: its bytes are moved into a locked,
// read-only buffer and the caller's slice is wiped.
func NewCipherBox(key []byte) (*CipherBox, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", common.ErrorValidation, KeySize, len(key))
	}

	buf := memguard.NewBufferFromBytes(key)
	buf.Freeze()

	return &CipherBox{key: buf}, nil
}

// aead builds a fresh AES-GCM instance for a single call. The caller must
// hold c.mu.
func (c *CipherBox) aead() (cipher.AEAD, error) {
	if c.key == nil || !c.key.IsAlive() {
		return nil, common.ErrorNotUnlocked
	}

	block, err := aes.NewCipher(c.key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns
// nonce || ciphertext || tag.
func (c *CipherBox) Encrypt(plaintext []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gcm, err := c.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a value produced by Encrypt. Truncated, modified or
// foreign-key input fails with common.ErrorIntegrity.
func (c *CipherBox) Decrypt(ciphertext []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(ciphertext) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrorIntegrity)
	}

	gcm, err := c.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, ciphertext[:NonceSize], ciphertext[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext authentication failed", common.ErrorIntegrity)
	}
	return plaintext, nil
}

// Destroy wipes and releases the key. It is safe to call more than once;
// later Encrypt/Decrypt calls fail with common.ErrorNotUnlocked.
func (c *CipherBox) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		c.key.Destroy()
		c.key = nil
	}
}
