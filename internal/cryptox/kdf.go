package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

const (
	SaltSize    = 32      // salt generated at setup
	MinSaltSize = 16      // shortest salt DeriveKey accepts
	MaxSaltSize = 32      // longest salt DeriveKey accepts
	KeySize     = 32      // AES-256
	Iterations  = 100_000 // PBKDF2 rounds
)

// randReader is a test seam for crypto/rand.
var randReader io.Reader = rand.Reader

// NewSalt returns SaltSize random bytes for a new master record.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// ValidSalt reports whether salt has a length DeriveKey accepts.
func ValidSalt(salt []byte) bool {
	return len(salt) >= MinSaltSize && len(salt) <= MaxSaltSize
}

// DeriveKey stretches secret into a KeySize key with PBKDF2-HMAC-SHA256.
// The same secret and salt always give the same key.
//
// A salt outside [MinSaltSize, MaxSaltSize] is a programming error and panics.
func DeriveKey(secret, salt []byte) []byte {
	if !ValidSalt(salt) {
		panic(fmt.Sprintf("cryptox: salt must be %d..%d bytes, got %d", MinSaltSize, MaxSaltSize, len(salt)))
	}
	return pbkdf2.Key(secret, salt, Iterations, KeySize, sha256.New)
}

// HashForVerification returns the hex SHA-256 digest of secret. It is only
// used to check an unlock attempt and is deliberately fast and unsalted.
func HashForVerification(secret []byte) string {
	sum := sha256.Sum256(secret)
	defer common.WipeByteArray(sum[:])
	return hex.EncodeToString(sum[:])
}
