// Package cryptox holds the credential cryptography of gophvault.
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - a 32-byte random salt generated once per vault (16..32 bytes accepted)
//   - 100,000 iterations
//   - a 32-byte output used as an AES-256 key
//
// The master secret is checked against an unsalted SHA-256 hex digest
// (HashForVerification). The derived key itself is never stored.
//
// CipherBox seals credentials with AES-256-GCM. Every ciphertext is laid out
// as nonce(12) || ciphertext || tag(16). The key is held in a memguard buffer
// and wiped by Destroy.
package cryptox
