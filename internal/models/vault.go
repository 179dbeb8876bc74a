// Package models defines the records gophvault persists.
package models

// MasterKeyRecord is written once, when the vault is set up.
// Its absence means the vault has not been initialized.
type MasterKeyRecord struct {
	// VerificationHash is the hex SHA-256 digest of the master secret.
	VerificationHash string

	// Salt feeds key derivation for every unlock. Changing it would make
	// all stored ciphertexts undecryptable.
	Salt []byte
}

// CredentialEntry is one stored credential. Ciphertext is opaque to storage.
type CredentialEntry struct {
	Service    string
	Ciphertext []byte
}
