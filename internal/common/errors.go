// Package common defines the sentinel errors and small byte helpers shared by
// every gophvault layer. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Input errors (empty service name, setup confirmation mismatch, bad length).
	ErrorValidation = errors.New("validation error")

	// Master secret verification failed.
	ErrorAuthentication = errors.New("authentication failed")

	// Vault state errors.
	ErrorNotUnlocked        = errors.New("vault is not unlocked")
	ErrorNotInitialized     = errors.New("vault is not initialized")
	ErrorAlreadyInitialized = errors.New("vault is already initialized")

	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorStorage       = errors.New("storage error")

	// Ciphertext failed authentication on decrypt.
	ErrorIntegrity = errors.New("integrity check failed")
)
