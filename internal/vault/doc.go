// Package vault implements the password vault state machine.
//
// A Vault moves between three states:
//
//	Uninitialized --Setup--> Locked --Unlock--> Unlocked --Lock--> Locked
//
// Setup stores a salt and an unsalted SHA-256 verification hash of the
// master secret. Unlock compares that hash in constant time, then derives
// the AES-256 key with PBKDF2 and keeps it in a CipherBox for the length of
// the session. Every credential operation requires the Unlocked state and
// fails with common.ErrorNotUnlocked otherwise, without touching storage.
//
// Errors are the sentinels from package common and should be matched with
// errors.Is. Secrets never appear in errors or log records.
package vault
