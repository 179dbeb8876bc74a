// Package cli is the interactive front end of gophvault: a line-oriented
// REPL over a vault.Vault.
//
// Commands that take a secret read it without echo when stdin is a
// terminal and as a plain line otherwise, so the REPL can be scripted.
// Errors from the vault are mapped to short messages; integrity failures
// are reported separately from a wrong master secret.
package cli
