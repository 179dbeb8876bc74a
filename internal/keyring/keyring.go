// Package keyring caches the master secret in the OS keyring so the REPL can
// unlock without a prompt. Entries are keyed by store location.
package keyring

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "gophvault"

// ErrNotFound is returned by GetSecret when nothing is cached for a store.
var ErrNotFound = keyring.ErrNotFound

// Account builds the keyring account name for a store. Driver names are
// case-insensitive; file-backed stores use the absolute path so the same
// file always maps to the same entry.
func Account(driver, dsn string) string {
	driver = strings.ToLower(driver)
	switch driver {
	case "sqlite", "bolt":
		if abs, err := filepath.Abs(dsn); err == nil {
			dsn = abs
		}
	}
	return driver + ":" + dsn
}

// SaveSecret stores secret for account.
func SaveSecret(account string, secret []byte) error {
	if err := keyring.Set(serviceName, account, string(secret)); err != nil {
		return fmt.Errorf("failed to save secret to keyring: %w", err)
	}
	return nil
}

// GetSecret returns the cached secret for account or ErrNotFound.
func GetSecret(account string) ([]byte, error) {
	s, err := keyring.Get(serviceName, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	return []byte(s), nil
}

// DeleteSecret removes the cached secret. A missing entry is not an error.
func DeleteSecret(account string) error {
	err := keyring.Delete(serviceName, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}

// HasSecret reports whether a secret is cached for account.
func HasSecret(account string) bool {
	_, err := keyring.Get(serviceName, account)
	return err == nil
}
