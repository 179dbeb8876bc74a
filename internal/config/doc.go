// Package config loads runtime configuration for gophvault.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-s string   store driver: sqlite, postgres, bolt or memory
//	-d string   database file path (sqlite, bolt) or connection string (postgres)
//	-l string   log level: debug, info, warn, error
//	-t int      idle auto-lock timeout in seconds, 0 disables it
//	-b int      seconds before a copied secret is cleared from the clipboard, 0 keeps it
//	-k          remember the master secret in the OS keyring
//
// # JSON schema
//
// Intervals use timex.Duration, so they can be strings like "5m" or integer
// nanoseconds:
//
//	{
//	  "store_driver": "sqlite",
//	  "database_dsn": "/home/me/.gophvault/vault.db",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "idle_lock_timeout": "5m",
//	  "password_length": 12,
//	  "passphrase_words": 6,
//	  "use_keyring": false,
//	  "clipboard_clear_timeout": "30s"
//	}
//
// Fields missing from the file keep their previous value.
package config
