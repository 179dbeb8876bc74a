package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
)

// Config holds runtime settings for the gophvault CLI.
type Config struct {
	StoreDriver     string
	DatabaseDSN     string
	LogLevel        string
	LogFormat       string
	IdleLockTimeout time.Duration
	PasswordLength  int
	PassphraseWords int
	UseKeyring      bool

	// ClipboardClearTimeout is how long a copied secret stays on the
	// clipboard. Zero leaves it there.
	ClipboardClearTimeout time.Duration
}

// DefaultDatabasePath is ~/.gophvault/vault.db, or vault.db in the working
// directory when the home directory is unknown.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vault.db"
	}
	return filepath.Join(home, ".gophvault", "vault.db")
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StoreDriver = repomanager.DriverSQLite
	c.DatabaseDSN = DefaultDatabasePath()
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.IdleLockTimeout = 5 * time.Minute
	c.PasswordLength = cryptox.DefaultPasswordLength
	c.PassphraseWords = cryptox.DefaultPassphraseWords
	c.UseKeyring = false
	c.ClipboardClearTimeout = 30 * time.Second
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if !slices.Contains(repomanager.Drivers, c.StoreDriver) {
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.StoreDriver != repomanager.DriverMemory && c.DatabaseDSN == "" {
		return fmt.Errorf("database dsn is required for %s", c.StoreDriver)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.IdleLockTimeout < 0 {
		return fmt.Errorf("idle lock timeout must not be negative")
	}
	if c.ClipboardClearTimeout < 0 {
		return fmt.Errorf("clipboard clear timeout must not be negative")
	}
	if c.PasswordLength < cryptox.MinPasswordLength {
		return fmt.Errorf("password length must be at least %d", cryptox.MinPasswordLength)
	}
	if c.PassphraseWords < cryptox.MinPassphraseWords {
		return fmt.Errorf("passphrase must have at least %d words", cryptox.MinPassphraseWords)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
