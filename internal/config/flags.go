package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Only the
// flags listed in the package doc are looked at; it panics on bad values.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-d", "-l", "-t", "-b"}, "-k")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.StoreDriver, "s", cfg.StoreDriver, "store driver (sqlite, postgres, bolt, memory)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database path or connection string")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	idle := fs.Int("t", int(cfg.IdleLockTimeout.Seconds()), "idle auto-lock timeout (in seconds, 0 disables)")
	clip := fs.Int("b", int(cfg.ClipboardClearTimeout.Seconds()), "clear a copied secret from the clipboard after (in seconds, 0 keeps it)")
	fs.BoolVar(&cfg.UseKeyring, "k", cfg.UseKeyring, "remember the master secret in the OS keyring")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.IdleLockTimeout = time.Duration(*idle) * time.Second
		case "b":
			cfg.ClipboardClearTimeout = time.Duration(*clip) * time.Second
		}
	})
}
