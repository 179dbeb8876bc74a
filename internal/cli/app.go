package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/keyring"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/vault"
)

// now is a test seam for the idle clock.
var now = time.Now

type App struct {
	config  *config.Config
	vault   *vault.Vault
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	account string

	lastActivity atomic.Int64
	clip         clipboardGuard
}

// NewApp opens the configured store and wraps it in a Vault.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	repo, err := repomanager.Open(ctx, c.StoreDriver, c.DatabaseDSN, logger)
	if err != nil {
		return nil, err
	}

	v, err := vault.New(ctx, repo, logger)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	return newApp(c, v, logger, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, v *vault.Vault, logger logging.Logger, in io.Reader, out io.Writer) *App {
	a := &App{
		config:  c,
		vault:   v,
		logger:  logger,
		reader:  bufio.NewReader(in),
		out:     out,
		account: keyring.Account(c.StoreDriver, c.DatabaseDSN),
	}
	a.touch()
	return a
}

// Run greets the user, optionally unlocks from the keyring and runs the
// REPL until exit or EOF. On return a copied secret is cleared from the
// clipboard and the vault is closed; a close failure is returned.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		a.clearClipboard(context.Background())
		if cerr := a.vault.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn("Welcome to gophvault (type 'help' for commands)")

	switch a.vault.State() {
	case vault.StateUninitialized:
		printlnFn("No vault found. Run 'setup' to create one.")
	case vault.StateLocked:
		if a.config.UseKeyring {
			a.unlockFromKeyring(ctx)
		}
	}

	if a.config.IdleLockTimeout > 0 {
		go a.StartIdleLocker(ctx, a.config.IdleLockTimeout)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

func (a *App) state() vault.State {
	return a.vault.State()
}

func (a *App) touch() {
	a.lastActivity.Store(now().UnixNano())
}

func (a *App) idleFor() time.Duration {
	return now().Sub(time.Unix(0, a.lastActivity.Load()))
}

// lockIfIdle locks an unlocked vault that has seen no command for timeout.
func (a *App) lockIfIdle(ctx context.Context, timeout time.Duration) bool {
	if a.vault.State() != vault.StateUnlocked || a.idleFor() < timeout {
		return false
	}
	a.vault.Lock()
	a.clearClipboard(ctx)
	a.logger.Info(ctx, "vault auto-locked", "idle", timeout.String())
	printlnFn("\nVault locked after inactivity.")
	return true
}

// StartIdleLocker polls until ctx is done and locks the vault after timeout
// without activity.
func (a *App) StartIdleLocker(ctx context.Context, timeout time.Duration) {
	interval := timeout / 10
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.lockIfIdle(ctx, timeout)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	return a.vault.State().String()
}
