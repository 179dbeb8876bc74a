package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/keyring"
	"github.com/dmitrijs2005/gophvault/internal/vault"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
)

// Setup creates the vault. The master secret is asked twice.
func (a *App) Setup(ctx context.Context) error {
	secret, err := getSecret(a.reader, "New master secret", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	confirm, err := getSecret(a.reader, "Repeat master secret", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if s := cryptox.EstimateStrength(string(secret)); s.Weak() {
		printlnFn(fmt.Sprintf("Warning: this master secret is weak (score %d/4, cracked in %s).", s.Score, s.CrackTime))
	}

	if err := a.vault.Setup(ctx, secret, confirm); err != nil {
		return err
	}

	printlnFn("Vault created. Run 'unlock' to start.")
	return nil
}

// Unlock asks for the master secret and opens the vault. With keyring
// enabled the secret is cached on success.
func (a *App) Unlock(ctx context.Context) error {
	secret, err := getSecret(a.reader, "Master secret", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	if err := a.vault.Unlock(ctx, secret); err != nil {
		return err
	}

	if a.config.UseKeyring {
		if err := keyring.SaveSecret(a.account, secret); err != nil {
			a.logger.Warn(ctx, "keyring unavailable", "error", err)
		}
	}

	printlnFn("Vault unlocked.")
	return nil
}

// unlockFromKeyring tries a cached secret. A stale entry is removed.
func (a *App) unlockFromKeyring(ctx context.Context) {
	secret, err := keyring.GetSecret(a.account)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			a.logger.Warn(ctx, "keyring unavailable", "error", err)
		}
		return
	}
	defer common.WipeByteArray(secret)

	if err := a.vault.Unlock(ctx, secret); err != nil {
		if errors.Is(err, common.ErrorAuthentication) {
			_ = keyring.DeleteSecret(a.account)
			printlnFn("Cached master secret is out of date and was removed.")
			return
		}
		printlnFn(describeError(err))
		return
	}
	printlnFn("Vault unlocked from keyring.")
}

func (a *App) Lock(ctx context.Context) error {
	a.vault.Lock()
	a.clearClipboard(ctx)
	printlnFn("Vault locked.")
	return nil
}

// Add stores a new credential. An empty secret generates one.
func (a *App) Add(ctx context.Context, service string) error {
	secret, generated, err := a.askCredential(service)
	if err != nil {
		return err
	}

	if err := a.vault.Store(ctx, service, secret); err != nil {
		return err
	}

	if generated {
		printlnFn("Generated password:", secret)
	}
	printlnFn("Stored", service)
	return nil
}

// Update replaces the secret of an existing credential.
func (a *App) Update(ctx context.Context, service string) error {
	secret, generated, err := a.askCredential(service)
	if err != nil {
		return err
	}

	if err := a.vault.Update(ctx, service, secret); err != nil {
		return err
	}

	if generated {
		printlnFn("Generated password:", secret)
	}
	printlnFn("Updated", service)
	return nil
}

func (a *App) askCredential(service string) (string, bool, error) {
	if a.vault.State() != vault.StateUnlocked {
		return "", false, common.ErrorNotUnlocked
	}

	raw, err := getSecret(a.reader, "Secret (empty to generate)", a.out)
	if err != nil {
		return "", false, err
	}
	defer common.WipeByteArray(raw)

	if len(raw) == 0 {
		pw, err := a.vault.GeneratePassword(a.config.PasswordLength)
		if err != nil {
			return "", false, err
		}
		return pw, true, nil
	}

	secret := string(raw)
	if s := cryptox.EstimateStrength(secret, service); s.Weak() {
		printlnFn(fmt.Sprintf("Warning: weak secret (score %d/4).", s.Score))
	}
	return secret, false, nil
}

// Get copies a secret to the clipboard. Without a usable clipboard the
// secret is printed instead.
func (a *App) Get(ctx context.Context, service string) error {
	secret, err := a.vault.Retrieve(ctx, service)
	if err != nil {
		return err
	}

	if !a.copyToClipboard(ctx, secret) {
		printlnFn(secret)
		return nil
	}

	if t := a.config.ClipboardClearTimeout; t > 0 {
		printlnFn(fmt.Sprintf("Copied %s to the clipboard, it will be cleared in %s.", service, t))
	} else {
		printlnFn(fmt.Sprintf("Copied %s to the clipboard.", service))
	}
	return nil
}

// Delete removes a credential after confirmation.
func (a *App) Delete(ctx context.Context, service string) error {
	if a.vault.State() != vault.StateUnlocked {
		return common.ErrorNotUnlocked
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete %s? [y/N]", service), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		printlnFn("Cancelled.")
		return nil
	}

	if err := a.vault.Delete(ctx, service); err != nil {
		return err
	}
	printlnFn("Deleted", service)
	return nil
}

// List prints service names in insertion order. Verbose mode adds the
// stored ciphertext size; nothing is decrypted either way.
func (a *App) List(ctx context.Context, verbose bool) error {
	if !verbose {
		services, err := a.vault.ListServices(ctx)
		if err != nil {
			return err
		}
		if len(services) == 0 {
			printlnFn("No credentials stored.")
			return nil
		}
		for _, s := range services {
			printlnFn(s)
		}
		return nil
	}

	entries, err := a.vault.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printlnFn("No credentials stored.")
		return nil
	}
	for _, e := range entries {
		printlnFn(fmt.Sprintf("%s\t%d bytes", e.Service, len(e.Ciphertext)))
	}
	return nil
}

func (a *App) Generate(ctx context.Context, length int) error {
	if length == 0 {
		length = a.config.PasswordLength
	}
	pw, err := a.vault.GeneratePassword(length)
	if err != nil {
		return err
	}
	printlnFn(pw)
	return nil
}

func (a *App) Passphrase(ctx context.Context, words int) error {
	if words == 0 {
		words = a.config.PassphraseWords
	}
	p, err := cryptox.GeneratePassphrase(words)
	if err != nil {
		return err
	}
	printlnFn(p)
	return nil
}

// Strength rates a secret typed by the user without storing it.
func (a *App) Strength(ctx context.Context) error {
	raw, err := getSecret(a.reader, "Secret to check", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(raw)

	s := cryptox.EstimateStrength(string(raw))
	verdict := "ok"
	if s.Weak() {
		verdict = "weak"
	}
	printlnFn(fmt.Sprintf("Score %d/4 (%s), estimated crack time: %s", s.Score, verdict, s.CrackTime))
	return nil
}

// Verify decrypts every record and lists the ones that fail.
func (a *App) Verify(ctx context.Context) error {
	broken, err := a.vault.Verify(ctx)
	if err != nil {
		return err
	}
	if len(broken) == 0 {
		printlnFn("All records passed the integrity check.")
		return nil
	}
	printlnFn(fmt.Sprintf("%d record(s) failed the integrity check:", len(broken)))
	for _, s := range broken {
		printlnFn(" ", s)
	}
	return nil
}

// Remember verifies the master secret and caches it in the OS keyring.
func (a *App) Remember(ctx context.Context) error {
	secret, err := getSecret(a.reader, "Master secret", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	if err := a.vault.Unlock(ctx, secret); err != nil {
		return err
	}

	replaced := keyring.HasSecret(a.account)
	if err := keyring.SaveSecret(a.account, secret); err != nil {
		return err
	}
	if replaced {
		printlnFn("Master secret in the OS keyring replaced.")
	} else {
		printlnFn("Master secret saved to the OS keyring.")
	}
	return nil
}

// Forget removes a cached master secret.
func (a *App) Forget(ctx context.Context) error {
	if err := keyring.DeleteSecret(a.account); err != nil {
		return err
	}
	printlnFn("Master secret removed from the OS keyring.")
	return nil
}
