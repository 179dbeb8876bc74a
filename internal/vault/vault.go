package vault

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/repositories"
)

// deriveKey is a seam for tests that need a slow or blocking derivation.
var deriveKey = cryptox.DeriveKey

var errClosed = errors.New("vault is closed")

// Vault guards the master record and the credential store behind the
// Uninitialized/Locked/Unlocked state machine. It is safe for concurrent use;
// all operations are serialized.
type Vault struct {
	mu     sync.Mutex
	repo   repositories.Repository
	logger logging.Logger
	state  State
	box    *cryptox.CipherBox
	closed bool
}

// New inspects repo and returns a Vault in the Uninitialized or Locked
// state. The Vault owns repo from here on and closes it in Close.
func New(ctx context.Context, repo repositories.Repository, logger logging.Logger) (*Vault, error) {
	v := &Vault{
		repo:   repo,
		logger: logger.With("component", "vault"),
		state:  StateUninitialized,
	}

	rec, err := repo.LoadMasterRecord(ctx)
	if err != nil {
		return nil, v.storageError(ctx, "load master record", "", err)
	}
	if rec != nil {
		v.state = StateLocked
	}

	v.logger.Debug(ctx, "vault opened", "state", v.state.String())
	return v, nil
}

// State reports the current state.
func (v *Vault) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Setup initializes the vault with a new master secret. secret and confirm
// must match and be non-empty.
func (v *Vault) Setup(ctx context.Context, secret, confirm []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("%w: %w", common.ErrorStorage, errClosed)
	}
	if v.state != StateUninitialized {
		return common.ErrorAlreadyInitialized
	}
	if len(secret) == 0 {
		return fmt.Errorf("%w: master secret must not be empty", common.ErrorValidation)
	}
	if subtle.ConstantTimeCompare(secret, confirm) != 1 {
		return fmt.Errorf("%w: master secret confirmation does not match", common.ErrorValidation)
	}

	if s := cryptox.EstimateStrength(string(secret)); s.Weak() {
		v.logger.Warn(ctx, "weak master secret", "score", s.Score, "crack_time", s.CrackTime)
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return err
	}

	rec := &models.MasterKeyRecord{
		VerificationHash: cryptox.HashForVerification(secret),
		Salt:             salt,
	}

	if err := v.repo.SaveMasterRecord(ctx, rec); err != nil {
		if errors.Is(err, common.ErrorAlreadyInitialized) {
			v.state = StateLocked
			return common.ErrorAlreadyInitialized
		}
		return v.storageError(ctx, "save master record", "", err)
	}

	v.state = StateLocked
	v.logger.Info(ctx, "vault initialized")
	return nil
}

// Unlock verifies secret against the stored hash and opens a session.
//
// Key derivation runs on its own goroutine. If ctx ends first Unlock returns
// ctx.Err() and the key is wiped once derivation completes; the state does
// not change.
func (v *Vault) Unlock(ctx context.Context, secret []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("%w: %w", common.ErrorStorage, errClosed)
	}
	if v.state == StateUninitialized {
		return common.ErrorNotInitialized
	}

	rec, err := v.repo.LoadMasterRecord(ctx)
	if err != nil {
		return v.storageError(ctx, "load master record", "", err)
	}
	if rec == nil {
		return common.ErrorNotInitialized
	}

	candidate := cryptox.HashForVerification(secret)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(rec.VerificationHash)) != 1 {
		v.logger.Warn(ctx, "unlock rejected")
		return common.ErrorAuthentication
	}

	if !cryptox.ValidSalt(rec.Salt) {
		return fmt.Errorf("%w: stored salt has invalid length %d", common.ErrorStorage, len(rec.Salt))
	}

	key, err := v.derive(ctx, secret, rec.Salt)
	if err != nil {
		return err
	}

	box, err := cryptox.NewCipherBox(key)
	if err != nil {
		common.WipeByteArray(key)
		return err
	}

	if v.box != nil {
		v.box.Destroy()
	}
	v.box = box
	v.state = StateUnlocked
	v.logger.Info(ctx, "vault unlocked")
	return nil
}

func (v *Vault) derive(ctx context.Context, secret, salt []byte) ([]byte, error) {
	// The goroutine may outlive this call, so it works on its own copies.
	secret = bytes.Clone(secret)
	salt = bytes.Clone(salt)

	done := make(chan []byte, 1)
	go func() {
		k := deriveKey(secret, salt)
		common.WipeByteArray(secret)
		done <- k
	}()

	select {
	case key := <-done:
		return key, nil
	case <-ctx.Done():
		go func() {
			common.WipeByteArray(<-done)
		}()
		v.logger.Debug(ctx, "unlock cancelled")
		return nil, ctx.Err()
	}
}

// Lock ends the session and wipes the key. Locking a vault that is not
// unlocked is a no-op.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lock()
}

func (v *Vault) lock() {
	if v.box != nil {
		v.box.Destroy()
		v.box = nil
	}
	if v.state == StateUnlocked {
		v.state = StateLocked
		v.logger.Info(context.Background(), "vault locked")
	}
}

// Close locks the vault and closes the repository. Later calls return nil.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.lock()
	v.closed = true

	if err := v.repo.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", common.ErrorStorage, err)
	}
	return nil
}

// requireUnlocked must be called with v.mu held.
func (v *Vault) requireUnlocked() error {
	if v.state != StateUnlocked || v.box == nil {
		return common.ErrorNotUnlocked
	}
	return nil
}

func validateService(service string) error {
	if strings.TrimSpace(service) == "" {
		return fmt.Errorf("%w: service name must not be empty", common.ErrorValidation)
	}
	return nil
}

// Store encrypts secret and saves it under a new service name.
func (v *Vault) Store(ctx context.Context, service, secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireUnlocked(); err != nil {
		return err
	}
	if err := validateService(service); err != nil {
		return err
	}

	ct, err := v.encrypt(secret)
	if err != nil {
		return err
	}

	if err := v.repo.InsertCredential(ctx, service, ct); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return err
		}
		return v.storageError(ctx, "store", service, err)
	}

	v.logger.Debug(ctx, "credential stored", "service", service)
	return nil
}

// Update replaces the secret of an existing service.
func (v *Vault) Update(ctx context.Context, service, secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireUnlocked(); err != nil {
		return err
	}
	if err := validateService(service); err != nil {
		return err
	}

	ct, err := v.encrypt(secret)
	if err != nil {
		return err
	}

	found, err := v.repo.UpdateCredential(ctx, service, ct)
	if err != nil {
		return v.storageError(ctx, "update", service, err)
	}
	if !found {
		return fmt.Errorf("%w: service %q", common.ErrorNotFound, service)
	}

	v.logger.Debug(ctx, "credential updated", "service", service)
	return nil
}

// Retrieve returns the decrypted secret of service. A record that fails
// authentication yields common.ErrorIntegrity; other records are unaffected.
func (v *Vault) Retrieve(ctx context.Context, service string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireUnlocked(); err != nil {
		return "", err
	}

	ct, err := v.repo.GetCredential(ctx, service)
	if err != nil {
		return "", v.storageError(ctx, "retrieve", service, err)
	}
	if ct == nil {
		return "", fmt.Errorf("%w: service %q", common.ErrorNotFound, service)
	}

	pt, err := v.box.Decrypt(ct)
	if err != nil {
		if errors.Is(err, common.ErrorIntegrity) {
			v.logger.Error(ctx, "credential failed integrity check", "service", service)
		}
		return "", err
	}
	defer common.WipeByteArray(pt)

	return string(pt), nil
}

// Delete removes service. Deleting a missing service succeeds.
func (v *Vault) Delete(ctx context.Context, service string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireUnlocked(); err != nil {
		return err
	}

	if err := v.repo.DeleteCredential(ctx, service); err != nil {
		return v.storageError(ctx, "delete", service, err)
	}

	v.logger.Debug(ctx, "credential deleted", "service", service)
	return nil
}

// ListServices returns service names in insertion order without
// decrypting anything.
func (v *Vault) ListServices(ctx context.Context) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireUnlocked(); err != nil {
		return nil, err
	}

	services, err := v.repo.ListServices(ctx)
	if err != nil {
		return nil, v.storageError(ctx, "list services", "", err)
	}
	return services, nil
}

// ListAll returns every stored entry with its ciphertext.
func (v *Vault) ListAll(ctx context.Context) ([]models.CredentialEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireUnlocked(); err != nil {
		return nil, err
	}

	entries, err := v.repo.ListAll(ctx)
	if err != nil {
		return nil, v.storageError(ctx, "list all", "", err)
	}
	return entries, nil
}

// Verify decrypts every record and returns the services whose ciphertext
// fails authentication, in insertion order.
func (v *Vault) Verify(ctx context.Context) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireUnlocked(); err != nil {
		return nil, err
	}

	entries, err := v.repo.ListAll(ctx)
	if err != nil {
		return nil, v.storageError(ctx, "verify", "", err)
	}

	broken := make([]string, 0)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pt, err := v.box.Decrypt(e.Ciphertext)
		if err != nil {
			if !errors.Is(err, common.ErrorIntegrity) {
				return nil, err
			}
			v.logger.Warn(ctx, "credential failed integrity check", "service", e.Service)
			broken = append(broken, e.Service)
			continue
		}
		common.WipeByteArray(pt)
	}
	return broken, nil
}

// GeneratePassword returns a random password of the given length drawn from
// cryptox.PasswordAlphabet.
func (v *Vault) GeneratePassword(length int) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireUnlocked(); err != nil {
		return "", err
	}
	return cryptox.GeneratePassword(length)
}

func (v *Vault) encrypt(secret string) ([]byte, error) {
	pt := []byte(secret)
	defer common.WipeByteArray(pt)
	return v.box.Encrypt(pt)
}

// storageError logs err and wraps it as common.ErrorStorage. Only the
// service name is attached.
func (v *Vault) storageError(ctx context.Context, op, service string, err error) error {
	if service == "" {
		v.logger.Error(ctx, "storage failure", "op", op, "error", err)
		return fmt.Errorf("%w: %s: %w", common.ErrorStorage, op, err)
	}
	v.logger.Error(ctx, "storage failure", "op", op, "service", service, "error", err)
	return fmt.Errorf("%w: %s %q: %w", common.ErrorStorage, op, service, err)
}
