// Package memory is an in-process repository. Nothing survives Close; it
// backs tests and throwaway sessions.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

type Repository struct {
	mu      sync.RWMutex
	master  *models.MasterKeyRecord
	order   []string
	entries map[string][]byte
	closed  bool
}

func NewRepository() *Repository {
	return &Repository{entries: make(map[string][]byte)}
}

var errClosed = errors.New("memory repository is closed")

func (r *Repository) LoadMasterRecord(ctx context.Context) (*models.MasterKeyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errClosed
	}
	if r.master == nil {
		return nil, nil
	}
	return &models.MasterKeyRecord{
		VerificationHash: r.master.VerificationHash,
		Salt:             slices.Clone(r.master.Salt),
	}, nil
}

func (r *Repository) SaveMasterRecord(ctx context.Context, rec *models.MasterKeyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errClosed
	}
	if r.master != nil {
		return common.ErrorAlreadyInitialized
	}
	r.master = &models.MasterKeyRecord{
		VerificationHash: rec.VerificationHash,
		Salt:             slices.Clone(rec.Salt),
	}
	return nil
}

func (r *Repository) InsertCredential(ctx context.Context, service string, ciphertext []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errClosed
	}
	if _, ok := r.entries[service]; ok {
		return fmt.Errorf("%w: service %q", common.ErrorAlreadyExists, service)
	}
	r.entries[service] = slices.Clone(ciphertext)
	r.order = append(r.order, service)
	return nil
}

func (r *Repository) UpdateCredential(ctx context.Context, service string, ciphertext []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, errClosed
	}
	if _, ok := r.entries[service]; !ok {
		return false, nil
	}
	r.entries[service] = slices.Clone(ciphertext)
	return true, nil
}

func (r *Repository) DeleteCredential(ctx context.Context, service string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errClosed
	}
	if _, ok := r.entries[service]; !ok {
		return nil
	}
	delete(r.entries, service)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == service })
	return nil
}

func (r *Repository) GetCredential(ctx context.Context, service string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errClosed
	}
	v, ok := r.entries[service]
	if !ok {
		return nil, nil
	}
	return slices.Clone(v), nil
}

func (r *Repository) ListAll(ctx context.Context) ([]models.CredentialEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errClosed
	}
	result := make([]models.CredentialEntry, 0, len(r.order))
	for _, s := range r.order {
		result = append(result, models.CredentialEntry{Service: s, Ciphertext: slices.Clone(r.entries[s])})
	}
	return result, nil
}

func (r *Repository) ListServices(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errClosed
	}
	result := make([]string, len(r.order))
	copy(result, r.order)
	return result, nil
}

func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.master = nil
	r.entries = nil
	r.order = nil
	return nil
}
