// Package repositories defines the storage contract of the vault. Backends
// live in subpackages (sqlite, postgres, bolt, memory) and are selected by
// repomanager.
package repositories

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/models"
)

// Repository persists the master record and encrypted credentials.
//
// Every call is atomic on its own; callers must not assume transactions
// spanning several calls. Implementations never see plaintext.
type Repository interface {
	// LoadMasterRecord returns (nil, nil) when the vault is not initialized.
	LoadMasterRecord(ctx context.Context) (*models.MasterKeyRecord, error)

	// SaveMasterRecord stores the record once. A second call fails with
	// common.ErrorAlreadyInitialized and leaves the first record intact.
	SaveMasterRecord(ctx context.Context, rec *models.MasterKeyRecord) error

	// InsertCredential adds a new service. An existing service fails with
	// common.ErrorAlreadyExists.
	InsertCredential(ctx context.Context, service string, ciphertext []byte) error

	// UpdateCredential replaces the ciphertext and reports whether the
	// service existed.
	UpdateCredential(ctx context.Context, service string, ciphertext []byte) (bool, error)

	// DeleteCredential removes a service; a missing service is not an error.
	DeleteCredential(ctx context.Context, service string) error

	// GetCredential returns (nil, nil) when the service is absent.
	GetCredential(ctx context.Context, service string) ([]byte, error)

	// ListAll returns every credential in insertion order.
	ListAll(ctx context.Context) ([]models.CredentialEntry, error)

	// ListServices returns every service name in insertion order.
	ListServices(ctx context.Context) ([]string, error)

	// Close releases the underlying handle.
	Close() error
}
