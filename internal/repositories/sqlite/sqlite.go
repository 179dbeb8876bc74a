// Package sqlite is the default vault backend: a single SQLite file opened
// with the pure-Go modernc driver and migrated with goose.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/migrations"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open creates (if needed) the database file at path, restricts it to the
// owner, applies migrations and returns a ready repository.
func Open(ctx context.Context, path string, logger logging.Logger) (*Repository, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	if _, err := filex.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := filex.EnsurePerm0600(path); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrations.Up(ctx, db, migrations.SQLite, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewRepository(db), nil
}

func (r *Repository) LoadMasterRecord(ctx context.Context) (*models.MasterKeyRecord, error) {
	rec := &models.MasterKeyRecord{}
	err := r.db.QueryRowContext(ctx, `SELECT hash, salt FROM master_key WHERE id = 1`).
		Scan(&rec.VerificationHash, &rec.Salt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load master record: %w", err)
	}
	return rec, nil
}

func (r *Repository) SaveMasterRecord(ctx context.Context, rec *models.MasterKeyRecord) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM master_key`).Scan(&n); err != nil {
			return fmt.Errorf("failed to check master record: %w", err)
		}
		if n > 0 {
			return common.ErrorAlreadyInitialized
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO master_key (id, hash, salt) VALUES (1, ?, ?)`,
			rec.VerificationHash, rec.Salt)
		if err != nil {
			return fmt.Errorf("failed to save master record: %w", err)
		}
		return nil
	})
}

func (r *Repository) InsertCredential(ctx context.Context, service string, ciphertext []byte) error {
	n, err := dbx.ExecAffected(ctx, r.db, `
		INSERT INTO passwords (service, password) VALUES (?, ?)
		ON CONFLICT(service) DO NOTHING
	`, service, ciphertext)
	if err != nil {
		return fmt.Errorf("failed to insert credential[%s]: %w", service, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: service %q", common.ErrorAlreadyExists, service)
	}
	return nil
}

func (r *Repository) UpdateCredential(ctx context.Context, service string, ciphertext []byte) (bool, error) {
	n, err := dbx.ExecAffected(ctx, r.db, `UPDATE passwords SET password = ? WHERE service = ?`, ciphertext, service)
	if err != nil {
		return false, fmt.Errorf("failed to update credential[%s]: %w", service, err)
	}
	return n > 0, nil
}

func (r *Repository) DeleteCredential(ctx context.Context, service string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM passwords WHERE service = ?`, service)
	if err != nil {
		return fmt.Errorf("failed to delete credential[%s]: %w", service, err)
	}
	return nil
}

func (r *Repository) GetCredential(ctx context.Context, service string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT password FROM passwords WHERE service = ?`, service).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential[%s]: %w", service, err)
	}
	return value, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]models.CredentialEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT service, password FROM passwords ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	result := make([]models.CredentialEntry, 0)
	for rows.Next() {
		var e models.CredentialEntry
		if err := rows.Scan(&e.Service, &e.Ciphertext); err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credential rows: %w", err)
	}
	return result, nil
}

func (r *Repository) ListServices(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT service FROM passwords ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan service row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate service rows: %w", err)
	}
	return result, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
