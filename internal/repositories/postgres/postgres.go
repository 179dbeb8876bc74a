// Package postgres stores the vault in a PostgreSQL database through the
// pgx stdlib driver. The schema is applied with goose on open.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
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

// migrateUp is a seam for testing migrations.Up.
var migrateUp = migrations.Up

// Open connects to dsn, applies migrations and returns the repository.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	r, err := OpenDB(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// OpenDB migrates an already connected database and wraps it.
func OpenDB(ctx context.Context, db *sql.DB, logger logging.Logger) (*Repository, error) {
	if err := migrateUp(ctx, db, migrations.Postgres, logger); err != nil {
		return nil, err
	}
	return NewRepository(db), nil
}

func (r *Repository) LoadMasterRecord(ctx context.Context) (*models.MasterKeyRecord, error) {
	query := `SELECT hash, salt FROM master_key WHERE id = 1`

	rec := &models.MasterKeyRecord{}
	err := r.db.QueryRowContext(ctx, query).Scan(&rec.VerificationHash, &rec.Salt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *Repository) SaveMasterRecord(ctx context.Context, rec *models.MasterKeyRecord) error {
	query :=
		`INSERT INTO master_key (id, hash, salt)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id) DO NOTHING
		 `

	n, err := dbx.ExecAffected(ctx, r.db, query, rec.VerificationHash, rec.Salt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorAlreadyInitialized
	}
	return nil
}

func (r *Repository) InsertCredential(ctx context.Context, service string, ciphertext []byte) error {
	query :=
		`INSERT INTO passwords (service, password)
		 VALUES ($1, $2)
		 ON CONFLICT (service) DO NOTHING
		 `

	n, err := dbx.ExecAffected(ctx, r.db, query, service, ciphertext)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: service %q", common.ErrorAlreadyExists, service)
	}
	return nil
}

func (r *Repository) UpdateCredential(ctx context.Context, service string, ciphertext []byte) (bool, error) {
	query :=
		`UPDATE passwords SET password = $2
		 WHERE service = $1
		 `

	n, err := dbx.ExecAffected(ctx, r.db, query, service, ciphertext)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) DeleteCredential(ctx context.Context, service string) error {
	query := `DELETE FROM passwords WHERE service = $1`

	if _, err := r.db.ExecContext(ctx, query, service); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *Repository) GetCredential(ctx context.Context, service string) ([]byte, error) {
	query := `SELECT password FROM passwords WHERE service = $1`

	var value []byte
	err := r.db.QueryRowContext(ctx, query, service).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return value, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]models.CredentialEntry, error) {
	query := `SELECT service, password FROM passwords ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.CredentialEntry, 0)
	for rows.Next() {
		var e models.CredentialEntry
		if err := rows.Scan(&e.Service, &e.Ciphertext); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *Repository) ListServices(ctx context.Context) ([]string, error) {
	query := `SELECT service FROM passwords ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
