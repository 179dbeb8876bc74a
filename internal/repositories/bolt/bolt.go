// Package bolt stores the vault in a single bbolt file.
//
// Layout:
//
//	master_key  hash, salt
//	passwords   service -> ciphertext
//	order       big-endian sequence -> service
//	index       service -> big-endian sequence
//
// The order bucket gives insertion-ordered listing; index lets delete find
// the order key without a scan.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

// Bucket names
var (
	MasterKeyBucket = []byte("master_key")
	PasswordsBucket = []byte("passwords")
	OrderBucket     = []byte("order")
	IndexBucket     = []byte("index")
)

// Master key fields
var (
	keyHash = []byte("hash")
	keySalt = []byte("salt")
)

type Repository struct {
	db *bbolt.DB
}

// Open opens or creates the database at path and makes sure every bucket
// exists.
func Open(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	if _, err := filex.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{MasterKeyBucket, PasswordsBucket, OrderBucket, IndexBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (r *Repository) LoadMasterRecord(ctx context.Context) (*models.MasterKeyRecord, error) {
	var rec *models.MasterKeyRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(MasterKeyBucket)
		hash := b.Get(keyHash)
		if hash == nil {
			return nil
		}
		rec = &models.MasterKeyRecord{
			VerificationHash: string(hash),
			Salt:             clone(b.Get(keySalt)),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load master record: %w", err)
	}
	return rec, nil
}

func (r *Repository) SaveMasterRecord(ctx context.Context, rec *models.MasterKeyRecord) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(MasterKeyBucket)
		if b.Get(keyHash) != nil {
			return common.ErrorAlreadyInitialized
		}
		if err := b.Put(keyHash, []byte(rec.VerificationHash)); err != nil {
			return fmt.Errorf("failed to save master record: %w", err)
		}
		if err := b.Put(keySalt, rec.Salt); err != nil {
			return fmt.Errorf("failed to save master record: %w", err)
		}
		return nil
	})
}

func (r *Repository) InsertCredential(ctx context.Context, service string, ciphertext []byte) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		passwords := tx.Bucket(PasswordsBucket)
		key := []byte(service)
		if passwords.Get(key) != nil {
			return fmt.Errorf("%w: service %q", common.ErrorAlreadyExists, service)
		}

		order := tx.Bucket(OrderBucket)
		seq, err := order.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to insert credential[%s]: %w", service, err)
		}
		sk := seqKey(seq)

		if err := passwords.Put(key, ciphertext); err != nil {
			return fmt.Errorf("failed to insert credential[%s]: %w", service, err)
		}
		if err := order.Put(sk, key); err != nil {
			return fmt.Errorf("failed to insert credential[%s]: %w", service, err)
		}
		if err := tx.Bucket(IndexBucket).Put(key, sk); err != nil {
			return fmt.Errorf("failed to insert credential[%s]: %w", service, err)
		}
		return nil
	})
}

func (r *Repository) UpdateCredential(ctx context.Context, service string, ciphertext []byte) (bool, error) {
	var found bool
	err := r.db.Update(func(tx *bbolt.Tx) error {
		passwords := tx.Bucket(PasswordsBucket)
		key := []byte(service)
		if passwords.Get(key) == nil {
			return nil
		}
		found = true
		return passwords.Put(key, ciphertext)
	})
	if err != nil {
		return false, fmt.Errorf("failed to update credential[%s]: %w", service, err)
	}
	return found, nil
}

func (r *Repository) DeleteCredential(ctx context.Context, service string) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(service)
		index := tx.Bucket(IndexBucket)
		if sk := index.Get(key); sk != nil {
			if err := tx.Bucket(OrderBucket).Delete(clone(sk)); err != nil {
				return err
			}
		}
		if err := index.Delete(key); err != nil {
			return err
		}
		return tx.Bucket(PasswordsBucket).Delete(key)
	})
	if err != nil {
		return fmt.Errorf("failed to delete credential[%s]: %w", service, err)
	}
	return nil
}

func (r *Repository) GetCredential(ctx context.Context, service string) ([]byte, error) {
	var value []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		// Copy since the slice is only valid during the transaction.
		value = clone(tx.Bucket(PasswordsBucket).Get([]byte(service)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get credential[%s]: %w", service, err)
	}
	return value, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]models.CredentialEntry, error) {
	result := make([]models.CredentialEntry, 0)
	err := r.db.View(func(tx *bbolt.Tx) error {
		passwords := tx.Bucket(PasswordsBucket)
		return tx.Bucket(OrderBucket).ForEach(func(_, service []byte) error {
			result = append(result, models.CredentialEntry{
				Service:    string(service),
				Ciphertext: clone(passwords.Get(service)),
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return result, nil
}

func (r *Repository) ListServices(ctx context.Context) ([]string, error) {
	result := make([]string, 0)
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(OrderBucket).ForEach(func(_, service []byte) error {
			result = append(result, string(service))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return result, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
