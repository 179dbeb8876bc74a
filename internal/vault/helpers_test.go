package vault

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/repositories/memory"
)

const masterSecret = "correct-horse"

// spyRepo counts calls and can inject failures.
type spyRepo struct {
	*memory.Repository

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newSpyRepo() *spyRepo {
	return &spyRepo{
		Repository: memory.NewRepository(),
		calls:      make(map[string]int),
		fail:       make(map[string]error),
	}
}

func (s *spyRepo) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	return s.fail[name]
}

func (s *spyRepo) failOn(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[name] = err
}

func (s *spyRepo) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// credentialCalls is the number of calls touching credential rows.
func (s *spyRepo) credentialCalls() int {
	n := 0
	for _, name := range []string{"Insert", "Update", "Delete", "Get", "ListAll", "ListServices"} {
		n += s.count(name)
	}
	return n
}

func (s *spyRepo) LoadMasterRecord(ctx context.Context) (*models.MasterKeyRecord, error) {
	if err := s.record("LoadMaster"); err != nil {
		return nil, err
	}
	return s.Repository.LoadMasterRecord(ctx)
}

func (s *spyRepo) SaveMasterRecord(ctx context.Context, rec *models.MasterKeyRecord) error {
	if err := s.record("SaveMaster"); err != nil {
		return err
	}
	return s.Repository.SaveMasterRecord(ctx, rec)
}

func (s *spyRepo) InsertCredential(ctx context.Context, service string, ct []byte) error {
	if err := s.record("Insert"); err != nil {
		return err
	}
	return s.Repository.InsertCredential(ctx, service, ct)
}

func (s *spyRepo) UpdateCredential(ctx context.Context, service string, ct []byte) (bool, error) {
	if err := s.record("Update"); err != nil {
		return false, err
	}
	return s.Repository.UpdateCredential(ctx, service, ct)
}

func (s *spyRepo) DeleteCredential(ctx context.Context, service string) error {
	if err := s.record("Delete"); err != nil {
		return err
	}
	return s.Repository.DeleteCredential(ctx, service)
}

func (s *spyRepo) GetCredential(ctx context.Context, service string) ([]byte, error) {
	if err := s.record("Get"); err != nil {
		return nil, err
	}
	return s.Repository.GetCredential(ctx, service)
}

func (s *spyRepo) ListAll(ctx context.Context) ([]models.CredentialEntry, error) {
	if err := s.record("ListAll"); err != nil {
		return nil, err
	}
	return s.Repository.ListAll(ctx)
}

func (s *spyRepo) ListServices(ctx context.Context) ([]string, error) {
	if err := s.record("ListServices"); err != nil {
		return nil, err
	}
	return s.Repository.ListServices(ctx)
}

func (s *spyRepo) Close() error {
	if err := s.record("Close"); err != nil {
		return err
	}
	return s.Repository.Close()
}

var errDiskFull = errors.New("disk full")

func newVault(t *testing.T, repo *spyRepo) *Vault {
	t.Helper()
	v, err := New(context.Background(), repo, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func newLockedVault(t *testing.T) (*Vault, *spyRepo) {
	t.Helper()
	repo := newSpyRepo()
	v := newVault(t, repo)
	require.NoError(t, v.Setup(context.Background(), []byte(masterSecret), []byte(masterSecret)))
	return v, repo
}

func newUnlockedVault(t *testing.T) (*Vault, *spyRepo) {
	t.Helper()
	v, repo := newLockedVault(t)
	require.NoError(t, v.Unlock(context.Background(), []byte(masterSecret)))
	return v, repo
}
