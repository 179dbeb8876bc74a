// Package repotest holds behaviour tests every repositories.Repository
// backend must pass.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/repositories"
)

// Factory returns an empty repository. Cleanup is the factory's job.
type Factory func(t *testing.T) repositories.Repository

// Run executes the contract suite against repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, r repositories.Repository)
	}{
		{"MasterRecordAbsent", testMasterRecordAbsent},
		{"MasterRecordSavedOnce", testMasterRecordSavedOnce},
		{"InsertThenGet", testInsertThenGet},
		{"GetMissingReturnsNilNil", testGetMissing},
		{"InsertDuplicateRejected", testInsertDuplicate},
		{"UpdateReportsFound", testUpdate},
		{"DeleteIsIdempotent", testDelete},
		{"ListInInsertionOrder", testListOrder},
		{"ListEmpty", testListEmpty},
		{"ReinsertAfterDeleteGoesLast", testReinsertAfterDelete},
		{"ReturnedSlicesAreCopies", testReturnedSlicesAreCopies},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRepo(t))
		})
	}
}

func testMasterRecordAbsent(t *testing.T, r repositories.Repository) {
	rec, err := r.LoadMasterRecord(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func testMasterRecordSavedOnce(t *testing.T, r repositories.Repository) {
	ctx := context.Background()
	first := &models.MasterKeyRecord{VerificationHash: "abc123", Salt: []byte{1, 2, 3, 4}}
	second := &models.MasterKeyRecord{VerificationHash: "def456", Salt: []byte{9, 9, 9, 9}}

	require.NoError(t, r.SaveMasterRecord(ctx, first))
	err := r.SaveMasterRecord(ctx, second)
	require.ErrorIs(t, err, common.ErrorAlreadyInitialized)

	got, err := r.LoadMasterRecord(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.VerificationHash, got.VerificationHash)
	assert.Equal(t, first.Salt, got.Salt)
}

func testInsertThenGet(t *testing.T, r repositories.Repository) {
	ctx := context.Background()

	require.NoError(t, r.InsertCredential(ctx, "github", []byte{0x01, 0x02}))

	v, err := r.GetCredential(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, v)
}

func testGetMissing(t *testing.T, r repositories.Repository) {
	v, err := r.GetCredential(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func testInsertDuplicate(t *testing.T, r repositories.Repository) {
	ctx := context.Background()

	require.NoError(t, r.InsertCredential(ctx, "mail", []byte("old")))
	err := r.InsertCredential(ctx, "mail", []byte("new"))
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	v, err := r.GetCredential(ctx, "mail")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), v)

	services, err := r.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mail"}, services)
}

func testUpdate(t *testing.T, r repositories.Repository) {
	ctx := context.Background()

	found, err := r.UpdateCredential(ctx, "missing", []byte("x"))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.InsertCredential(ctx, "mail", []byte("a")))
	found, err = r.UpdateCredential(ctx, "mail", []byte("b"))
	require.NoError(t, err)
	assert.True(t, found)

	v, err := r.GetCredential(ctx, "mail")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), v)

	v, err = r.GetCredential(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func testDelete(t *testing.T, r repositories.Repository) {
	ctx := context.Background()

	require.NoError(t, r.InsertCredential(ctx, "mail", []byte("a")))
	require.NoError(t, r.InsertCredential(ctx, "bank", []byte("b")))
	require.NoError(t, r.DeleteCredential(ctx, "mail"))
	require.NoError(t, r.DeleteCredential(ctx, "mail"))
	require.NoError(t, r.DeleteCredential(ctx, "never-existed"))

	v, err := r.GetCredential(ctx, "mail")
	require.NoError(t, err)
	assert.Nil(t, v)

	services, err := r.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bank"}, services)
}

func testListOrder(t *testing.T, r repositories.Repository) {
	ctx := context.Background()
	names := []string{"zeta", "alpha", "mike", "bravo"}

	for i, n := range names {
		require.NoError(t, r.InsertCredential(ctx, n, []byte{byte(i)}))
	}

	services, err := r.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, names, services)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(names))
	for i, e := range all {
		assert.Equal(t, names[i], e.Service)
		assert.Equal(t, []byte{byte(i)}, e.Ciphertext)
	}
}

func testListEmpty(t *testing.T, r repositories.Repository) {
	ctx := context.Background()

	services, err := r.ListServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, services)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testReinsertAfterDelete(t *testing.T, r repositories.Repository) {
	ctx := context.Background()

	require.NoError(t, r.InsertCredential(ctx, "a", []byte("1")))
	require.NoError(t, r.InsertCredential(ctx, "b", []byte("2")))
	require.NoError(t, r.DeleteCredential(ctx, "a"))
	require.NoError(t, r.InsertCredential(ctx, "a", []byte("3")))

	services, err := r.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, services)
}

func testReturnedSlicesAreCopies(t *testing.T, r repositories.Repository) {
	ctx := context.Background()

	require.NoError(t, r.InsertCredential(ctx, "svc", []byte("abc")))

	v, err := r.GetCredential(ctx, "svc")
	require.NoError(t, err)
	v[0] = 'X'

	again, err := r.GetCredential(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
