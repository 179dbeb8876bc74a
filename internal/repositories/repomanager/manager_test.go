package repomanager

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/repositories/bolt"
	"github.com/dmitrijs2005/gophvault/internal/repositories/memory"
	"github.com/dmitrijs2005/gophvault/internal/repositories/sqlite"
)

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		driver string
		dsn    string
		check  func(t *testing.T, v any)
	}{
		{DriverSQLite, filepath.Join(dir, "vault.db"), func(t *testing.T, v any) { assert.IsType(t, &sqlite.Repository{}, v) }},
		{"SQLite", filepath.Join(dir, "vault2.db"), func(t *testing.T, v any) { assert.IsType(t, &sqlite.Repository{}, v) }},
		{DriverBolt, filepath.Join(dir, "vault.bolt"), func(t *testing.T, v any) { assert.IsType(t, &bolt.Repository{}, v) }},
		{DriverMemory, "", func(t *testing.T, v any) { assert.IsType(t, &memory.Repository{}, v) }},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			repo, err := Open(ctx, tt.driver, tt.dsn, logging.NewNop())
			require.NoError(t, err)
			defer repo.Close()
			tt.check(t, repo)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongo", "", logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store driver "mongo"`)
}

func TestOpen_BackendError(t *testing.T) {
	_, err := Open(context.Background(), DriverPostgres, "", logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open postgres store")
}
