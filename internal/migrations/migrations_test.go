package migrations

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/gophvault/internal/logging"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var got string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&got)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return got == name
}

func TestUp_SQLiteCreatesTables(t *testing.T) {
	db := openSQLite(t)

	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	require.NoError(t, Up(context.Background(), db, SQLite, log))

	assert.True(t, tableExists(t, db, "master_key"))
	assert.True(t, tableExists(t, db, "passwords"))
	assert.Contains(t, buf.String(), "component=migrations")
}

func TestUp_Idempotent(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, Up(ctx, db, SQLite, logging.NewNop()))
	require.NoError(t, Up(ctx, db, SQLite, logging.NewNop()))
}

func TestUp_MasterKeyIsSingleRow(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, Up(context.Background(), db, SQLite, logging.NewNop()))

	_, err := db.Exec(`INSERT INTO master_key (id, hash, salt) VALUES (1, 'h', x'00')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO master_key (id, hash, salt) VALUES (2, 'h', x'00')`)
	assert.Error(t, err)
}

func TestUp_UnknownDialect(t *testing.T) {
	db := openSQLite(t)
	err := Up(context.Background(), db, Dialect("oracle"), logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported migration dialect")
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, dir := range []string{"sqlite", "postgres"} {
		entries, err := Migrations.ReadDir(dir)
		require.NoError(t, err)
		assert.NotEmpty(t, entries, dir)
	}
}
