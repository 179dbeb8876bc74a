// Package migrations embeds the goose schema migrations for the SQL
// backends and applies them.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/gophvault/internal/logging"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

// Dialect names a migration directory and its goose dialect.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) gooseDialect() (string, error) {
	switch d {
	case SQLite:
		return "sqlite3", nil
	case Postgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", d)
	}
}

// goose keeps its base FS, dialect and logger in package globals.
var gooseMu sync.Mutex

// Up applies every pending migration for dialect to db.
func Up(ctx context.Context, db *sql.DB, dialect Dialect, logger logging.Logger) error {
	name, err := dialect.gooseDialect()
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(Migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(&gooseLogger{ctx: ctx, l: logger.With("component", "migrations")})

	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, string(dialect)); err != nil {
		return fmt.Errorf("failed to apply %s migrations: %w", dialect, err)
	}
	return nil
}

// gooseLogger routes goose output through logging.Logger.
type gooseLogger struct {
	ctx context.Context
	l   logging.Logger
}

func (g *gooseLogger) Printf(format string, v ...any) {
	g.l.Debug(g.ctx, fmt.Sprintf(format, v...))
}

// Fatalf panics instead of exiting so the caller's deferred cleanup runs.
func (g *gooseLogger) Fatalf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	g.l.Error(g.ctx, msg)
	panic(msg)
}
