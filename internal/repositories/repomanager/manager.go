// Package repomanager opens a repositories.Repository by driver name.
package repomanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/repositories"
	"github.com/dmitrijs2005/gophvault/internal/repositories/bolt"
	"github.com/dmitrijs2005/gophvault/internal/repositories/memory"
	"github.com/dmitrijs2005/gophvault/internal/repositories/postgres"
	"github.com/dmitrijs2005/gophvault/internal/repositories/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
)

// Drivers lists every supported driver name.
var Drivers = []string{DriverSQLite, DriverPostgres, DriverBolt, DriverMemory}

// opener is the common shape of the backend constructors.
type opener func(ctx context.Context, dsn string, logger logging.Logger) (repositories.Repository, error)

var openers = map[string]opener{
	DriverSQLite: func(ctx context.Context, dsn string, logger logging.Logger) (repositories.Repository, error) {
		return sqlite.Open(ctx, dsn, logger)
	},
	DriverPostgres: func(ctx context.Context, dsn string, logger logging.Logger) (repositories.Repository, error) {
		return postgres.Open(ctx, dsn, logger)
	},
	DriverBolt: func(_ context.Context, dsn string, _ logging.Logger) (repositories.Repository, error) {
		return bolt.Open(dsn)
	},
	DriverMemory: func(context.Context, string, logging.Logger) (repositories.Repository, error) {
		return memory.NewRepository(), nil
	},
}

// Open returns the repository for driver. dsn is a file path for sqlite and
// bolt, a connection string for postgres and ignored for memory.
func Open(ctx context.Context, driver, dsn string, logger logging.Logger) (repositories.Repository, error) {
	open, ok := openers[strings.ToLower(driver)]
	if !ok {
		return nil, fmt.Errorf("unknown store driver %q (want one of %s)", driver, strings.Join(Drivers, ", "))
	}

	logger.Debug(ctx, "opening store", "driver", driver)

	repo, err := open(ctx, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	return repo, nil
}
