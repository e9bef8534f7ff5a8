package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// OpenPostgresDB opens a Postgres-backed bun DB using the lib/pq driver. The
// caller owns the returned handle.
func OpenPostgresDB(dsn string) (*bun.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

// NewRepositoryFactoryFromPostgres opens a Postgres connection and wires the
// SQL-backed stores against it.
func NewRepositoryFactoryFromPostgres(dsn string) (*RepositoryFactory, error) {
	db, err := OpenPostgresDB(dsn)
	if err != nil {
		return nil, err
	}
	return NewRepositoryFactoryFromDB(db)
}
