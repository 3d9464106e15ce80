// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring the account repository constructor and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/server/migrations"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/accounts"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories bound to
// either the pool or a transaction.
type PostgresRepositoryManager struct {
	opts []accounts.Option
}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db, m.opts...)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
// Options are forwarded to every account repository it creates.
func NewPostgresRepositoryManager(db *sql.DB, opts ...accounts.Option) (RepositoryManager, error) {
	return &PostgresRepositoryManager{opts: opts}, nil
}
