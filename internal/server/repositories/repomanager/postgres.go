// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/chestkeeper/chestkeeper/internal/dbx"
	"github.com/chestkeeper/chestkeeper/internal/server/migrations"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/chests"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/connlog"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/directories"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/states"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/users"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// States returns a states.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) States(db dbx.DBTX) states.Repository {
	return states.NewPostgresRepository(db)
}

// Directories returns a directories.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Directories(db dbx.DBTX) directories.Repository {
	return directories.NewPostgresRepository(db)
}

// Chests returns a chests.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Chests(db dbx.DBTX) chests.Repository {
	return chests.NewPostgresRepository(db)
}

// ConnectionLog returns a connlog.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) ConnectionLog(db dbx.DBTX) connlog.Repository {
	return connlog.NewPostgresRepository(db)
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
	return gooseUpContext(ctx, db, ".")
}
