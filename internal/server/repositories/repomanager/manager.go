// Package repomanager vends repository implementations bound to a DB handle
// and exposes a schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/chestkeeper/chestkeeper/internal/dbx"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/chests"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/connlog"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/directories"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/states"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/users"
)

// RepositoryManager builds repositories over either a plain connection or a
// transaction (dbx.DBTX), so services can reuse the same constructors inside
// dbx.WithTx blocks.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	States(db dbx.DBTX) states.Repository
	Directories(db dbx.DBTX) directories.Repository
	Chests(db dbx.DBTX) chests.Repository
	ConnectionLog(db dbx.DBTX) connlog.Repository

	RunMigrations(ctx context.Context, db *sql.DB) error
}
