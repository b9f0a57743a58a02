package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/memberships"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/orgs"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/users"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/workspaces"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Orgs(db dbx.DBTX) orgs.Repository
	Workspaces(db dbx.DBTX) workspaces.Repository
	Memberships(db dbx.DBTX) memberships.Repository
}
