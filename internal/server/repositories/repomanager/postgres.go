package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/migrations"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/memberships"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/orgs"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/users"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/workspaces"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// gooseUpContext is swapped in tests.
var gooseUpContext = goose.UpContext

type PostgresRepositoryManager struct {
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Orgs(db dbx.DBTX) orgs.Repository {
	return orgs.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Workspaces(db dbx.DBTX) workspaces.Repository {
	return workspaces.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Memberships(db dbx.DBTX) memberships.Repository {
	return memberships.NewPostgresRepository(db)
}

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

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
