package workspaces

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/google/uuid"
)

const workspaceColumns = `w.id, w.org_id, w.name, w.kind, w.visibility, w.created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts ws under ws.OrgID. An existing name in the same
// organization is a Conflict on "name"; an unknown organization is a
// validation failure on "org".
func (r *PostgresRepository) Create(ctx context.Context, ws *models.Workspace) (*models.Workspace, error) {
	visibility, err := json.Marshal(ws.Visibility)
	if err != nil {
		return nil, fmt.Errorf("encoding visibility: %w", err)
	}

	query :=
		`INSERT INTO workspaces (id, org_id, name, kind, visibility)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	id := uuid.NewString()
	err = r.db.QueryRowContext(ctx, query, id, ws.OrgID, ws.Name, ws.Kind.String(), visibility).Scan(&ws.CreatedAt)
	if err != nil {
		if _, ok := dbx.IsUniqueViolation(err); ok {
			return nil, common.Conflict("name", "workspace name already exists in organization", err)
		}
		if _, ok := dbx.IsForeignKeyViolation(err); ok {
			return nil, common.Validation("org", "unknown organization")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	ws.ID = id
	return ws, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces w WHERE w.id = $1`
	return scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByName(ctx context.Context, orgID, name string) (*models.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces w WHERE w.org_id = $1 AND w.name_lower = lower($2)`
	return scanOne(r.db.QueryRowContext(ctx, query, orgID, name))
}

// LookupByName resolves a workspace from its organization's name and its own.
func (r *PostgresRepository) LookupByName(ctx context.Context, orgName, name string) (*models.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces w
		 JOIN organizations o ON o.id = w.org_id
		 WHERE o.name_lower = lower($1) AND w.name_lower = lower($2)`
	return scanOne(r.db.QueryRowContext(ctx, query, orgName, name))
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Workspace, error) {
	return r.list(ctx, `SELECT `+workspaceColumns+` FROM workspaces w ORDER BY w.name_lower`)
}

func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) ([]models.Workspace, error) {
	if len(ids) == 0 {
		return []models.Workspace{}, nil
	}
	query := `SELECT ` + workspaceColumns + ` FROM workspaces w WHERE w.id IN (` +
		dbx.Placeholders(1, len(ids)) + `) ORDER BY w.name_lower`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.list(ctx, query, args...)
}

func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id
		 WHERE m.user_id = $1
		 ORDER BY w.name_lower`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) GetByOrg(ctx context.Context, orgID string) ([]models.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces w WHERE w.org_id = $1 ORDER BY w.name_lower`
	return r.list(ctx, query, orgID)
}

// Delete removes the workspace and, by cascade, its memberships.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Workspace, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Workspace{}
	for rows.Next() {
		ws, err := scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (*models.Workspace, error) {
	var (
		ws         models.Workspace
		kind       string
		visibility []byte
	)
	if err := row.Scan(&ws.ID, &ws.OrgID, &ws.Name, &kind, &visibility, &ws.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	k, err := models.ParseWorkspaceKind(kind)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	ws.Kind = k

	if err := json.Unmarshal(visibility, &ws.Visibility); err != nil {
		return nil, fmt.Errorf("db error: decoding visibility: %w", err)
	}
	return &ws, nil
}
