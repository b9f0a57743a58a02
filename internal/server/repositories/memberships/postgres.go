package memberships

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// AddOrgMember inserts a membership row. A duplicate (org, user) pair is a
// Conflict; it is not treated as a no-op.
func (r *PostgresRepository) AddOrgMember(ctx context.Context, m models.OrgMembership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO org_members (org_id, user_id, is_owner) VALUES ($1, $2, $3)`,
		m.OrgID, m.UserID, m.IsOwner)
	return classify(err, "org")
}

func (r *PostgresRepository) RemoveOrgMember(ctx context.Context, orgID, userID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM org_members WHERE org_id = $1 AND user_id = $2`, orgID, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetOrgMember(ctx context.Context, orgID, userID string) (*models.OrgMembership, error) {
	query := `SELECT m.org_id, m.user_id, m.is_owner, o.name FROM org_members m
		 JOIN organizations o ON o.id = m.org_id
		 WHERE m.org_id = $1 AND m.user_id = $2`

	m := &models.OrgMembership{}
	err := r.db.QueryRowContext(ctx, query, orgID, userID).Scan(&m.OrgID, &m.UserID, &m.IsOwner, &m.OrgName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListOrgMembers(ctx context.Context, orgID string) ([]models.OrgMembership, error) {
	return r.listOrg(ctx, `SELECT m.org_id, m.user_id, m.is_owner, o.name FROM org_members m
		 JOIN organizations o ON o.id = m.org_id
		 WHERE m.org_id = $1
		 ORDER BY m.is_owner DESC, m.user_id`, orgID)
}

func (r *PostgresRepository) ListUserOrgs(ctx context.Context, userID string) ([]models.OrgMembership, error) {
	return r.listOrg(ctx, `SELECT m.org_id, m.user_id, m.is_owner, o.name FROM org_members m
		 JOIN organizations o ON o.id = m.org_id
		 WHERE m.user_id = $1
		 ORDER BY o.name_lower`, userID)
}

func (r *PostgresRepository) AddWorkspaceMember(ctx context.Context, m models.WorkspaceMembership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id, is_owner) VALUES ($1, $2, $3)`,
		m.WorkspaceID, m.UserID, m.IsOwner)
	return classify(err, "workspace")
}

func (r *PostgresRepository) RemoveWorkspaceMember(ctx context.Context, workspaceID, userID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`, workspaceID, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetWorkspaceMember(ctx context.Context, workspaceID, userID string) (*models.WorkspaceMembership, error) {
	query := `SELECT m.workspace_id, m.user_id, m.is_owner, w.name FROM workspace_members m
		 JOIN workspaces w ON w.id = m.workspace_id
		 WHERE m.workspace_id = $1 AND m.user_id = $2`

	m := &models.WorkspaceMembership{}
	err := r.db.QueryRowContext(ctx, query, workspaceID, userID).Scan(&m.WorkspaceID, &m.UserID, &m.IsOwner, &m.WorkspaceName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]models.WorkspaceMembership, error) {
	return r.listWorkspace(ctx, `SELECT m.workspace_id, m.user_id, m.is_owner, w.name FROM workspace_members m
		 JOIN workspaces w ON w.id = m.workspace_id
		 WHERE m.workspace_id = $1
		 ORDER BY m.is_owner DESC, m.user_id`, workspaceID)
}

func (r *PostgresRepository) ListUserWorkspaces(ctx context.Context, userID string) ([]models.WorkspaceMembership, error) {
	return r.listWorkspace(ctx, `SELECT m.workspace_id, m.user_id, m.is_owner, w.name FROM workspace_members m
		 JOIN workspaces w ON w.id = m.workspace_id
		 WHERE m.user_id = $1
		 ORDER BY w.name_lower`, userID)
}

func (r *PostgresRepository) listOrg(ctx context.Context, query string, args ...any) ([]models.OrgMembership, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.OrgMembership{}
	for rows.Next() {
		var m models.OrgMembership
		if err := rows.Scan(&m.OrgID, &m.UserID, &m.IsOwner, &m.OrgName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) listWorkspace(ctx context.Context, query string, args ...any) ([]models.WorkspaceMembership, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.WorkspaceMembership{}
	for rows.Next() {
		var m models.WorkspaceMembership
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &m.IsOwner, &m.WorkspaceName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// classify maps insert failures: a duplicate pair is a Conflict on "user",
// a missing parent row a validation failure on the parent or the user.
func classify(err error, parent string) error {
	if err == nil {
		return nil
	}
	if _, ok := dbx.IsUniqueViolation(err); ok {
		return common.Conflict("user", "user is already a member", err)
	}
	if constraint, ok := dbx.IsForeignKeyViolation(err); ok {
		field := parent
		if constraint == "org_members_user_id_fkey" || constraint == "workspace_members_user_id_fkey" {
			field = "user"
		}
		return common.Validation(field, "unknown "+field)
	}
	return fmt.Errorf("db error: %w", err)
}
