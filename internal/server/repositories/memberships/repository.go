package memberships

import (
	"context"

	"github.com/dmitrijs2005/accounts/internal/server/models"
)

// Repository manages the org_members and workspace_members join tables.
type Repository interface {
	AddOrgMember(ctx context.Context, m models.OrgMembership) error
	RemoveOrgMember(ctx context.Context, orgID, userID string) error
	GetOrgMember(ctx context.Context, orgID, userID string) (*models.OrgMembership, error)
	ListOrgMembers(ctx context.Context, orgID string) ([]models.OrgMembership, error)
	ListUserOrgs(ctx context.Context, userID string) ([]models.OrgMembership, error)

	AddWorkspaceMember(ctx context.Context, m models.WorkspaceMembership) error
	RemoveWorkspaceMember(ctx context.Context, workspaceID, userID string) error
	GetWorkspaceMember(ctx context.Context, workspaceID, userID string) (*models.WorkspaceMembership, error)
	ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]models.WorkspaceMembership, error)
	ListUserWorkspaces(ctx context.Context, userID string) ([]models.WorkspaceMembership, error)
}
