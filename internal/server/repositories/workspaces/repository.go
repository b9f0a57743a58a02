package workspaces

import (
	"context"

	"github.com/dmitrijs2005/accounts/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, ws *models.Workspace) (*models.Workspace, error)
	Get(ctx context.Context, id string) (*models.Workspace, error)
	GetByName(ctx context.Context, orgID, name string) (*models.Workspace, error)
	LookupByName(ctx context.Context, orgName, name string) (*models.Workspace, error)
	ListAll(ctx context.Context) ([]models.Workspace, error)
	GetMany(ctx context.Context, ids []string) ([]models.Workspace, error)
	GetByUser(ctx context.Context, userID string) ([]models.Workspace, error)
	GetByOrg(ctx context.Context, orgID string) ([]models.Workspace, error)
	Delete(ctx context.Context, id string) error
}
