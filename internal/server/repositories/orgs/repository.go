package orgs

import (
	"context"

	"github.com/dmitrijs2005/accounts/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, org *models.Organization) (*models.Organization, error)
	Get(ctx context.Context, id string) (*models.Organization, error)
	GetByName(ctx context.Context, name string) (*models.Organization, error)
	ListAll(ctx context.Context) ([]models.Organization, error)
	GetMany(ctx context.Context, ids []string) ([]models.Organization, error)
	GetByUser(ctx context.Context, userID string) ([]models.Organization, error)
	Save(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id string) error
}
