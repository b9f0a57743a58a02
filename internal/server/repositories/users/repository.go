package users

import (
	"context"

	"github.com/dmitrijs2005/accounts/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, userName string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}
