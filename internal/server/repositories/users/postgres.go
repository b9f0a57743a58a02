package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/google/uuid"
)

const userColumns = `id, username, fullname, email, bio, company, is_active, is_local, is_closed, password_hash, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user with a fresh id. A username already taken under
// case-insensitive comparison yields a Conflict on "username".
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, username, fullname, email, bio, company, is_active, is_local, is_closed, password_hash)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at
		 `

	id := uuid.NewString()
	err := r.db.QueryRowContext(ctx, query,
		id, user.UserName, user.FullName, user.Email, user.Bio, user.Company,
		user.IsActive, user.IsLocal, user.IsClosed, user.PasswordHash).Scan(&user.CreatedAt)

	if err != nil {
		if _, ok := dbx.IsUniqueViolation(err); ok {
			return nil, common.Conflict("username", "username already exists", err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.ID = id
	return user, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, userName string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username_lower = lower($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userName))
}

// Delete removes the user row; memberships go with it by cascade.
// Deleting an absent user is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.UserName, &user.FullName, &user.Email, &user.Bio, &user.Company,
		&user.IsActive, &user.IsLocal, &user.IsClosed, &user.PasswordHash, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
