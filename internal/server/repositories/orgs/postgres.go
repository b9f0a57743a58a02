package orgs

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

const orgColumns = `o.id, o.name, o.kind, o.settings, o.created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	settings, err := encodeSettings(org.Settings)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO organizations (id, name, kind, settings)
         VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	id := uuid.NewString()
	err = r.db.QueryRowContext(ctx, query, id, org.Name, org.Kind.String(), settings).Scan(&org.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}

	org.ID = id
	return org, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations o WHERE o.id = $1`
	return scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations o WHERE o.name_lower = lower($1)`
	return scanOne(r.db.QueryRowContext(ctx, query, name))
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations o ORDER BY o.name_lower`
	return r.list(ctx, query)
}

// GetMany returns the organizations among ids that exist; unknown ids are
// skipped.
func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) ([]models.Organization, error) {
	if len(ids) == 0 {
		return []models.Organization{}, nil
	}
	query := `SELECT ` + orgColumns + ` FROM organizations o WHERE o.id IN (` +
		dbx.Placeholders(1, len(ids)) + `) ORDER BY o.name_lower`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.list(ctx, query, args...)
}

// GetByUser lists the organizations userID is a member of.
func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) ([]models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations o
		 JOIN org_members m ON m.org_id = o.id
		 WHERE m.user_id = $1
		 ORDER BY o.name_lower`
	return r.list(ctx, query, userID)
}

// Save persists the mutable fields of org: name and settings.
func (r *PostgresRepository) Save(ctx context.Context, org *models.Organization) error {
	settings, err := encodeSettings(org.Settings)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE organizations SET name = $2, settings = $3 WHERE id = $1`,
		org.ID, org.Name, settings)
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Delete removes the organization. Workspaces and memberships go with it by
// cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Organization, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Organization{}
	for rows.Next() {
		org, err := scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (*models.Organization, error) {
	var (
		org      models.Organization
		kind     string
		settings []byte
	)
	if err := row.Scan(&org.ID, &org.Name, &kind, &settings, &org.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	k, err := models.ParseOrgKind(kind)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	org.Kind = k

	if len(settings) > 0 {
		org.Settings = &models.OrgSettings{}
		if err := json.Unmarshal(settings, org.Settings); err != nil {
			return nil, fmt.Errorf("db error: decoding settings: %w", err)
		}
	}
	return &org, nil
}

func encodeSettings(s *models.OrgSettings) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	return b, nil
}

func classify(err error) error {
	if _, ok := dbx.IsUniqueViolation(err); ok {
		return common.Conflict("name", "organization name already exists", err)
	}
	return fmt.Errorf("db error: %w", err)
}
