package repository

import (
	"context"
	"database/sql"
	"errors"

	"capturehub/backend/internal/organization/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrganizationByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	var (
		o      domain.Org
		status string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_at FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Status = domain.OrgStatus(status)
	return &o, nil
}

// ListOrganizationsByIDs returns the organizations whose id is in ids. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListOrganizationsByIDs(ctx context.Context, ids []string) ([]*domain.Org, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, status, created_at FROM organizations WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Org
	for rows.Next() {
		var (
			o      domain.Org
			status string
		)
		if err := rows.Scan(&o.ID, &o.Name, &status, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = domain.OrgStatus(status)
		out = append(out, &o)
	}
	return out, rows.Err()
}

// CreateOrganization persists the organization to the database. The organization must have ID set.
func (r *PostgresRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, status, created_at) VALUES ($1, $2, $3, $4)`,
		o.ID, o.Name, string(o.Status), o.CreatedAt)
	return err
}
