package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"capturehub/backend/internal/db"
	"capturehub/backend/internal/membership/domain"
)

// PostgresRepository implements Repository on Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const membershipColumns = `id, user_id, org_id, role, is_personal_org, joined_at`

// GetMembershipByUserAndOrg returns the membership for the given user and org, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND org_id = $2`, userID, orgID)
	return scanOptional(row)
}

// GetPersonalMembership returns the user's personal-org membership, or nil if not found.
func (r *PostgresRepository) GetPersonalMembership(ctx context.Context, userID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND is_personal_org`, userID)
	return scanOptional(row)
}

// ListMembershipsByUser returns all memberships for the given user. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 ORDER BY joined_at`, userID)
}

// ListMembershipsByOrg returns all memberships for the given org. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE org_id = $1 ORDER BY joined_at`, orgID)
}

// CreateMembership persists the membership. The membership must have ID set.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (`+membershipColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.OrgID, string(m.Role), m.IsPersonalOrg, m.JoinedAt)
	if db.IsUniqueViolation(err) {
		return domain.ErrAlreadyMember
	}
	return err
}

// CountPrivilegedByOrg returns the number of owner or admin memberships in the org.
func (r *PostgresRepository) CountPrivilegedByOrg(ctx context.Context, orgID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE org_id = $1 AND role IN ('owner', 'admin')`, orgID).Scan(&n)
	return n, err
}

// DeleteMembership runs guard and the delete in one transaction. The org's privileged rows and the
// target row are locked FOR UPDATE first, so two concurrent removals of privileged members
// serialize and the second one sees the first one's delete.
func (r *PostgresRepository) DeleteMembership(ctx context.Context, userID, orgID string, guard domain.DeleteGuard) (*domain.Membership, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM memberships WHERE org_id = $1 AND role IN ('owner', 'admin') ORDER BY id FOR UPDATE`, orgID)
	if err != nil {
		return nil, fmt.Errorf("lock privileged: %w", err)
	}
	var privileged int64
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		privileged++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	target, err := scanOptional(tx.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND org_id = $2 FOR UPDATE`, userID, orgID))
	if err != nil {
		return nil, fmt.Errorf("lock target: %w", err)
	}
	if err := guard(target, privileged); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.ErrNotMember
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, target.ID); err != nil {
		return nil, fmt.Errorf("delete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return target, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMembership(s scanner) (*domain.Membership, error) {
	var (
		m    domain.Membership
		role string
	)
	if err := s.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &m.IsPersonalOrg, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}

func scanOptional(s scanner) (*domain.Membership, error) {
	m, err := scanMembership(s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
