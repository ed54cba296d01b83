package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"capturehub/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, current_organization_id, created_at, expires_at, last_active_at`

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.CurrentOrgID, s.CreatedAt, s.ExpiresAt, s.LastActiveAt)
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByUser returns all sessions for the user, most recently active first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE user_id = $1 ORDER BY last_active_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateLastActive slides the session's expiry. The WHERE clause makes the refresh a single
// conditional write: expired sessions are never extended and a concurrent refresh that already
// moved last_active_at past staleBefore turns this one into a no-op.
func (r *PostgresRepository) UpdateLastActive(ctx context.Context, id string, now, expiresAt, staleBefore time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET last_active_at = $2, expires_at = $3
		 WHERE id = $1 AND expires_at > $2 AND last_active_at < $4`,
		id, now, expiresAt, staleBefore)
	return affected(res, err)
}

// UpdateCurrentOrganization sets the organization the session is viewing.
func (r *PostgresRepository) UpdateCurrentOrganization(ctx context.Context, id, orgID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET current_organization_id = $2 WHERE id = $1`, id, orgID)
	return affected(res, err)
}

// MoveOrganization repoints the user's sessions from one organization to another.
func (r *PostgresRepository) MoveOrganization(ctx context.Context, userID, fromOrgID, toOrgID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET current_organization_id = $3 WHERE user_id = $1 AND current_organization_id = $2`,
		userID, fromOrgID, toOrgID)
	return rowsAffected(res, err)
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return err
}

// DeleteByUserID removes every session of the user.
func (r *PostgresRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
	return rowsAffected(res, err)
}

// DeleteExpired removes sessions with expires_at <= now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, now)
	return rowsAffected(res, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*domain.Session, error) {
	var sess domain.Session
	if err := s.Scan(&sess.ID, &sess.UserID, &sess.CurrentOrgID, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastActiveAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func affected(res sql.Result, err error) (bool, error) {
	n, err := rowsAffected(res, err)
	return n > 0, err
}
