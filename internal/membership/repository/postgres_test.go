package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"capturehub/backend/internal/membership/domain"
)

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

var membershipCols = []string{"id", "user_id", "org_id", "role", "is_personal_org", "joined_at"}

func TestPostgresRepository_GetMembershipByUserAndOrg_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM memberships WHERE user_id = \$1 AND org_id = \$2`).
		WithArgs("u1", "o1").
		WillReturnRows(sqlmock.NewRows(membershipCols))

	m, err := repo.GetMembershipByUserAndOrg(context.Background(), "u1", "o1")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if m != nil {
		t.Errorf("m = %+v, want nil", m)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresRepository_CreateMembership_Duplicate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO memberships`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.CreateMembership(context.Background(), &domain.Membership{ID: "m1", UserID: "u1", OrgID: "o1", Role: domain.RoleMember})
	if !errors.Is(err, domain.ErrAlreadyMember) {
		t.Errorf("err = %v, want ErrAlreadyMember", err)
	}
}

func TestPostgresRepository_DeleteMembership_Commits(t *testing.T) {
	repo, mock := newMock(t)
	joined := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM memberships WHERE org_id = \$1 AND role IN .* FOR UPDATE`).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1").AddRow("m2"))
	mock.ExpectQuery(`SELECT .* FROM memberships WHERE user_id = \$1 AND org_id = \$2 FOR UPDATE`).
		WithArgs("u1", "o1").
		WillReturnRows(sqlmock.NewRows(membershipCols).AddRow("m1", "u1", "o1", "admin", false, joined))
	mock.ExpectExec(`DELETE FROM memberships WHERE id = \$1`).
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m, err := repo.DeleteMembership(context.Background(), "u1", "o1", domain.LeaveGuard)
	if err != nil {
		t.Fatalf("DeleteMembership: %v", err)
	}
	if m.ID != "m1" || m.Role != domain.RoleAdmin {
		t.Errorf("deleted = %+v", m)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresRepository_DeleteMembership_GuardRollsBack(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM memberships WHERE org_id = \$1 .* FOR UPDATE`).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1"))
	mock.ExpectQuery(`SELECT .* FROM memberships WHERE user_id = \$1 AND org_id = \$2 FOR UPDATE`).
		WithArgs("u1", "o1").
		WillReturnRows(sqlmock.NewRows(membershipCols).AddRow("m1", "u1", "o1", "owner", false, time.Now()))
	mock.ExpectRollback()

	_, err := repo.DeleteMembership(context.Background(), "u1", "o1", domain.LeaveGuard)
	if !errors.Is(err, domain.ErrLastAdmin) {
		t.Fatalf("err = %v, want ErrLastAdmin", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresRepository_CountPrivilegedByOrg(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM memberships WHERE org_id = \$1`).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	n, err := repo.CountPrivilegedByOrg(context.Background(), "o1")
	if err != nil || n != 3 {
		t.Errorf("CountPrivilegedByOrg = %d, %v; want 3, nil", n, err)
	}
}
