package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
)

var errDB = errors.New("db error")

// newMockDB wraps a sqlmock connection in sqlx for the repositories that use
// named scanning.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

// ---------------------------------------------------------------------------
// Column definitions
// ---------------------------------------------------------------------------

var userCols = []string{
	"id", "email", "full_name", "role", "password_hash", "is_active", "created_at", "updated_at",
}

func sampleUserRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userCols).
		AddRow("user-1", "jo@acme.test", "Jo Picker", "picker", "$2a$10$hash", true, now, now)
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

func TestGetByEmail_Found(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	mock.ExpectQuery("SELECT \\* FROM users WHERE email").
		WithArgs("jo@acme.test").
		WillReturnRows(sampleUserRow())

	user, err := repo.GetByEmail(context.Background(), "jo@acme.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.ID != "user-1" || user.Role != "picker" {
		t.Errorf("user = %+v", user)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	mock.ExpectQuery("SELECT \\* FROM users WHERE email").
		WillReturnRows(sqlmock.NewRows(userCols))

	user, err := repo.GetByEmail(context.Background(), "missing@acme.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil, got %+v", user)
	}
}

func TestGetByID_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	mock.ExpectQuery("SELECT \\* FROM users WHERE id").
		WillReturnError(errDB)

	_, err := repo.GetByID(context.Background(), "user-1")
	if err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// CRUD
// ---------------------------------------------------------------------------

func TestCreateUser_AssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "new@acme.test", Role: "picker", IsActive: true}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID == "" {
		t.Error("Create did not assign an ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt != user.CreatedAt {
		t.Errorf("timestamps = %v / %v", user.CreatedAt, user.UpdatedAt)
	}
}

func TestUpdateUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	mock.ExpectExec("UPDATE users SET full_name").
		WithArgs("user-1", "Jo P.", "supervisor", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{ID: "user-1", FullName: "Jo P.", Role: "supervisor", IsActive: true}
	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	mock.ExpectExec("DELETE FROM users WHERE id").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// SetRole
// ---------------------------------------------------------------------------

func TestSetRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	mock.ExpectExec("UPDATE users SET role").
		WithArgs("user-1", "supervisor").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetRole(context.Background(), "user-1", "supervisor"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetRole_UnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	mock.ExpectExec("UPDATE users SET role").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetRole(context.Background(), "missing", "supervisor")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestListUsers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	mock.ExpectQuery("SELECT \\* FROM users ORDER BY email").
		WillReturnRows(sampleUserRow())

	users, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].Email != "jo@acme.test" {
		t.Errorf("users = %+v", users)
	}
}
