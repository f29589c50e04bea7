package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/jsvoboda/recipe-api/internal/database"
)

// Bun interpolates query arguments client-side, so expectations match on
// loose SQL patterns rather than placeholder args.
func setupRepoMock(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewRepository(database.NewBunDB(sqlDB))
	cleanup := func() { sqlDB.Close() }
	return repo, mock, cleanup
}

func userRows(id uuid.UUID, email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "name", "password_hash",
		"is_active", "is_staff", "is_superuser",
		"created_at", "updated_at",
	}).AddRow(id, email, "Bob", "$argon2id$hash", true, false, false, now, now)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, cleanup := setupRepoMock(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(userRows(id, "bob@example.com"))

	got, err := repo.GetByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if got.ID != id || got.Email != "bob@example.com" {
		t.Errorf("GetByEmail = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, cleanup := setupRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByEmail error = %v; want %v", err, ErrNotFound)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreate_ReturnsInsertedRow(t *testing.T) {
	repo, mock, cleanup := setupRepoMock(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(userRows(id, "bob@example.com"))

	got, err := repo.Create(context.Background(), "bob@example.com", "Bob", "$argon2id$hash", false, false)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got.ID != id {
		t.Errorf("Create returned id %v; want %v", got.ID, id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, cleanup := setupRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

	_, err := repo.Create(context.Background(), "bob@example.com", "Bob", "$argon2id$hash", false, false)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("Create error = %v; want %v", err, ErrDuplicateEmail)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdateAccount_NoSuchUser(t *testing.T) {
	repo, mock, cleanup := setupRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`UPDATE "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.UpdateAccount(context.Background(), uuid.New(), "Bob", "bob@example.com", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAccount error = %v; want %v", err, ErrNotFound)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdateAccount_SingleStatement(t *testing.T) {
	repo, mock, cleanup := setupRepoMock(t)
	defer cleanup()

	id := uuid.New()

	// Name, email, and password hash all travel in one UPDATE.
	mock.ExpectQuery(`UPDATE "users" AS "u" SET (.+)password_hash(.+)WHERE \(id = '` + id.String() + `'\)`).
		WillReturnRows(userRows(id, "bob@example.com"))

	updated, err := repo.UpdateAccount(context.Background(), id, "Bob", "bob@example.com", "$argon2id$newhash")
	if err != nil {
		t.Fatalf("UpdateAccount returned error: %v", err)
	}
	if updated.ID != id {
		t.Errorf("updated ID = %s; want %s", updated.ID, id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
