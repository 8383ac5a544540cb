package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halcyonlabs/authbase/internal/db"
	"github.com/halcyonlabs/authbase/internal/model"
)

// testDB returns a migrated in-memory database torn down with the test.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Init("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	err = db.RunMigrations(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return database
}

func createTestUser(t *testing.T, database *sqlx.DB, email string) *model.User {
	t.Helper()

	hash := "$2a$10$abcdefghijklmnopqrstuv"
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: &hash,
		IsActive:     true,
		Role:         model.RoleUser,
		AuthProvider: model.AuthProviderEmail,
		CreatedAt:    time.Now(),
	}

	repo := NewUserRepository(database)
	err := repo.Create(user)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}
