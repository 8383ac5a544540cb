package repository

import (
	"errors"
	"testing"
)

func TestUserCreateAndLookup(t *testing.T) {
	database := testDB(t)
	repo := NewUserRepository(database)

	user := createTestUser(t, database, "alice@example.com")

	byID, err := repo.ByID(user.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Errorf("expected email alice@example.com, got %s", byID.Email)
	}

	byEmail, err := repo.ByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("ByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("expected id %s, got %s", user.ID, byEmail.ID)
	}
}

func TestUserNotFound(t *testing.T) {
	database := testDB(t)
	repo := NewUserRepository(database)

	_, err := repo.ByEmail("nobody@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	database := testDB(t)
	repo := NewUserRepository(database)

	first := createTestUser(t, database, "alice@example.com")

	dup := *first
	dup.ID = "different-id"
	err := repo.Create(&dup)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserUpdate(t *testing.T) {
	database := testDB(t)
	repo := NewUserRepository(database)

	user := createTestUser(t, database, "alice@example.com")

	name := "Alice"
	user.FirstName = &name
	user.IsVerified = true
	err := repo.Update(user)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	found, err := repo.ByID(user.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if found.FirstName == nil || *found.FirstName != "Alice" {
		t.Error("expected first name to be updated")
	}
	if !found.IsVerified {
		t.Error("expected user to be verified")
	}
	if found.UpdatedAt == nil {
		t.Error("expected updated_at to be set")
	}
}

func TestUserDeactivateIsSoft(t *testing.T) {
	database := testDB(t)
	repo := NewUserRepository(database)

	user := createTestUser(t, database, "alice@example.com")

	err := repo.Deactivate(user.ID)
	if err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	found, err := repo.ByID(user.ID)
	if err != nil {
		t.Fatalf("ByID after deactivate failed: %v", err)
	}
	if found.IsActive {
		t.Error("expected user to be inactive")
	}
}

func TestUserList(t *testing.T) {
	database := testDB(t)
	repo := NewUserRepository(database)

	createTestUser(t, database, "a@example.com")
	createTestUser(t, database, "b@example.com")
	createTestUser(t, database, "c@example.com")

	users, err := repo.List(0, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	rest, err := repo.List(2, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("expected 1 user on second page, got %d", len(rest))
	}
}
