package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/gravix/backend/internal/apperror"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/repository"
)

// newTestDB opens a fresh in-memory database per test. It is destroyed when
// the connection closes, so tests stay isolated from each other.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, u *UserDB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$fakehashfortesting",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE + GET TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	u := newTestDB(t).Users()

	user := &model.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "alice")

	dup := &model.User{Username: "alice", Email: "other@example.com", PasswordHash: "hash"}
	if err := u.Create(context.Background(), dup); err == nil {
		t.Fatal("Create() with duplicate username should fail")
	}
}

func TestUserGetByID(t *testing.T) {
	u := newTestDB(t).Users()
	created := createTestUser(t, u, "alice")

	found, err := u.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Username != "alice" {
		t.Errorf("Username = %q, want %q", found.Username, "alice")
	}
	if found.Following == nil || found.Subscribers == nil || found.Preferences == nil {
		t.Error("GetByID() should populate relation slices, got nil")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	_, err := u.GetByID(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByUsernameAndEmail(t *testing.T) {
	u := newTestDB(t).Users()
	created := createTestUser(t, u, "alice")

	byName, err := u.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetByUsername() ID = %q, want %q", byName.ID, created.ID)
	}

	byEmail, err := u.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if byEmail.ID != created.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", byEmail.ID, created.ID)
	}
}

// =========================================================================
// GITHUB UPSERT TESTS
// =========================================================================

func TestUserUpsertGitHub_NewAccount(t *testing.T) {
	u := newTestDB(t).Users()

	user := &model.User{
		Username:  "octo",
		Email:     "octo@example.com",
		AvatarURL: "https://avatars.example.com/octo",
		GitHubID:  12345,
	}
	if err := u.UpsertGitHub(context.Background(), user); err != nil {
		t.Fatalf("UpsertGitHub() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("UpsertGitHub() did not set user.ID")
	}
}

func TestUserUpsertGitHub_RefreshesProfile(t *testing.T) {
	u := newTestDB(t).Users()

	first := &model.User{Username: "octo", Email: "old@example.com", GitHubID: 12345}
	if err := u.UpsertGitHub(context.Background(), first); err != nil {
		t.Fatalf("first UpsertGitHub() error = %v", err)
	}

	second := &model.User{Username: "octo", Email: "new@example.com", GitHubID: 12345}
	if err := u.UpsertGitHub(context.Background(), second); err != nil {
		t.Fatalf("second UpsertGitHub() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second upsert created new account: ID %q != %q", second.ID, first.ID)
	}

	found, err := u.GetByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Email != "new@example.com" {
		t.Errorf("Email = %q, want refreshed value", found.Email)
	}
}

func TestUserUpsertGitHub_UsernameCollision(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "octo")

	user := &model.User{Username: "octo", Email: "gh@example.com", GitHubID: 999}
	if err := u.UpsertGitHub(context.Background(), user); err != nil {
		t.Fatalf("UpsertGitHub() error = %v", err)
	}
	if user.Username != "octo-1" {
		t.Errorf("Username = %q, want %q", user.Username, "octo-1")
	}
}

// =========================================================================
// PROFILE UPDATE TESTS
// =========================================================================

func TestUserUpdateProfile_PartialPatch(t *testing.T) {
	u := newTestDB(t).Users()
	created := createTestUser(t, u, "alice")

	avatar := "https://cdn.example.com/alice.png"
	err := u.UpdateProfile(context.Background(), created.ID, repository.UserPatch{AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	found, err := u.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.AvatarURL != avatar {
		t.Errorf("AvatarURL = %q, want %q", found.AvatarURL, avatar)
	}
	if found.Email != "alice@example.com" {
		t.Errorf("Email = %q, should be untouched by a nil patch field", found.Email)
	}
}

func TestUserUpdateProfile_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	email := "x@example.com"
	err := u.UpdateProfile(context.Background(), "no-such-id", repository.UserPatch{Email: &email})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProfile() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// FOLLOW GRAPH TESTS
// =========================================================================

func TestFollow_RoundTrip(t *testing.T) {
	u := newTestDB(t).Users()
	alice := createTestUser(t, u, "alice")
	bob := createTestUser(t, u, "bob")

	if err := u.Follow(context.Background(), alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	// Both derived views come from the same relation.
	gotAlice, _ := u.GetByID(context.Background(), alice.ID)
	gotBob, _ := u.GetByID(context.Background(), bob.ID)

	if len(gotAlice.Following) != 1 || gotAlice.Following[0] != bob.ID {
		t.Errorf("alice.Following = %v, want [%s]", gotAlice.Following, bob.ID)
	}
	if len(gotBob.Subscribers) != 1 || gotBob.Subscribers[0] != alice.ID {
		t.Errorf("bob.Subscribers = %v, want [%s]", gotBob.Subscribers, alice.ID)
	}

	if err := u.Unfollow(context.Background(), alice.ID, bob.ID); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}

	gotAlice, _ = u.GetByID(context.Background(), alice.ID)
	gotBob, _ = u.GetByID(context.Background(), bob.ID)
	if len(gotAlice.Following) != 0 || len(gotBob.Subscribers) != 0 {
		t.Error("Unfollow() should clear both views of the relation")
	}
}

func TestFollow_Duplicate(t *testing.T) {
	u := newTestDB(t).Users()
	alice := createTestUser(t, u, "alice")
	bob := createTestUser(t, u, "bob")

	if err := u.Follow(context.Background(), alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if err := u.Follow(context.Background(), alice.ID, bob.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate Follow() error = %v, want ErrConflict", err)
	}
}

func TestUnfollow_NotFollowing(t *testing.T) {
	u := newTestDB(t).Users()
	alice := createTestUser(t, u, "alice")
	bob := createTestUser(t, u, "bob")

	if err := u.Unfollow(context.Background(), alice.ID, bob.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Unfollow() without a follow error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// LIST / SEARCH / POPULARITY TESTS
// =========================================================================

func TestListOthers(t *testing.T) {
	u := newTestDB(t).Users()
	alice := createTestUser(t, u, "alice")
	createTestUser(t, u, "bob")
	createTestUser(t, u, "carol")

	others, err := u.ListOthers(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListOthers() error = %v", err)
	}
	if len(others) != 2 {
		t.Fatalf("ListOthers() returned %d users, want 2", len(others))
	}
	for _, other := range others {
		if other.ID == alice.ID {
			t.Error("ListOthers() should exclude the requester")
		}
	}
}

func TestSearchByUsernamePrefix(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "alice")
	createTestUser(t, u, "albert")
	createTestUser(t, u, "bob")

	found, err := u.SearchByUsernamePrefix(context.Background(), "AL")
	if err != nil {
		t.Fatalf("SearchByUsernamePrefix() error = %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("search for %q returned %d users, want 2 (case-insensitive prefix)", "AL", len(found))
	}
}

func TestSearchByUsernamePrefix_EscapesWildcards(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "percent")

	// A literal % in the query must not match everything.
	found, err := u.SearchByUsernamePrefix(context.Background(), "%")
	if err != nil {
		t.Fatalf("SearchByUsernamePrefix() error = %v", err)
	}
	if len(found) != 0 {
		t.Errorf("search for literal %% returned %d users, want 0", len(found))
	}
}

func TestPopularBySubscribers(t *testing.T) {
	u := newTestDB(t).Users()
	requester := createTestUser(t, u, "requester")
	star := createTestUser(t, u, "star")
	mid := createTestUser(t, u, "mid")
	createTestUser(t, u, "nobody")

	fans := []*model.User{
		createTestUser(t, u, "fan1"),
		createTestUser(t, u, "fan2"),
	}
	for _, fan := range fans {
		if err := u.Follow(context.Background(), fan.ID, star.ID); err != nil {
			t.Fatalf("Follow() error = %v", err)
		}
	}
	if err := u.Follow(context.Background(), fans[0].ID, mid.ID); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	// Make the requester popular too; they must still be excluded.
	if err := u.Follow(context.Background(), fans[0].ID, requester.ID); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	popular, err := u.PopularBySubscribers(context.Background(), requester.ID, 10)
	if err != nil {
		t.Fatalf("PopularBySubscribers() error = %v", err)
	}

	if popular[0].ID != star.ID {
		t.Errorf("popular[0] = %q, want %q", popular[0].Username, "star")
	}
	if popular[1].ID != mid.ID {
		t.Errorf("popular[1] = %q, want %q", popular[1].Username, "mid")
	}
	for _, user := range popular {
		if user.ID == requester.ID {
			t.Error("PopularBySubscribers() should exclude the requester")
		}
	}
}
