package service

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/gravix/backend/internal/auth"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/repository/sqlite"
)

// testEnv wires every service against one in-memory database, the same
// shape main assembles in production. The pure-Go sqlite driver makes this
// as cheap as a hand-written fake and exercises the real SQL.
type testEnv struct {
	auth      *AuthService
	users     *UserService
	songs     *SongService
	playlists *PlaylistService
	recommend *RecommendService
}

const testSecret = "test-secret-0123456789abcdef"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tokens, err := auth.NewTokenService(testSecret, 0, 0)
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	users := db.Users()
	songs := db.Songs()
	playlists := db.Playlists()

	return &testEnv{
		auth:      NewAuthService(users, tokens, passwords, nil, logger),
		users:     NewUserService(users, logger),
		songs:     NewSongService(songs, logger),
		playlists: NewPlaylistService(playlists, songs, users, logger),
		recommend: NewRecommendService(users, songs, playlists, logger),
	}
}

// register is a helper that creates an account through the real flow.
func register(t *testing.T, env *testEnv, username string) *model.User {
	t.Helper()
	user, _, err := env.auth.Register(context.Background(), username, username+"@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	return user
}

// upload is a helper that creates a song as the given user.
func upload(t *testing.T, env *testEnv, author *model.User, title string, genres ...string) *model.Song {
	t.Helper()
	song, err := env.songs.Create(context.Background(), identityOf(author), CreateSongInput{
		Title:       title,
		Genres:      genres,
		Duration:    "2:58",
		ReleaseYear: "2024",
		MediaURL:    "https://media.example.com/" + title,
	})
	if err != nil {
		t.Fatalf("failed to upload %s: %v", title, err)
	}
	return song
}

func identityOf(user *model.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Username: user.Username}
}
