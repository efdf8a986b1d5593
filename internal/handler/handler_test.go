package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gravix/backend/internal/auth"
	"github.com/gravix/backend/internal/handler"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/repository/sqlite"
	"github.com/gravix/backend/internal/service"
)

// testEnv wires handlers over real services and an in-memory database, so
// a handler test exercises the full request path minus the router.
type testEnv struct {
	auth      *handler.AuthHandler
	users     *handler.UserHandler
	songs     *handler.SongHandler
	playlists *handler.PlaylistHandler
	recommend *handler.RecommendHandler

	authService *service.AuthService
	songService *service.SongService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tokens, err := auth.NewTokenService("test-secret-0123456789abcdef", 0, 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	users := db.Users()
	songs := db.Songs()
	playlists := db.Playlists()

	authService := service.NewAuthService(users, tokens, passwords, nil, logger)
	userService := service.NewUserService(users, logger)
	songService := service.NewSongService(songs, logger)
	playlistService := service.NewPlaylistService(playlists, songs, users, logger)
	recommendService := service.NewRecommendService(users, songs, playlists, logger)

	return &testEnv{
		auth:        handler.NewAuthHandler(authService, logger),
		users:       handler.NewUserHandler(userService, logger),
		songs:       handler.NewSongHandler(songService, logger),
		playlists:   handler.NewPlaylistHandler(playlistService, logger),
		recommend:   handler.NewRecommendHandler(recommendService, logger),
		authService: authService,
		songService: songService,
	}
}

// register creates an account through the service layer and returns it.
func register(t *testing.T, env *testEnv, username string) *model.User {
	t.Helper()
	user, _, err := env.authService.Register(context.Background(), username, username+"@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("Register(%q): %v", username, err)
	}
	return user
}

// upload creates a song for the given author through the service layer.
func upload(t *testing.T, env *testEnv, author *model.User, title string, genres ...string) *model.Song {
	t.Helper()
	song, err := env.songService.Create(context.Background(), identityOf(author), service.CreateSongInput{
		Title:       title,
		Genres:      genres,
		Duration:    "2:58",
		ReleaseYear: "2024",
		MediaURL:    "https://media.example.com/" + title,
	})
	if err != nil {
		t.Fatalf("song Create(%q): %v", title, err)
	}
	return song
}

func identityOf(user *model.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Username: user.Username}
}

// newRequest builds a request, optionally authenticated as user, with a
// JSON body when body is non-empty.
func newRequest(user *model.User, method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identityOf(user)))
	}
	return req
}

// decodeBody unmarshals a recorded JSON response into out.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}
