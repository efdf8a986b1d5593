// Package server wires the application together: it owns the database
// connection, builds the service and handler layers, mounts every route on
// the chi router and runs the HTTP server with graceful shutdown.
//
// This is the composition root. main.go only reads configuration and calls
// New/Start; nothing below this package knows about routing or ports.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/gravix/backend/internal/auth"
	"github.com/gravix/backend/internal/handler"
	"github.com/gravix/backend/internal/middleware"
	sqliteRepo "github.com/gravix/backend/internal/repository/sqlite"
	"github.com/gravix/backend/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port   int
	DBPath string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	CORSAllowedOrigins []string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server is the HTTP server and the dependencies it owns. The database
// connection belongs to the server and is closed after the request drain
// during shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database, assembles repositories, services and handlers,
// and mounts all routes. Each layer receives only the layer directly below
// it: services get repository interfaces, handlers get services.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and mounts every endpoint.
//
// Middleware order: RequestID and RealIP first so the logger sees them,
// then the request logger, then Recoverer so panics are both logged and
// turned into 500s. CORS wraps the whole API.
//
// The credential endpoints (register, login, refresh) carry an extra
// per-IP rate limit; everything behind RequireAuth shares the JWT
// middleware.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.AccessTTL, s.config.RefreshTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	users := s.db.Users()
	songs := s.db.Songs()
	playlists := s.db.Playlists()

	authService := service.NewAuthService(users, tokens, passwords, github, s.logger)
	userService := service.NewUserService(users, s.logger)
	songService := service.NewSongService(songs, s.logger)
	playlistService := service.NewPlaylistService(playlists, songs, users, s.logger)
	recommendService := service.NewRecommendService(users, songs, playlists, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	songHandler := handler.NewSongHandler(songService, s.logger)
	playlistHandler := handler.NewPlaylistHandler(playlistService, s.logger)
	recommendHandler := handler.NewRecommendHandler(recommendService, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Route("/api", func(r chi.Router) {
		// Credential endpoints, rate limited per client IP.
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(20, time.Minute))

			r.Post("/users/register", authHandler.HandleRegister)
			r.Post("/users/login", authHandler.HandleLogin)
			r.Post("/refresh", authHandler.HandleRefresh)
		})

		// GitHub OAuth is optional; the routes exist only when the
		// provider is configured.
		if authService.GitHubEnabled() {
			r.Get("/auth/github", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/users", userHandler.HandleList)
			r.Get("/users/profile", userHandler.HandleProfile)
			r.Patch("/users/profile", userHandler.HandleUpdateProfile)
			r.Get("/users/info/{username}", userHandler.HandleInfo)
			r.Post("/users/{id}/follow", userHandler.HandleFollow)
			r.Delete("/users/{id}/follow", userHandler.HandleUnfollow)

			r.Post("/songs", songHandler.HandleCreate)
			r.Get("/songs/{id}", songHandler.HandleGet)
			r.Get("/songs/author/{author}", songHandler.HandleListByAuthor)
			r.Put("/songs/{id}", songHandler.HandleUpdate)
			r.Delete("/songs/{id}", songHandler.HandleDelete)
			r.Patch("/songs/{id}/like", songHandler.HandleLike)
			r.Patch("/songs/{id}/dislike", songHandler.HandleDislike)

			r.Post("/playlists", playlistHandler.HandleCreate)
			r.Get("/playlists/my", playlistHandler.HandleMy)
			r.Get("/playlists/my/{id}", playlistHandler.HandleMyByID)
			r.Get("/playlists/user/{username}", playlistHandler.HandleByUser)
			r.Get("/playlists/{id}", playlistHandler.HandlePublic)
			r.Put("/playlists/{id}", playlistHandler.HandleUpdate)
			r.Delete("/playlists/{id}", playlistHandler.HandleDelete)
			r.Put("/playlists/{id}/songs", playlistHandler.HandleAddSong)
			r.Delete("/playlists/{id}/songs/{songID}", playlistHandler.HandleRemoveSong)
			r.Post("/playlists/{id}/copy", playlistHandler.HandleCopy)
			r.Patch("/playlists/{id}/like", playlistHandler.HandleLike)
			r.Patch("/playlists/{id}/dislike", playlistHandler.HandleDislike)

			r.Get("/recommendations/artists", recommendHandler.HandleArtists)
			r.Get("/recommendations/songs/genres", recommendHandler.HandleSongsByGenres)
			r.Get("/recommendations/songs/authors", recommendHandler.HandleSongsByAuthors)
			r.Get("/recommendations/songs/popular", recommendHandler.HandlePopularSongs)
			r.Get("/recommendations/songs/random", recommendHandler.HandleRandomSongs)
			r.Get("/recommendations/playlists/genres", recommendHandler.HandlePlaylistsByGenres)
			r.Get("/recommendations/playlists/authors", recommendHandler.HandlePlaylistsByAuthors)
			r.Get("/recommendations/playlists/popular", recommendHandler.HandlePopularPlaylists)
			r.Get("/recommendations/authors/popular", recommendHandler.HandlePopularAuthors)

			r.Get("/search", recommendHandler.HandleSearch)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds before closing the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
