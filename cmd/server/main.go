// Package main is the entry point for the gravix API server.
//
// Its only job is reading configuration and starting the server; all logic
// lives under internal/.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gravix/backend/internal/server"
)

func main() {
	// Best effort: a missing .env file is fine, real env vars win anyway.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig(logger)
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadConfig assembles server.Config from environment variables, applying
// defaults where a variable is unset.
func loadConfig(logger *slog.Logger) (server.Config, error) {
	cfg := server.Config{
		Port:   8080,
		DBPath: "data/gravix.db",
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return cfg, fmt.Errorf("creating database directory: %w", err)
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required (try: openssl rand -hex 32)")
	}

	var err error
	if cfg.AccessTTL, err = parseTTL("ACCESS_TOKEN_TTL"); err != nil {
		return cfg, err
	}
	if cfg.RefreshTTL, err = parseTTL("REFRESH_TOKEN_TTL"); err != nil {
		return cfg, err
	}

	cfg.CORSAllowedOrigins = splitOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	cfg.GitHubClientID = os.Getenv("GITHUB_CLIENT_ID")
	cfg.GitHubClientSecret = os.Getenv("GITHUB_CLIENT_SECRET")
	cfg.GitHubCallbackURL = os.Getenv("GITHUB_CALLBACK_URL")
	if cfg.GitHubClientID != "" && cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}
	if cfg.GitHubClientID == "" {
		logger.Info("GITHUB_CLIENT_ID not set, social login disabled")
	}

	return cfg, nil
}

// parseTTL reads a duration env var ("15m", "168h"). Unset means zero,
// which lets the token service apply its defaults.
func parseTTL(key string) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// splitOrigins parses a comma-separated origin list. Empty input falls back
// to the local dev frontend.
func splitOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
