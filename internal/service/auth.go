// Package service contains the business logic layer of the application.
//
// Handlers parse HTTP and write responses, services validate and enforce
// the rules, repositories talk to the database. Services accept primitives
// and return domain errors from the apperror package; the handler layer
// translates those to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gravix/backend/internal/apperror"
	"github.com/gravix/backend/internal/auth"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/repository"
)

// MinPasswordLength is the registration floor. There is no upper bound
// below bcrypt's 72-byte input limit, which PasswordService enforces.
const MinPasswordLength = 6

// TokenPair is what a successful register/login hands back.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthService handles registration, credential login, token refresh and
// the optional GitHub social login.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	github    *auth.GitHubProvider // nil when social login is not configured
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, passwords *auth.PasswordService, github *auth.GitHubProvider, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		github:    github,
		logger:    logger,
	}
}

// Register creates an account and issues a token pair. Username and email
// must be unused; both checks run here so the caller gets the precise
// Conflict message rather than a raw UNIQUE violation.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, TokenPair, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, TokenPair{}, apperror.ValidationFailed("username", "username is required")
	}
	if email == "" {
		return nil, TokenPair{}, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, TokenPair{}, apperror.ValidationFailed("password", "password is required")
	}
	if len(password) < MinPasswordLength {
		return nil, TokenPair{}, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	if err := s.checkUnused(ctx, username, email); err != nil {
		return nil, TokenPair{}, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, TokenPair{}, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, TokenPair{}, fmt.Errorf("registering user: %w", err)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.logger.Info("user registered",
		slog.String("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, pair, nil
}

// Login verifies credentials. A wrong username and a wrong password give
// the same answer so the endpoint cannot be used to probe for accounts.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, TokenPair{}, apperror.Unauthorized("invalid username or password")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, TokenPair{}, apperror.Unauthorized("invalid username or password")
		}
		return nil, TokenPair{}, fmt.Errorf("logging in: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, TokenPair{}, apperror.Unauthorized("invalid username or password")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.logger.Info("user logged in", slog.String("id", user.ID))
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", apperror.ValidationFailed("refreshToken", "refresh token is required")
	}

	identity, err := s.tokens.Validate(refreshToken)
	if err != nil {
		return "", apperror.Unauthorized("invalid refresh token")
	}

	// The account can disappear between issuing and refreshing.
	if _, err := s.users.GetByID(ctx, identity.UserID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthorized("invalid refresh token")
		}
		return "", fmt.Errorf("refreshing token: %w", err)
	}

	access, err := s.tokens.GenerateAccess(identity)
	if err != nil {
		return "", fmt.Errorf("refreshing token: %w", err)
	}
	return access, nil
}

// GitHubEnabled reports whether social login was configured at startup.
func (s *AuthService) GitHubEnabled() bool {
	return s.github != nil
}

// GitHubAuthURL returns the provider consent page URL for the given state.
func (s *AuthService) GitHubAuthURL(state string) string {
	return s.github.AuthURL(state)
}

// GitHubLogin exchanges the OAuth callback code, upserts the account keyed
// by its GitHub id and issues the usual token pair.
func (s *AuthService) GitHubLogin(ctx context.Context, code string) (*model.User, TokenPair, error) {
	if s.github == nil {
		return nil, TokenPair{}, apperror.Unauthorized("github login is not configured")
	}

	ghUser, err := s.github.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("github exchange failed", slog.String("error", err.Error()))
		return nil, TokenPair{}, apperror.Unauthorized("github authentication failed")
	}

	user := &model.User{
		Username:  ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
		GitHubID:  ghUser.ID,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, TokenPair{}, fmt.Errorf("upserting github user: %w", err)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.logger.Info("github login",
		slog.String("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, pair, nil
}

func (s *AuthService) checkUnused(ctx context.Context, username, email string) error {
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return apperror.Conflict("username already taken")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("checking username: %w", err)
	}

	_, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		return apperror.Conflict("email already in use")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("checking email: %w", err)
	}
	return nil
}

func (s *AuthService) issuePair(user *model.User) (TokenPair, error) {
	identity := auth.Identity{UserID: user.ID, Username: user.Username}

	access, err := s.tokens.GenerateAccess(identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefresh(identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issuing refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
