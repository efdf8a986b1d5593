package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gravix/backend/internal/apperror"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/repository"
)

// UserService handles profiles and the follow graph.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// Profile returns the caller's own account with following, subscribers and
// preferences populated.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Info returns another user's public profile by username.
func (s *UserService) Info(ctx context.Context, username string) (model.PublicProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.PublicProfile{}, apperror.ValidationFailed("username", "username is required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return model.PublicProfile{}, err
	}
	return user.Public(), nil
}

// List returns everyone except the requester, as public profiles.
func (s *UserService) List(ctx context.Context, requesterID string) ([]model.PublicProfile, error) {
	users, err := s.users.ListOthers(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	profiles := make([]model.PublicProfile, len(users))
	for i, user := range users {
		profiles[i] = user.Public()
	}
	return profiles, nil
}

// Follow records the requester following targetID. The target must exist.
// Following yourself is allowed; following someone twice conflicts.
func (s *UserService) Follow(ctx context.Context, followerID, targetID string) error {
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}

	if err := s.users.Follow(ctx, followerID, targetID); err != nil {
		return err
	}

	s.logger.Info("user followed",
		slog.String("follower", followerID),
		slog.String("target", targetID),
	)
	return nil
}

// Unfollow removes the relation. Unfollowing someone not followed conflicts.
func (s *UserService) Unfollow(ctx context.Context, followerID, targetID string) error {
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}

	if err := s.users.Unfollow(ctx, followerID, targetID); err != nil {
		return err
	}

	s.logger.Info("user unfollowed",
		slog.String("follower", followerID),
		slog.String("target", targetID),
	)
	return nil
}

// UpdateProfile applies a partial patch to the caller's own account and
// returns the refreshed profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch repository.UserPatch) (*model.User, error) {
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email == "" {
			return nil, apperror.ValidationFailed("email", "email cannot be empty")
		}
		patch.Email = &email
	}

	if err := s.users.UpdateProfile(ctx, userID, patch); err != nil {
		return nil, err
	}

	return s.users.GetByID(ctx, userID)
}
