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

// CreatePlaylistInput carries the caller-supplied fields for a new playlist.
type CreatePlaylistInput struct {
	Name       string   `json:"name"`
	Visibility string   `json:"visibility"`
	SongIDs    []string `json:"songs"`
}

// UpdatePlaylistInput is the partial-patch shape. A non-nil SongIDs replaces
// the whole membership list.
type UpdatePlaylistInput struct {
	Name       *string   `json:"name"`
	Visibility *string   `json:"visibility"`
	SongIDs    *[]string `json:"songs"`
}

// PlaylistService handles playlists, their membership and their likes.
type PlaylistService struct {
	playlists repository.PlaylistRepository
	songs     repository.SongRepository
	users     repository.UserRepository
	logger    *slog.Logger
}

func NewPlaylistService(playlists repository.PlaylistRepository, songs repository.SongRepository, users repository.UserRepository, logger *slog.Logger) *PlaylistService {
	return &PlaylistService{
		playlists: playlists,
		songs:     songs,
		users:     users,
		logger:    logger,
	}
}

// Create stores a new playlist. Visibility defaults to PRIVATE when absent;
// anything other than PUBLIC or PRIVATE is rejected.
func (s *PlaylistService) Create(ctx context.Context, ownerID string, in CreatePlaylistInput) (*model.Playlist, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.ValidationFailed("name", "playlist name is required")
	}

	if in.Visibility == "" {
		in.Visibility = model.VisibilityPrivate
	}
	if !model.ValidVisibility(in.Visibility) {
		return nil, apperror.ValidationFailed("visibility", "visibility must be PUBLIC or PRIVATE")
	}

	playlist := &model.Playlist{
		OwnerID:    ownerID,
		Name:       in.Name,
		Visibility: in.Visibility,
		SongIDs:    in.SongIDs,
	}
	if err := s.playlists.Create(ctx, playlist); err != nil {
		s.logger.Error("failed to create playlist",
			slog.String("name", in.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating playlist: %w", err)
	}

	s.logger.Info("playlist created",
		slog.String("id", playlist.ID),
		slog.String("owner", ownerID),
	)
	return playlist, nil
}

// My returns all of the caller's playlists, private ones included.
func (s *PlaylistService) My(ctx context.Context, ownerID string) ([]model.Playlist, error) {
	return s.playlists.ListByOwner(ctx, ownerID)
}

// MyByID returns one of the caller's playlists. Someone else's playlist,
// public or not, answers NotFound on this path.
func (s *PlaylistService) MyByID(ctx context.Context, ownerID, id string) (*model.Playlist, error) {
	playlist, err := s.playlists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if playlist.OwnerID != ownerID {
		return nil, apperror.NotFound("playlist", id)
	}
	return playlist, nil
}

// ByUser returns the PUBLIC playlists of the named user.
func (s *PlaylistService) ByUser(ctx context.Context, username string) ([]model.Playlist, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.playlists.ListPublicByOwner(ctx, user.ID)
}

// Public returns the playlist when it is PUBLIC. Private playlists answer
// NotFound so their existence does not leak.
func (s *PlaylistService) Public(ctx context.Context, id string) (*model.Playlist, error) {
	playlist, err := s.playlists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if playlist.Visibility != model.VisibilityPublic {
		return nil, apperror.NotFound("playlist", id)
	}
	return playlist, nil
}

// Update applies a partial patch, owner only. A non-nil song list replaces
// the membership wholesale, de-duplicated preserving first occurrence.
func (s *PlaylistService) Update(ctx context.Context, id, ownerID string, in UpdatePlaylistInput) (*model.Playlist, error) {
	playlist, err := s.playlists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if playlist.OwnerID != ownerID {
		return nil, apperror.NotFound("playlist", id)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "playlist name cannot be empty")
		}
		playlist.Name = name
	}
	if in.Visibility != nil {
		if !model.ValidVisibility(*in.Visibility) {
			return nil, apperror.ValidationFailed("visibility", "visibility must be PUBLIC or PRIVATE")
		}
		playlist.Visibility = *in.Visibility
	}
	if in.SongIDs != nil {
		playlist.SongIDs = *in.SongIDs
	}

	if err := s.playlists.Update(ctx, playlist); err != nil {
		return nil, fmt.Errorf("updating playlist: %w", err)
	}
	return playlist, nil
}

// Delete removes the caller's own playlist.
func (s *PlaylistService) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.playlists.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info("playlist deleted", slog.String("id", id))
	return nil
}

// AddSong appends an existing song to the caller's playlist. Adding a song
// already present is a no-op.
func (s *PlaylistService) AddSong(ctx context.Context, playlistID, ownerID, songID string) (*model.Playlist, error) {
	if strings.TrimSpace(songID) == "" {
		return nil, apperror.ValidationFailed("songId", "song ID is required")
	}
	if _, err := s.songs.GetByID(ctx, songID); err != nil {
		return nil, err
	}

	if err := s.playlists.AddSong(ctx, playlistID, ownerID, songID); err != nil {
		return nil, err
	}
	return s.playlists.GetByID(ctx, playlistID)
}

// RemoveSong drops a song reference from the caller's playlist.
func (s *PlaylistService) RemoveSong(ctx context.Context, playlistID, ownerID, songID string) (*model.Playlist, error) {
	if err := s.playlists.RemoveSong(ctx, playlistID, ownerID, songID); err != nil {
		return nil, err
	}
	return s.playlists.GetByID(ctx, playlistID)
}

// Copy clones a playlist the caller can see (PUBLIC or their own) into a
// new PRIVATE playlist they own. Stale song references are not carried over
// since the source read already resolved membership.
func (s *PlaylistService) Copy(ctx context.Context, sourceID, requesterID string) (*model.Playlist, error) {
	source, err := s.playlists.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source.Visibility != model.VisibilityPublic && source.OwnerID != requesterID {
		return nil, apperror.NotFound("playlist", sourceID)
	}

	songIDs := make([]string, len(source.Songs))
	for i, song := range source.Songs {
		songIDs[i] = song.ID
	}

	copied := &model.Playlist{
		OwnerID:    requesterID,
		Name:       source.Name,
		Visibility: model.VisibilityPrivate,
		SongIDs:    songIDs,
	}
	if err := s.playlists.Create(ctx, copied); err != nil {
		return nil, fmt.Errorf("copying playlist: %w", err)
	}

	s.logger.Info("playlist copied",
		slog.String("source", sourceID),
		slog.String("copy", copied.ID),
	)
	return copied, nil
}

// Like records the caller liking any existing playlist, private ones
// included (a private playlist can be liked by its owner). Duplicate
// transitions conflict.
func (s *PlaylistService) Like(ctx context.Context, playlistID, userID string) error {
	return s.playlists.Like(ctx, playlistID, userID)
}

// Unlike reverses Like; a like that was never recorded conflicts.
func (s *PlaylistService) Unlike(ctx context.Context, playlistID, userID string) error {
	return s.playlists.Unlike(ctx, playlistID, userID)
}
