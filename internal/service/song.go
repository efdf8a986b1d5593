package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gravix/backend/internal/apperror"
	"github.com/gravix/backend/internal/auth"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/repository"
)

// CreateSongInput carries the caller-supplied fields for a new song.
// Media and image URLs point at an external object store; this service
// never touches file contents.
type CreateSongInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Lyrics      string   `json:"lyrics"`
	ImageURL    string   `json:"image"`
	MediaURL    string   `json:"mediaUrl"`
	Genres      []string `json:"genres"`
	Duration    string   `json:"duration"`
	ReleaseYear string   `json:"releaseYear"`
}

// UpdateSongInput is the partial-patch shape. Nil fields stay untouched.
type UpdateSongInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Lyrics      *string   `json:"lyrics"`
	ImageURL    *string   `json:"image"`
	MediaURL    *string   `json:"mediaUrl"`
	Genres      *[]string `json:"genres"`
	Duration    *string   `json:"duration"`
	ReleaseYear *string   `json:"releaseYear"`
}

// SongService handles the song catalog and the like/preference coupling.
type SongService struct {
	songs  repository.SongRepository
	logger *slog.Logger
}

func NewSongService(songs repository.SongRepository, logger *slog.Logger) *SongService {
	return &SongService{songs: songs, logger: logger}
}

// Create validates and stores a new song. Author identity comes from the
// access token, never from the request body.
func (s *SongService) Create(ctx context.Context, identity auth.Identity, in CreateSongInput) (*model.Song, error) {
	in.Title = strings.TrimSpace(in.Title)

	if in.Title == "" {
		return nil, apperror.ValidationFailed("title", "song title is required")
	}
	genres, err := cleanGenres(in.Genres)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Duration) == "" {
		return nil, apperror.ValidationFailed("duration", "song duration is required")
	}
	if strings.TrimSpace(in.ReleaseYear) == "" {
		return nil, apperror.ValidationFailed("releaseYear", "release year is required")
	}
	if strings.TrimSpace(in.MediaURL) == "" {
		return nil, apperror.ValidationFailed("mediaUrl", "media URL is required")
	}

	song := &model.Song{
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Lyrics:      in.Lyrics,
		ImageURL:    in.ImageURL,
		MediaURL:    in.MediaURL,
		Genres:      genres,
		Author:      identity.Username,
		AuthorID:    identity.UserID,
		Duration:    in.Duration,
		ReleaseYear: in.ReleaseYear,
	}
	if err := s.songs.Create(ctx, song); err != nil {
		s.logger.Error("failed to create song",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating song: %w", err)
	}

	s.logger.Info("song created",
		slog.String("id", song.ID),
		slog.String("author", song.Author),
	)
	return song, nil
}

// Get retrieves a song by id.
func (s *SongService) Get(ctx context.Context, id string) (*model.Song, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "song ID is required")
	}
	return s.songs.GetByID(ctx, id)
}

// ListByAuthor returns all songs uploaded under the given username.
func (s *SongService) ListByAuthor(ctx context.Context, author string) ([]model.Song, error) {
	if strings.TrimSpace(author) == "" {
		return nil, apperror.ValidationFailed("author", "author is required")
	}
	return s.songs.ListByAuthor(ctx, author)
}

// Update applies a partial patch. A song owned by someone else reads the
// same as a missing one: both answer NotFound.
func (s *SongService) Update(ctx context.Context, id, ownerID string, in UpdateSongInput) (*model.Song, error) {
	song, err := s.songs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if song.AuthorID != ownerID {
		return nil, apperror.NotFound("song", id)
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "song title cannot be empty")
		}
		song.Title = title
	}
	if in.Description != nil {
		song.Description = strings.TrimSpace(*in.Description)
	}
	if in.Lyrics != nil {
		song.Lyrics = *in.Lyrics
	}
	if in.ImageURL != nil {
		song.ImageURL = *in.ImageURL
	}
	if in.MediaURL != nil {
		if strings.TrimSpace(*in.MediaURL) == "" {
			return nil, apperror.ValidationFailed("mediaUrl", "media URL cannot be empty")
		}
		song.MediaURL = *in.MediaURL
	}
	if in.Genres != nil {
		genres, err := cleanGenres(*in.Genres)
		if err != nil {
			return nil, err
		}
		song.Genres = genres
	}
	if in.Duration != nil {
		song.Duration = *in.Duration
	}
	if in.ReleaseYear != nil {
		song.ReleaseYear = *in.ReleaseYear
	}

	if err := s.songs.Update(ctx, song); err != nil {
		return nil, fmt.Errorf("updating song: %w", err)
	}
	return song, nil
}

// Delete removes the caller's own song. References in playlists stay and
// are skipped when those playlists are read.
func (s *SongService) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.songs.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info("song deleted", slog.String("id", id))
	return nil
}

// Like records the caller liking the song and grows their genre affinity.
// Liking your own song is allowed; liking twice conflicts.
func (s *SongService) Like(ctx context.Context, songID, userID string) error {
	return s.songs.Like(ctx, songID, userID)
}

// Unlike reverses Like, shrinking the affinity by one occurrence per genre.
func (s *SongService) Unlike(ctx context.Context, songID, userID string) error {
	return s.songs.Unlike(ctx, songID, userID)
}

// cleanGenres trims the tags and rejects empty input.
func cleanGenres(raw []string) ([]string, error) {
	genres := make([]string, 0, len(raw))
	for _, g := range raw {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	if len(genres) == 0 {
		return nil, apperror.ValidationFailed("genres", "at least one genre is required")
	}
	return genres, nil
}
