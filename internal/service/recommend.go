package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gravix/backend/internal/apperror"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/recommend"
	"github.com/gravix/backend/internal/repository"
)

const (
	// PopularLimit is the size of every popularity top-list.
	PopularLimit = 10
	// RandomSampleSize caps the random discovery feed.
	RandomSampleSize = 32
)

// Search result type discriminators, matching what clients send.
const (
	SearchTypeArtists   = "Artists"
	SearchTypeSongs     = "Songs"
	SearchTypePlaylists = "Playlists"
)

// RecommendedArtist is one entry of the artist recommendation feed, shaped
// for the client's card component.
type RecommendedArtist struct {
	Image string `json:"image"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// SearchResult holds at most one populated slice, depending on the
// requested type.
type SearchResult struct {
	Artists   []model.PublicProfile `json:"artists,omitempty"`
	Songs     []model.Song          `json:"songs,omitempty"`
	Playlists []model.Playlist      `json:"playlists,omitempty"`
}

// RecommendService drives the discovery endpoints: the genre-affinity
// artist feed, preference and follow based listings, popularity top-lists,
// random sampling and prefix search.
type RecommendService struct {
	users     repository.UserRepository
	songs     repository.SongRepository
	playlists repository.PlaylistRepository
	logger    *slog.Logger
}

func NewRecommendService(users repository.UserRepository, songs repository.SongRepository, playlists repository.PlaylistRepository, logger *slog.Logger) *RecommendService {
	return &RecommendService{
		users:     users,
		songs:     songs,
		playlists: playlists,
		logger:    logger,
	}
}

// Artists runs the two-phase artist recommendation over the comma-separated
// genres parameter: per-genre affinity scoring, then fair selection so every
// requested genre is represented before the rest of the list fills up.
//
// A missing or empty parameter is a validation error. Individual empty
// elements after the split are kept as genres that simply match nothing.
func (s *RecommendService) Artists(ctx context.Context, genresParam string) ([]RecommendedArtist, error) {
	if genresParam == "" {
		return nil, apperror.ValidationFailed("genres", "genres parameter is required")
	}

	genres := strings.Split(genresParam, ",")
	for i := range genres {
		genres[i] = strings.TrimSpace(genres[i])
	}

	// Memoize username lookups; the same artist shows up across genres.
	resolved := map[string]*recommend.Artist{}
	resolve := func(username string) (recommend.Artist, bool) {
		if artist, seen := resolved[username]; seen {
			return deref(artist)
		}
		user, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			if !errors.Is(err, apperror.ErrNotFound) {
				s.logger.Error("resolving artist failed",
					slog.String("username", username),
					slog.String("error", err.Error()),
				)
			}
			resolved[username] = nil
			return recommend.Artist{}, false
		}
		artist := &recommend.Artist{ID: user.ID, Username: user.Username, Avatar: user.AvatarURL}
		resolved[username] = artist
		return *artist, true
	}

	var scores []recommend.Score
	for _, genre := range genres {
		songs, err := s.songs.ListByGenre(ctx, genre)
		if err != nil {
			return nil, fmt.Errorf("listing songs for genre %q: %w", genre, err)
		}
		authors := make([]string, len(songs))
		for i, song := range songs {
			authors[i] = song.Author
		}
		scores = append(scores, recommend.ScoreGenre(genre, authors, resolve)...)
	}

	picked := recommend.SelectFair(scores, genres, recommend.DefaultLimit)

	out := make([]RecommendedArtist, len(picked))
	for i, score := range picked {
		out[i] = RecommendedArtist{
			Image: score.Avatar,
			Text:  score.Username,
			ID:    score.ID,
		}
	}
	return out, nil
}

// SongsByPreferences returns songs whose genre set intersects the caller's
// preference multiset. No preferences yet means no recommendations.
func (s *RecommendService) SongsByPreferences(ctx context.Context, userID string) ([]model.Song, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.songs.ListByAnyGenre(ctx, dedupe(user.Preferences))
}

// SongsByFollowed returns songs authored by anyone the caller follows.
func (s *RecommendService) SongsByFollowed(ctx context.Context, userID string) ([]model.Song, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.songs.ListByAuthorIDs(ctx, user.Following)
}

// PlaylistsByPreferences returns PUBLIC playlists where at least one
// contained song carries a genre from the caller's preferences.
func (s *RecommendService) PlaylistsByPreferences(ctx context.Context, userID string) ([]model.Playlist, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	wanted := toSet(user.Preferences)
	return s.filterPublic(ctx, func(playlist *model.Playlist) bool {
		for _, song := range playlist.Songs {
			for _, genre := range song.Genres {
				if wanted[genre] {
					return true
				}
			}
		}
		return false
	})
}

// PlaylistsByFollowed returns PUBLIC playlists where at least one contained
// song was authored by someone the caller follows.
func (s *RecommendService) PlaylistsByFollowed(ctx context.Context, userID string) ([]model.Playlist, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	followed := toSet(user.Following)
	return s.filterPublic(ctx, func(playlist *model.Playlist) bool {
		for _, song := range playlist.Songs {
			if followed[song.AuthorID] {
				return true
			}
		}
		return false
	})
}

// PopularSongs is the like-count top-list, the caller's own songs excluded.
func (s *RecommendService) PopularSongs(ctx context.Context, userID string) ([]model.Song, error) {
	return s.songs.PopularExcluding(ctx, userID, PopularLimit)
}

// PopularPlaylists is the like-count top-list over PUBLIC playlists,
// the caller's own excluded.
func (s *RecommendService) PopularPlaylists(ctx context.Context, userID string) ([]model.Playlist, error) {
	return s.playlists.PopularExcluding(ctx, userID, PopularLimit)
}

// PopularAuthors ranks users by subscriber count, the caller excluded.
func (s *RecommendService) PopularAuthors(ctx context.Context, userID string) ([]model.PublicProfile, error) {
	users, err := s.users.PopularBySubscribers(ctx, userID, PopularLimit)
	if err != nil {
		return nil, fmt.Errorf("ranking authors: %w", err)
	}

	profiles := make([]model.PublicProfile, len(users))
	for i, user := range users {
		profiles[i] = user.Public()
	}
	return profiles, nil
}

// RandomSongs samples the caller's follow feed uniformly.
func (s *RecommendService) RandomSongs(ctx context.Context, userID string) ([]model.Song, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.songs.RandomByAuthorIDs(ctx, user.Following, RandomSampleSize)
}

// Search dispatches a case-insensitive prefix match by result type.
// A missing query or an unknown type is not an error: the result is empty,
// matching how the search box behaves while the user is still typing.
func (s *RecommendService) Search(ctx context.Context, query, resultType string) (SearchResult, error) {
	result := SearchResult{
		Artists:   []model.PublicProfile{},
		Songs:     []model.Song{},
		Playlists: []model.Playlist{},
	}
	if query == "" {
		return result, nil
	}

	switch resultType {
	case SearchTypeArtists:
		users, err := s.users.SearchByUsernamePrefix(ctx, query)
		if err != nil {
			return result, fmt.Errorf("searching artists: %w", err)
		}
		for _, user := range users {
			result.Artists = append(result.Artists, user.Public())
		}
	case SearchTypeSongs:
		songs, err := s.songs.SearchByTitlePrefix(ctx, query)
		if err != nil {
			return result, fmt.Errorf("searching songs: %w", err)
		}
		result.Songs = songs
	case SearchTypePlaylists:
		playlists, err := s.playlists.SearchByNamePrefix(ctx, query)
		if err != nil {
			return result, fmt.Errorf("searching playlists: %w", err)
		}
		result.Playlists = playlists
	}
	return result, nil
}

func (s *RecommendService) filterPublic(ctx context.Context, keep func(*model.Playlist) bool) ([]model.Playlist, error) {
	playlists, err := s.playlists.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing public playlists: %w", err)
	}

	matched := []model.Playlist{}
	for i := range playlists {
		if keep(&playlists[i]) {
			matched = append(matched, playlists[i])
		}
	}
	return matched, nil
}

func deref(artist *recommend.Artist) (recommend.Artist, bool) {
	if artist == nil {
		return recommend.Artist{}, false
	}
	return *artist, true
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
