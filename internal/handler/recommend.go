package handler

import (
	"log/slog"
	"net/http"

	"github.com/gravix/backend/internal/service"
)

// RecommendHandler serves the recommendation feeds and the search endpoint.
type RecommendHandler struct {
	recommend *service.RecommendService
	logger    *slog.Logger
}

func NewRecommendHandler(recommend *service.RecommendService, logger *slog.Logger) *RecommendHandler {
	return &RecommendHandler{recommend: recommend, logger: logger}
}

// HandleArtists recommends artists for a comma-separated genre list.
//
// HTTP: GET /api/recommendations/artists?genres=rock,jazz
func (h *RecommendHandler) HandleArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := h.recommend.Artists(r.Context(), r.URL.Query().Get("genres"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artists)
}

// HandleSongsByGenres feeds songs matching the caller's liked genres.
//
// HTTP: GET /api/recommendations/songs/genres
func (h *RecommendHandler) HandleSongsByGenres(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	songs, err := h.recommend.SongsByPreferences(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// HandleSongsByAuthors feeds songs uploaded by artists the caller follows.
//
// HTTP: GET /api/recommendations/songs/authors
func (h *RecommendHandler) HandleSongsByAuthors(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	songs, err := h.recommend.SongsByFollowed(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// HandlePlaylistsByGenres feeds public playlists containing at least one
// song in the caller's liked genres.
//
// HTTP: GET /api/recommendations/playlists/genres
func (h *RecommendHandler) HandlePlaylistsByGenres(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	playlists, err := h.recommend.PlaylistsByPreferences(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// HandlePlaylistsByAuthors feeds public playlists with songs by followed
// artists.
//
// HTTP: GET /api/recommendations/playlists/authors
func (h *RecommendHandler) HandlePlaylistsByAuthors(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	playlists, err := h.recommend.PlaylistsByFollowed(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// HandlePopularSongs lists the most liked songs by other users.
//
// HTTP: GET /api/recommendations/songs/popular
func (h *RecommendHandler) HandlePopularSongs(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	songs, err := h.recommend.PopularSongs(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// HandlePopularPlaylists lists the most liked public playlists by other
// users.
//
// HTTP: GET /api/recommendations/playlists/popular
func (h *RecommendHandler) HandlePopularPlaylists(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	playlists, err := h.recommend.PopularPlaylists(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// HandlePopularAuthors lists the most followed users.
//
// HTTP: GET /api/recommendations/authors/popular
func (h *RecommendHandler) HandlePopularAuthors(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	authors, err := h.recommend.PopularAuthors(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

// HandleRandomSongs samples songs from the caller's followed artists.
//
// HTTP: GET /api/recommendations/songs/random
func (h *RecommendHandler) HandleRandomSongs(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	songs, err := h.recommend.RandomSongs(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// HandleSearch runs a typed prefix search over artists, songs or
// playlists.
//
// HTTP: GET /api/search?query=...&type=Artists|Songs|Playlists
func (h *RecommendHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.recommend.Search(r.Context(), q.Get("query"), q.Get("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
