package handler

import (
	"log/slog"
	"net/http"

	"github.com/gravix/backend/internal/service"
)

// SongHandler exposes the song catalog and the like state machine.
type SongHandler struct {
	songs  *service.SongService
	logger *slog.Logger
}

func NewSongHandler(songs *service.SongService, logger *slog.Logger) *SongHandler {
	return &SongHandler{songs: songs, logger: logger}
}

// HandleCreate uploads a song. The author is always the caller; any
// author field in the body is ignored.
//
// HTTP: POST /api/songs
func (h *SongHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req service.CreateSongInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	song, err := h.songs.Create(r.Context(), identity, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

// HandleGet returns one song.
//
// HTTP: GET /api/songs/{id}
func (h *SongHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	song, err := h.songs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// HandleListByAuthor returns everything the named user uploaded.
//
// HTTP: GET /api/songs/author/{author}
func (h *SongHandler) HandleListByAuthor(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.ListByAuthor(r.Context(), r.PathValue("author"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// HandleUpdate patches the caller's own song.
//
// HTTP: PUT /api/songs/{id}
func (h *SongHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req service.UpdateSongInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	song, err := h.songs.Update(r.Context(), r.PathValue("id"), identity.UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// HandleDelete removes the caller's own song.
//
// HTTP: DELETE /api/songs/{id}
func (h *SongHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.songs.Delete(r.Context(), r.PathValue("id"), identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLike records a like. Liking twice answers 409.
//
// HTTP: PATCH /api/songs/{id}/like
func (h *SongHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.songs.Like(r.Context(), r.PathValue("id"), identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "liked"})
}

// HandleDislike reverses a like. Disliking a song that was never liked
// answers 409.
//
// HTTP: PATCH /api/songs/{id}/dislike
func (h *SongHandler) HandleDislike(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.songs.Unlike(r.Context(), r.PathValue("id"), identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disliked"})
}
