package handler

import (
	"log/slog"
	"net/http"

	"github.com/gravix/backend/internal/service"
)

// PlaylistHandler exposes playlist CRUD, membership edits, copying and
// likes.
type PlaylistHandler struct {
	playlists *service.PlaylistService
	logger    *slog.Logger
}

func NewPlaylistHandler(playlists *service.PlaylistService, logger *slog.Logger) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, logger: logger}
}

// HandleCreate creates a playlist for the caller.
//
// HTTP: POST /api/playlists
func (h *PlaylistHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req service.CreatePlaylistInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	playlist, err := h.playlists.Create(r.Context(), identity.UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

// HandleMy lists the caller's playlists, private ones included.
//
// HTTP: GET /api/playlists/my
func (h *PlaylistHandler) HandleMy(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	playlists, err := h.playlists.My(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// HandleMyByID returns one of the caller's own playlists.
//
// HTTP: GET /api/playlists/my/{id}
func (h *PlaylistHandler) HandleMyByID(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	playlist, err := h.playlists.MyByID(r.Context(), identity.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// HandleByUser lists the named user's PUBLIC playlists.
//
// HTTP: GET /api/playlists/user/{username}
func (h *PlaylistHandler) HandleByUser(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.ByUser(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// HandlePublic returns a playlist if it is PUBLIC.
//
// HTTP: GET /api/playlists/{id}
func (h *PlaylistHandler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.playlists.Public(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// HandleUpdate patches the caller's own playlist. A songs field in the body
// replaces the whole membership list.
//
// HTTP: PUT /api/playlists/{id}
func (h *PlaylistHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req service.UpdatePlaylistInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	playlist, err := h.playlists.Update(r.Context(), r.PathValue("id"), identity.UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// HandleDelete removes the caller's own playlist.
//
// HTTP: DELETE /api/playlists/{id}
func (h *PlaylistHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.playlists.Delete(r.Context(), r.PathValue("id"), identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddSong appends a song to the caller's playlist.
//
// HTTP: PUT /api/playlists/{id}/songs
// BODY: {"songId": "..."}
func (h *PlaylistHandler) HandleAddSong(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		SongID string `json:"songId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	playlist, err := h.playlists.AddSong(r.Context(), r.PathValue("id"), identity.UserID, req.SongID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// HandleRemoveSong drops a song from the caller's playlist.
//
// HTTP: DELETE /api/playlists/{id}/songs/{songID}
func (h *PlaylistHandler) HandleRemoveSong(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	playlist, err := h.playlists.RemoveSong(r.Context(), r.PathValue("id"), identity.UserID, r.PathValue("songID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// HandleCopy clones a visible playlist into the caller's library.
//
// HTTP: POST /api/playlists/{id}/copy
func (h *PlaylistHandler) HandleCopy(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	playlist, err := h.playlists.Copy(r.Context(), r.PathValue("id"), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

// HandleLike records a like on any playlist the id resolves to.
//
// HTTP: PATCH /api/playlists/{id}/like
func (h *PlaylistHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.playlists.Like(r.Context(), r.PathValue("id"), identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "liked"})
}

// HandleDislike reverses a playlist like.
//
// HTTP: PATCH /api/playlists/{id}/dislike
func (h *PlaylistHandler) HandleDislike(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.playlists.Unlike(r.Context(), r.PathValue("id"), identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disliked"})
}
