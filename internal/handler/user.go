package handler

import (
	"log/slog"
	"net/http"

	"github.com/gravix/backend/internal/apperror"
	"github.com/gravix/backend/internal/auth"
	"github.com/gravix/backend/internal/repository"
	"github.com/gravix/backend/internal/service"
)

// UserHandler exposes profiles and the follow graph.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// requireIdentity pulls the authenticated identity out of the request
// context. The auth middleware guarantees it on protected routes, so a miss
// means a wiring mistake, answered as a plain 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return auth.Identity{}, false
	}
	return identity, true
}

// HandleProfile returns the caller's own account, preferences and follow
// lists included.
//
// HTTP: GET /api/users/profile
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.users.Profile(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateProfile patches the caller's avatar and/or email.
//
// HTTP: PATCH /api/users/profile
// BODY: {"avatar": "...", "email": "..."} (both optional)
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		Email  *string `json:"email"`
		Avatar *string `json:"avatar"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), identity.UserID, repository.UserPatch{
		Email:     req.Email,
		AvatarURL: req.Avatar,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleInfo returns another user's public profile.
//
// HTTP: GET /api/users/info/{username}
func (h *UserHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Info(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleList returns everyone except the caller.
//
// HTTP: GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	profiles, err := h.users.List(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// HandleFollow records the caller following the target user.
//
// HTTP: POST /api/users/{id}/follow
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.users.Follow(r.Context(), identity.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "following"})
}

// HandleUnfollow removes a follow relation.
//
// HTTP: DELETE /api/users/{id}/follow
func (h *UserHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.users.Unfollow(r.Context(), identity.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unfollowed"})
}
