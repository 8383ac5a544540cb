package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/halcyonlabs/authbase/internal/ctxkeys"
	"github.com/halcyonlabs/authbase/internal/model"
	"github.com/halcyonlabs/authbase/internal/repository"
	"github.com/halcyonlabs/authbase/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	respondJSON(w, http.StatusOK, user.View())
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		AvatarURL *string `json:"avatar_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.userService.UpdateProfile(user.ID, req.FirstName, req.LastName, req.AvatarURL)
	if err != nil {
		slog.Error("failed to update profile", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, updated.View())
}

// List returns a page of users. Admin only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)

	users, err := h.userService.List(offset, limit)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	views := make([]model.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user.View())
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		AvatarURL *string `json:"avatar_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.userService.UpdateProfile(user.ID, req.FirstName, req.LastName, req.AvatarURL)
	if err != nil {
		slog.Error("failed to update user", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	respondJSON(w, http.StatusOK, updated.View())
}

// Delete deactivates the account. Rows are never hard-deleted so sessions
// and audit history stay intact.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}

	deactivated, err := h.userService.Deactivate(user.ID)
	if err != nil {
		slog.Error("failed to deactivate user", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "Failed to deactivate user")
		return
	}

	slog.Info("user deactivated", "user_id", user.ID)
	respondJSON(w, http.StatusOK, deactivated.View())
}

func (h *UserHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id := r.PathValue("id")

	user, err := h.userService.ByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return nil, false
		}
		slog.Error("failed to get user", "error", err, "user_id", id)
		respondError(w, http.StatusInternalServerError, "Failed to get user")
		return nil, false
	}
	return user, true
}
