package api

import (
	"net/http"

	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
	"github.com/harborview/taskboard/internal/store"
)

// UsersHandler exposes workspace members for assignee pickers and the
// client's capability checks.
type UsersHandler struct {
	Store *store.UserStore
}

type userListResponse struct {
	Users []models.User `json:"users"`
}

// List handles GET /api/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.List(r.Context())
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to list users")})
		return
	}

	sendJSON(w, http.StatusOK, userListResponse{Users: users})
}

// Me handles GET /api/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserFromContext(r.Context())
	if userID == "" {
		sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user identity"})
		return
	}

	user, err := h.Store.GetByID(r.Context(), userID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to load user")})
		return
	}

	sendJSON(w, http.StatusOK, user)
}
