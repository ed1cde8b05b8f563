package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
	"github.com/harborview/taskboard/internal/store"
	"github.com/harborview/taskboard/internal/ws"
)

// CommentsHandler manages comments on tasks. Edits and deletes are restricted
// to the comment's author, enforced here as well as in clients.
type CommentsHandler struct {
	Store *store.CommentStore
	Hub   *ws.Hub
}

type commentListResponse struct {
	Comments []models.Comment `json:"comments"`
}

type commentBodyRequest struct {
	Content string `json:"content"`
}

// ListForTask handles GET /api/tasks/{id}/comments
func (h *CommentsHandler) ListForTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	comments, err := h.Store.ListForTask(r.Context(), taskID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to list comments")})
		return
	}

	sendJSON(w, http.StatusOK, commentListResponse{Comments: comments})
}

// Create handles POST /api/tasks/{id}/comments
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	userID := middleware.UserFromContext(r.Context())
	if userID == "" {
		sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user identity"})
		return
	}

	var req commentBodyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "content is required"})
		return
	}

	comment, err := h.Store.Create(r.Context(), taskID, userID, strings.TrimSpace(req.Content))
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to create comment")})
		return
	}

	broadcastCommentAdded(h.Hub, middleware.WorkspaceFromContext(r.Context()), *comment)
	sendJSON(w, http.StatusCreated, comment)
}

// Update handles PATCH /api/comments/{id}
func (h *CommentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.requireOwnComment(w, r)
	if !ok {
		return
	}

	var req commentBodyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "content is required"})
		return
	}

	if err := h.Store.UpdateContent(r.Context(), comment.ID, strings.TrimSpace(req.Content)); err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to update comment")})
		return
	}

	updated, err := h.Store.GetByID(r.Context(), comment.ID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to load comment")})
		return
	}

	broadcastCommentUpdated(h.Hub, middleware.WorkspaceFromContext(r.Context()), *updated)
	sendJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/comments/{id}
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.requireOwnComment(w, r)
	if !ok {
		return
	}

	if err := h.Store.Delete(r.Context(), comment.ID); err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to delete comment")})
		return
	}

	broadcastCommentDeleted(h.Hub, middleware.WorkspaceFromContext(r.Context()), comment.ID)
	w.WriteHeader(http.StatusNoContent)
}

// requireOwnComment loads the comment named in the URL and verifies that the
// acting user wrote it.
func (h *CommentsHandler) requireOwnComment(w http.ResponseWriter, r *http.Request) (*models.Comment, bool) {
	commentID := strings.TrimSpace(chi.URLParam(r, "id"))
	if commentID == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "comment id is required"})
		return nil, false
	}
	if !uuidRegex.MatchString(commentID) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid comment id"})
		return nil, false
	}

	userID := middleware.UserFromContext(r.Context())
	if userID == "" {
		sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user identity"})
		return nil, false
	}

	comment, err := h.Store.GetByID(r.Context(), commentID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to load comment")})
		return nil, false
	}
	if comment.AuthorID != userID {
		sendJSON(w, http.StatusForbidden, errorResponse{Error: "only the author can modify a comment"})
		return nil, false
	}

	return comment, true
}
