package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/harborview/taskboard/internal/models"
	"github.com/harborview/taskboard/internal/store"
)

// LedgerHandler manages work-done ledger entries. Creation is an upsert and
// deletion tolerates absent rows, so clients replaying a status change cannot
// double-record or fail on an already-cleared completion.
type LedgerHandler struct {
	Store *store.LedgerStore
}

type createLedgerRequest struct {
	ProjectID   string              `json:"project_id"`
	TaskID      string              `json:"task_id"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *string             `json:"due_date,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Assignee    *string             `json:"assignee,omitempty"`
	CompletedBy string              `json:"completed_by"`
}

type ledgerListResponse struct {
	Entries []models.LedgerEntry `json:"entries"`
}

// Create handles POST /api/ledger
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if !uuidRegex.MatchString(strings.TrimSpace(req.ProjectID)) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid project_id"})
		return
	}
	if !uuidRegex.MatchString(strings.TrimSpace(req.TaskID)) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid task_id"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "title is required"})
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid due_date"})
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidTaskPriority(priority) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid priority"})
		return
	}

	entry, err := h.Store.Upsert(r.Context(), store.CreateLedgerInput{
		ProjectID:   strings.TrimSpace(req.ProjectID),
		TaskID:      strings.TrimSpace(req.TaskID),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    priority,
		DueDate:     dueDate,
		Tags:        req.Tags,
		Assignee:    req.Assignee,
		CompletedBy: strings.TrimSpace(req.CompletedBy),
	})
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to record completion")})
		return
	}

	sendJSON(w, http.StatusCreated, entry)
}

// GetForTask handles GET /api/ledger/task/{id}
func (h *LedgerHandler) GetForTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	entry, err := h.Store.GetByTaskID(r.Context(), taskID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to load ledger entry")})
		return
	}

	sendJSON(w, http.StatusOK, entry)
}

// DeleteForTask handles DELETE /api/ledger/task/{id}
func (h *LedgerHandler) DeleteForTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeleteByTaskID(r.Context(), taskID); err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to clear ledger entry")})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListForProject handles GET /api/projects/{id}/ledger
func (h *LedgerHandler) ListForProject(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(chi.URLParam(r, "id"))
	if projectID == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "project id is required"})
		return
	}
	if !uuidRegex.MatchString(projectID) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid project id"})
		return
	}

	entries, err := h.Store.ListForProject(r.Context(), projectID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to list ledger entries")})
		return
	}

	sendJSON(w, http.StatusOK, ledgerListResponse{Entries: entries})
}
