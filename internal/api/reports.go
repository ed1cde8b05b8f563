package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/store"
	"github.com/harborview/taskboard/internal/ws"
)

// ReportsHandler manages issue flags raised against tasks.
type ReportsHandler struct {
	Store *store.ReportStore
	Hub   *ws.Hub
}

type createReportRequest struct {
	Message string `json:"message"`
}

// Summary handles GET /api/tasks/{id}/reports
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	summary, err := h.Store.SummaryForTask(r.Context(), taskID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to list reports")})
		return
	}

	sendJSON(w, http.StatusOK, summary)
}

// Create handles POST /api/tasks/{id}/reports
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	if err := h.Store.Create(r.Context(), taskID, strings.TrimSpace(req.Message)); err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to create report")})
		return
	}

	broadcastTaskReported(h.Hub, middleware.WorkspaceFromContext(r.Context()), taskID)
	w.WriteHeader(http.StatusCreated)
}
