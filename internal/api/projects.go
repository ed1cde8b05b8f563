package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/harborview/taskboard/internal/models"
	"github.com/harborview/taskboard/internal/store"
)

// ProjectsHandler manages the projects tasks can belong to.
type ProjectsHandler struct {
	Store *store.ProjectStore
}

type projectListResponse struct {
	Projects []models.Project `json:"projects"`
}

type createProjectRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// List handles GET /api/projects
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.List(r.Context())
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to list projects")})
		return
	}

	sendJSON(w, http.StatusOK, projectListResponse{Projects: projects})
}

// Get handles GET /api/projects/{id}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(chi.URLParam(r, "id"))
	if projectID == "" || !uuidRegex.MatchString(projectID) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid project id"})
		return
	}

	project, err := h.Store.GetByID(r.Context(), projectID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to load project")})
		return
	}

	sendJSON(w, http.StatusOK, project)
}

// Create handles POST /api/projects
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	project, err := h.Store.Create(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Slug))
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to create project")})
		return
	}

	sendJSON(w, http.StatusCreated, project)
}
