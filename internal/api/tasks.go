package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/harborview/taskboard/internal/config"
	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
	"github.com/harborview/taskboard/internal/store"
	"github.com/harborview/taskboard/internal/ws"
)

const dueDateLayout = "2006-01-02"

// TasksHandler manages the task endpoints.
type TasksHandler struct {
	Store   *store.TaskStore
	Users   *store.UserStore
	Uploads config.UploadsConfig
	Hub     *ws.Hub
}

type taskListResponse struct {
	Tasks []models.Task `json:"tasks"`
	Total int           `json:"total"`
}

type createTaskRequest struct {
	ProjectID   *string             `json:"project_id,omitempty"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Assignee    *string             `json:"assignee,omitempty"`
	Priority    models.TaskPriority `json:"priority,omitempty"`
	DueDate     *string             `json:"due_date,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Status      models.TaskStatus   `json:"status,omitempty"`
}

type updateTaskRequest struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Assignee    *string              `json:"assignee,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	DueDate     *string              `json:"due_date,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Status      *models.TaskStatus   `json:"status,omitempty"`
}

type taskStatusRequest struct {
	Status models.TaskStatus `json:"status"`
}

// List handles GET /api/tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.TaskFilter{
		Status: strings.TrimSpace(strings.ToLower(r.URL.Query().Get("status"))),
	}
	if filter.Status != "" && !models.ValidTaskStatus(models.TaskStatus(filter.Status)) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return
	}

	projectID := firstNonEmpty(
		strings.TrimSpace(r.URL.Query().Get("project_id")),
		strings.TrimSpace(r.URL.Query().Get("project")),
	)
	if projectID != "" {
		if !uuidRegex.MatchString(projectID) {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid project_id"})
			return
		}
		filter.ProjectID = &projectID
	}

	if assignee := strings.TrimSpace(r.URL.Query().Get("assignee")); assignee != "" {
		filter.Assignee = &assignee
	}

	tasks, err := h.Store.List(r.Context(), filter)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to list tasks")})
		return
	}

	sendJSON(w, http.StatusOK, taskListResponse{Tasks: tasks, Total: len(tasks)})
}

// Get handles GET /api/tasks/{id}
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.Store.GetByID(r.Context(), taskID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to load task")})
		return
	}

	sendJSON(w, http.StatusOK, task)
}

// Create handles POST /api/tasks. The body is a multipart form with a "task"
// JSON field and zero or more "attachments" file parts.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !parseMultipartTaskForm(w, r, h.Uploads, &req) {
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "title is required"})
		return
	}

	status := req.Status
	if status == "" {
		status = models.StatusOnHold
	}
	if !models.ValidTaskStatus(status) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
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

	if req.ProjectID != nil && !uuidRegex.MatchString(strings.TrimSpace(*req.ProjectID)) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid project_id"})
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid due_date"})
		return
	}

	attachments, err := saveAttachments(h.Uploads, middleware.WorkspaceFromContext(r.Context()), uploadedFiles(r))
	if err != nil {
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store attachments"})
		return
	}

	task, err := h.Store.Create(r.Context(), store.CreateTaskInput{
		ProjectID:   req.ProjectID,
		Title:       title,
		Description: req.Description,
		Assignee:    req.Assignee,
		Priority:    priority,
		DueDate:     dueDate,
		Tags:        req.Tags,
		Status:      status,
		Attachments: attachments,
	})
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to create task")})
		return
	}

	broadcastTaskCreated(h.Hub, *task)
	sendJSON(w, http.StatusCreated, task)
}

// Update handles PATCH /api/tasks/{id}. Like Create, the body is a multipart
// form; absent fields in the "task" JSON are left unchanged, and any uploaded
// files are appended to the task's attachments.
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !parseMultipartTaskForm(w, r, h.Uploads, &req) {
		return
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "title cannot be empty"})
		return
	}
	if req.Status != nil && !models.ValidTaskStatus(*req.Status) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return
	}
	if req.Priority != nil && !models.ValidTaskPriority(*req.Priority) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid priority"})
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid due_date"})
		return
	}

	attachments, err := saveAttachments(h.Uploads, middleware.WorkspaceFromContext(r.Context()), uploadedFiles(r))
	if err != nil {
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store attachments"})
		return
	}

	task, err := h.Store.Update(r.Context(), taskID, store.UpdateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Assignee:       req.Assignee,
		Priority:       req.Priority,
		DueDate:        dueDate,
		Tags:           req.Tags,
		Status:         req.Status,
		AddAttachments: attachments,
	})
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to update task")})
		return
	}

	broadcastTaskUpdated(h.Hub, *task)
	sendJSON(w, http.StatusOK, task)
}

// UpdateStatus handles PATCH /api/tasks/{id}/status
func (h *TasksHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	var req taskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	status := models.TaskStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if status == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "status is required"})
		return
	}
	if !models.ValidTaskStatus(status) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return
	}

	existing, err := h.Store.GetByID(r.Context(), taskID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to load task")})
		return
	}

	task, err := h.Store.UpdateStatus(r.Context(), taskID, status)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to update task status")})
		return
	}

	broadcastTaskStatusChanged(h.Hub, *task, string(existing.Status))
	sendJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/{id}. Only admins may delete.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}

	userID := middleware.UserFromContext(r.Context())
	if userID == "" {
		sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user identity"})
		return
	}

	user, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to load user")})
		return
	}
	if !user.IsAdmin() {
		sendJSON(w, http.StatusForbidden, errorResponse{Error: "only admins can delete tasks"})
		return
	}

	task, err := h.Store.GetByID(r.Context(), taskID)
	if err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to load task")})
		return
	}

	if err := h.Store.Delete(r.Context(), taskID); err != nil {
		sendJSON(w, storeErrorStatus(err), errorResponse{Error: storeErrorMessage(err, "failed to delete task")})
		return
	}

	broadcastTaskDeleted(h.Hub, task.OrgID, taskID)
	w.WriteHeader(http.StatusNoContent)
}

func requireTaskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "task id is required"})
		return "", false
	}
	if !uuidRegex.MatchString(taskID) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid task id"})
		return "", false
	}
	return taskID, true
}

// parseMultipartTaskForm decodes the "task" JSON form field into dst. It
// writes an error response and returns false when the form is malformed.
func parseMultipartTaskForm(w http.ResponseWriter, r *http.Request, uploads config.UploadsConfig, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxSizeBytes+64*1024)

	if err := r.ParseMultipartForm(uploads.MaxSizeBytes); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			sendJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "upload too large"})
			return false
		}
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return false
	}

	payload := r.FormValue("task")
	if strings.TrimSpace(payload) == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing task payload"})
		return false
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid task payload"})
		return false
	}
	return true
}

func parseDueDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dueDateLayout, strings.TrimSpace(*value))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
