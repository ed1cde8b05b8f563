package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/taskboard/internal/models"
)

func TestTasksRequireWorkspace(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	rec := doRequest(t, router, http.MethodGet, "/api/tasks", "", "", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTasksCreateAndList(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "tasks-create")
	userID := insertTestUser(t, db, orgID, "Grace Hopper", "member")
	projectID := insertTestProject(t, db, orgID, "Launch", "launch")

	body, contentType := taskMultipartBody(t, map[string]interface{}{
		"project_id":  projectID,
		"title":       "Prepare launch checklist",
		"description": "Cover rollback steps too",
		"assignee":    "Grace Hopper",
		"priority":    "high",
		"due_date":    "2026-09-30",
		"tags":        []string{"launch", "ops"},
		"status":      "assigned",
	}, nil)
	rec := doRequest(t, router, http.MethodPost, "/api/tasks", orgID, userID, body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Task
	decodeBody(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, orgID, created.OrgID)
	assert.Equal(t, "Prepare launch checklist", created.Title)
	assert.Equal(t, models.PriorityHigh, created.Priority)
	assert.Equal(t, models.StatusAssigned, created.Status)
	assert.Equal(t, []string{"launch", "ops"}, created.Tags)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2026-09-30", created.DueDate.Format("2006-01-02"))

	rec = doRequest(t, router, http.MethodGet, "/api/tasks?project_id="+projectID, orgID, userID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed taskListResponse
	decodeBody(t, rec, &listed)
	require.Equal(t, 1, listed.Total)
	assert.Equal(t, created.ID, listed.Tasks[0].ID)
}

func TestTasksCreateRejectsMissingTitle(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "tasks-no-title")
	userID := insertTestUser(t, db, orgID, "Grace Hopper", "member")

	body, contentType := taskMultipartBody(t, map[string]interface{}{"title": "   "}, nil)
	rec := doRequest(t, router, http.MethodPost, "/api/tasks", orgID, userID, body, contentType)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "title is required", resp.Error)
}

func TestTasksCreateStoresAttachments(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "tasks-attach")
	userID := insertTestUser(t, db, orgID, "Grace Hopper", "member")

	body, contentType := taskMultipartBody(t, map[string]interface{}{
		"title": "Upload design mockups",
	}, []testUpload{
		{name: "mockup.png", content: []byte("png-bytes")},
		{name: "notes.pdf", content: []byte("pdf-bytes")},
	})
	rec := doRequest(t, router, http.MethodPost, "/api/tasks", orgID, userID, body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Task
	decodeBody(t, rec, &created)
	require.Len(t, created.Attachments, 2)
	assert.Equal(t, "mockup.png", created.Attachments[0].Name)
	assert.Equal(t, models.AttachmentImage, created.Attachments[0].Kind)
	assert.Equal(t, int64(len("png-bytes")), created.Attachments[0].SizeBytes)
	assert.Equal(t, models.AttachmentDocument, created.Attachments[1].Kind)
	assert.Contains(t, created.Attachments[0].URL, "/api/attachments/"+orgID+"/")

	// The stored file is served back through the attachments endpoint.
	rec = doRequest(t, router, http.MethodGet, created.Attachments[0].URL, orgID, userID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestTasksUpdatePartialFields(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "tasks-update")
	userID := insertTestUser(t, db, orgID, "Grace Hopper", "member")

	created := createTaskViaAPI(t, router, orgID, userID, map[string]interface{}{
		"title":       "Draft announcement",
		"description": "First pass",
		"priority":    "low",
	})

	body, contentType := taskMultipartBody(t, map[string]interface{}{
		"priority": "high",
	}, nil)
	rec := doRequest(t, router, http.MethodPatch, "/api/tasks/"+created.ID, orgID, userID, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Task
	decodeBody(t, rec, &updated)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	// Untouched fields survive the partial update.
	assert.Equal(t, "Draft announcement", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "First pass", *updated.Description)
}

func TestTasksUpdateStatus(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "tasks-status")
	userID := insertTestUser(t, db, orgID, "Grace Hopper", "member")

	created := createTaskViaAPI(t, router, orgID, userID, map[string]interface{}{
		"title":  "Ship the fix",
		"status": "in-progress",
	})

	rec := doJSON(t, router, http.MethodPatch, "/api/tasks/"+created.ID+"/status", orgID, userID, map[string]string{
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Task
	decodeBody(t, rec, &updated)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	rec = doJSON(t, router, http.MethodPatch, "/api/tasks/"+created.ID+"/status", orgID, userID, map[string]string{
		"status": "shipped",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasksDeleteRequiresAdmin(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "tasks-delete")
	memberID := insertTestUser(t, db, orgID, "Grace Hopper", "member")
	adminID := insertTestUser(t, db, orgID, "Ada Lovelace", "admin")

	created := createTaskViaAPI(t, router, orgID, memberID, map[string]interface{}{
		"title": "Obsolete experiment",
	})

	rec := doRequest(t, router, http.MethodDelete, "/api/tasks/"+created.ID, orgID, memberID, nil, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "only admins can delete tasks", resp.Error)

	rec = doRequest(t, router, http.MethodDelete, "/api/tasks/"+created.ID, orgID, adminID, nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/tasks/"+created.ID, orgID, memberID, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTasksWorkspaceIsolation(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgA := insertTestOrganization(t, db, "tasks-org-a")
	orgB := insertTestOrganization(t, db, "tasks-org-b")
	userA := insertTestUser(t, db, orgA, "Grace Hopper", "member")
	userB := insertTestUser(t, db, orgB, "Ada Lovelace", "member")

	created := createTaskViaAPI(t, router, orgA, userA, map[string]interface{}{
		"title": "Org A internal task",
	})

	rec := doRequest(t, router, http.MethodGet, "/api/tasks", orgB, userB, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed taskListResponse
	decodeBody(t, rec, &listed)
	assert.Equal(t, 0, listed.Total)

	rec = doRequest(t, router, http.MethodGet, "/api/tasks/"+created.ID, orgB, userB, nil, "")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func createTaskViaAPI(t *testing.T, router http.Handler, orgID, userID string, fields map[string]interface{}) models.Task {
	t.Helper()
	body, contentType := taskMultipartBody(t, fields, nil)
	rec := doRequest(t, router, http.MethodPost, "/api/tasks", orgID, userID, body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Task
	decodeBody(t, rec, &created)
	return created
}

func TestTasksListNestsComments(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "tasks-nested-comments")
	userID := insertTestUser(t, db, orgID, "Grace Hopper", "member")
	task := createTaskViaAPI(t, router, orgID, userID, map[string]interface{}{
		"title": "Fix login bug",
	})

	rec := doJSON(t, router, http.MethodPost, "/api/tasks/"+task.ID+"/comments", orgID, userID, map[string]string{
		"content": "Repro confirmed",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/api/tasks", orgID, userID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed taskListResponse
	decodeBody(t, rec, &listed)
	require.Len(t, listed.Tasks, 1)
	require.Len(t, listed.Tasks[0].Comments, 1)
	assert.Equal(t, "Repro confirmed", listed.Tasks[0].Comments[0].Content)
	assert.Equal(t, "Grace Hopper", listed.Tasks[0].Comments[0].Author)

	rec = doRequest(t, router, http.MethodGet, "/api/tasks/"+task.ID, orgID, userID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched models.Task
	decodeBody(t, rec, &fetched)
	require.Len(t, fetched.Comments, 1)
}
