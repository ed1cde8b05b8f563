package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/taskboard/internal/models"
)

func TestLedgerCreateIsIdempotentPerTask(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "ledger-upsert")
	userID := insertTestUser(t, db, orgID, "Grace Hopper", "member")
	projectID := insertTestProject(t, db, orgID, "Migration", "migration")
	task := createTaskViaAPI(t, router, orgID, userID, map[string]interface{}{
		"project_id": projectID,
		"title":      "Migrate the billing tables",
	})

	draft := map[string]interface{}{
		"project_id":   projectID,
		"task_id":      task.ID,
		"title":        "Migrate the billing tables",
		"priority":     "high",
		"completed_by": "Grace Hopper",
	}

	rec := doJSON(t, router, http.MethodPost, "/api/ledger", orgID, userID, draft)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var first models.LedgerEntry
	decodeBody(t, rec, &first)
	assert.Equal(t, task.ID, first.TaskID)
	assert.Equal(t, "Grace Hopper", first.CompletedBy)

	// Replaying the completion replaces the entry rather than adding one.
	rec = doJSON(t, router, http.MethodPost, "/api/ledger", orgID, userID, draft)
	require.Equal(t, http.StatusCreated, rec.Code)

	var second models.LedgerEntry
	decodeBody(t, rec, &second)
	assert.Equal(t, first.ID, second.ID)

	rec = doRequest(t, router, http.MethodGet, "/api/projects/"+projectID+"/ledger", orgID, userID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed ledgerListResponse
	decodeBody(t, rec, &listed)
	require.Len(t, listed.Entries, 1)
}

func TestLedgerDeleteToleratesAbsentEntry(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "ledger-delete")
	userID := insertTestUser(t, db, orgID, "Grace Hopper", "member")
	projectID := insertTestProject(t, db, orgID, "Cleanup", "cleanup")
	task := createTaskViaAPI(t, router, orgID, userID, map[string]interface{}{
		"project_id": projectID,
		"title":      "Retire old endpoints",
	})

	// Clearing before any completion exists still succeeds.
	rec := doRequest(t, router, http.MethodDelete, "/api/ledger/task/"+task.ID, orgID, userID, nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/ledger", orgID, userID, map[string]interface{}{
		"project_id":   projectID,
		"task_id":      task.ID,
		"title":        "Retire old endpoints",
		"completed_by": "Grace Hopper",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/ledger/task/"+task.ID, orgID, userID, nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/ledger/task/"+task.ID, orgID, userID, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerCreateValidatesDraft(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := testRouter(t, db)

	orgID := insertTestOrganization(t, db, "ledger-validate")
	userID := insertTestUser(t, db, orgID, "Grace Hopper", "member")

	rec := doJSON(t, router, http.MethodPost, "/api/ledger", orgID, userID, map[string]interface{}{
		"project_id": "not-a-uuid",
		"task_id":    "also-not-a-uuid",
		"title":      "Bad draft",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
