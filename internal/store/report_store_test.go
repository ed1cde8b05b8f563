package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/taskboard/internal/models"
)

func TestReportStore_CreateAndSummary(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	orgID := createTestOrganization(t, db, "report-test")
	ctx := ctxWithWorkspace(orgID)

	tasks := NewTaskStore(db)
	task, err := tasks.Create(ctx, CreateTaskInput{
		Title:    "Flagged task",
		Status:   models.StatusOnHold,
		Priority: models.PriorityMedium,
	})
	require.NoError(t, err)

	store := NewReportStore(db)

	empty, err := store.SummaryForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
	assert.Empty(t, empty.Messages)

	require.NoError(t, store.Create(ctx, task.ID, "duplicate of another card"))
	require.NoError(t, store.Create(ctx, task.ID, "missing acceptance criteria"))

	summary, err := store.SummaryForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	require.Len(t, summary.Messages, 2)
	assert.Equal(t, "duplicate of another card", summary.Messages[0].Message)
	assert.Equal(t, "missing acceptance criteria", summary.Messages[1].Message)
}

func TestReportStore_NoWorkspace(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	store := NewReportStore(db)

	err := store.Create(context.Background(), "550e8400-e29b-41d4-a716-446655440000", "anything")
	assert.ErrorIs(t, err, ErrNoWorkspace)
}
