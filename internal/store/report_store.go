package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
)

// ReportStore provides workspace-isolated access to task reports. Reports
// are write-mostly: the UI only ever reads the per-task aggregate.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore creates a new ReportStore with the given database connection.
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Create files a report against a task.
func (s *ReportStore) Create(ctx context.Context, taskID, message string) error {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx,
		"INSERT INTO task_reports (org_id, task_id, message) VALUES ($1, $2, $3)",
		workspaceID, taskID, message)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// SummaryForTask returns the report aggregate for one task. A task with no
// reports yields an empty summary, not an error.
func (s *ReportStore) SummaryForTask(ctx context.Context, taskID string) (*models.ReportSummary, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx,
		"SELECT message FROM task_reports WHERE task_id = $1 AND org_id = $2 ORDER BY created_at ASC",
		taskID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	summary := &models.ReportSummary{Messages: []models.ReportMessage{}}
	for rows.Next() {
		var message string
		if err := rows.Scan(&message); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		summary.Messages = append(summary.Messages, models.ReportMessage{Message: message})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading reports: %w", err)
	}

	summary.Count = len(summary.Messages)
	return summary, nil
}
