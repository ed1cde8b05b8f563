package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
)

// LedgerStore provides workspace-isolated access to the work-done ledger.
//
// A task has at most one ledger entry, enforced by a unique index on
// task_id. Create upserts on that key and Delete tolerates an absent row,
// so retried or reordered deliveries from clients converge on the correct
// exactly-one-iff-completed state.
type LedgerStore struct {
	db *sql.DB
}

// NewLedgerStore creates a new LedgerStore with the given database connection.
func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const ledgerSelectColumns = `id, org_id, project_id, task_id, title, description, priority,
	due_date, tags, assignee, completed_by, completed_at`

// CreateLedgerInput defines the input for recording a completion.
type CreateLedgerInput struct {
	ProjectID   string
	TaskID      string
	Title       string
	Description *string
	Priority    models.TaskPriority
	DueDate     *time.Time
	Tags        []string
	Assignee    *string
	CompletedBy string
}

// Upsert records a completion, replacing any existing entry for the task.
func (s *LedgerStore) Upsert(ctx context.Context, input CreateLedgerInput) (*models.LedgerEntry, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := `INSERT INTO work_done_ledger (
		org_id, project_id, task_id, title, description, priority, due_date, tags, assignee, completed_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (task_id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		priority = EXCLUDED.priority,
		due_date = EXCLUDED.due_date,
		tags = EXCLUDED.tags,
		assignee = EXCLUDED.assignee,
		completed_by = EXCLUDED.completed_by,
		completed_at = NOW()
	RETURNING ` + ledgerSelectColumns

	args := []interface{}{
		workspaceID,
		input.ProjectID,
		input.TaskID,
		input.Title,
		nullableString(input.Description),
		string(input.Priority),
		nullableTime(input.DueDate),
		pq.Array(models.NormalizeTags(input.Tags)),
		nullableString(input.Assignee),
		input.CompletedBy,
	}

	entry, err := scanLedgerEntry(conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert ledger entry: %w", err)
	}

	return &entry, nil
}

// GetByTaskID retrieves the ledger entry for one task.
func (s *LedgerStore) GetByTaskID(ctx context.Context, taskID string) (*models.LedgerEntry, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "SELECT " + ledgerSelectColumns + " FROM work_done_ledger WHERE task_id = $1 AND org_id = $2"
	entry, err := scanLedgerEntry(conn.QueryRowContext(ctx, query, taskID, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &entry, nil
}

// ListForProject retrieves a project's completions, newest first.
func (s *LedgerStore) ListForProject(ctx context.Context, projectID string) ([]models.LedgerEntry, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "SELECT " + ledgerSelectColumns + ` FROM work_done_ledger
		WHERE project_id = $1 AND org_id = $2 ORDER BY completed_at DESC`
	rows, err := conn.QueryContext(ctx, query, projectID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading ledger entries: %w", err)
	}

	return entries, nil
}

// DeleteByTaskID removes a task's ledger entry. Deleting an absent entry is
// not an error: a reopen must succeed even when the completion record never
// landed.
func (s *LedgerStore) DeleteByTaskID(ctx context.Context, taskID string) error {
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
		"DELETE FROM work_done_ledger WHERE task_id = $1 AND org_id = $2", taskID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}

	return nil
}

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var description sql.NullString
	var dueDate sql.NullTime
	var tags pq.StringArray
	var assignee sql.NullString

	err := scanner.Scan(
		&entry.ID,
		&entry.OrgID,
		&entry.ProjectID,
		&entry.TaskID,
		&entry.Title,
		&description,
		&entry.Priority,
		&dueDate,
		&tags,
		&assignee,
		&entry.CompletedBy,
		&entry.CompletedAt,
	)
	if err != nil {
		return entry, err
	}

	if description.Valid {
		entry.Description = &description.String
	}
	if dueDate.Valid {
		t := dueDate.Time
		entry.DueDate = &t
	}
	if assignee.Valid {
		entry.Assignee = &assignee.String
	}
	entry.Tags = []string(tags)
	if entry.Tags == nil {
		entry.Tags = []string{}
	}

	return entry, nil
}
