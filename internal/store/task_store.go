package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
)

// TaskStore provides workspace-isolated access to tasks.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore creates a new TaskStore with the given database connection.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// TaskFilter defines filtering options for listing tasks.
type TaskFilter struct {
	Status    string
	ProjectID *string
	Assignee  *string
}

// The report count rides along on every select so list responses carry the
// flag badge without a second query per task.
const taskSelectColumns = `t.id, t.org_id, t.project_id, t.title, t.description, t.assignee,
	t.priority, t.due_date, t.tags, t.status, t.attachments, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM task_reports r WHERE r.task_id = t.id) AS report_count`

// GetByID retrieves a task by ID within the current workspace.
// The RLS policy ensures only tasks in the current workspace are visible.
func (s *TaskStore) GetByID(ctx context.Context, id string) (*models.Task, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "SELECT " + taskSelectColumns + " FROM tasks t WHERE t.id = $1"
	task, err := scanTask(conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	// Double-check workspace isolation at app layer (defense in depth)
	if task.OrgID != workspaceID {
		return nil, ErrForbidden
	}

	tasks := []models.Task{task}
	if err := attachComments(ctx, conn, workspaceID, tasks); err != nil {
		return nil, err
	}

	return &tasks[0], nil
}

// List retrieves all tasks in the current workspace matching the filter.
func (s *TaskStore) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query, args := buildTaskListQuery(workspaceID, filter)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading tasks: %w", err)
	}

	if err := attachComments(ctx, conn, workspaceID, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// CreateTaskInput defines the input for creating a new task.
type CreateTaskInput struct {
	ProjectID   *string
	Title       string
	Description *string
	Assignee    *string
	Priority    models.TaskPriority
	DueDate     *time.Time
	Tags        []string
	Status      models.TaskStatus
	Attachments []models.AttachmentMetadata
}

// Create creates a new task in the current workspace.
func (s *TaskStore) Create(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	attachments, err := marshalAttachments(input.Attachments)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO tasks AS t (
		org_id, project_id, title, description, assignee, priority, due_date, tags, status, attachments
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING ` + taskSelectColumns

	args := []interface{}{
		workspaceID,
		nullableString(input.ProjectID),
		input.Title,
		nullableString(input.Description),
		nullableString(input.Assignee),
		string(input.Priority),
		nullableTime(input.DueDate),
		pq.Array(models.NormalizeTags(input.Tags)),
		string(input.Status),
		attachments,
	}

	task, err := scanTask(conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return &task, nil
}

// UpdateTaskInput defines the input for a partial task update. Nil members
// leave the stored column unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Assignee    *string
	Priority    *models.TaskPriority
	DueDate     *time.Time
	Tags        []string
	Status      *models.TaskStatus
	// AddAttachments is appended to the stored attachment list.
	AddAttachments []models.AttachmentMetadata
}

// Update applies a partial update to a task in the current workspace.
func (s *TaskStore) Update(ctx context.Context, id string, input UpdateTaskInput) (*models.Task, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	current, err := scanTask(conn.QueryRowContext(ctx,
		"SELECT "+taskSelectColumns+" FROM tasks t WHERE t.id = $1 AND t.org_id = $2", id, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load task for update: %w", err)
	}

	if input.Title != nil {
		current.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		current.Description = input.Description
	}
	if input.Assignee != nil {
		current.Assignee = input.Assignee
	}
	if input.Priority != nil {
		current.Priority = *input.Priority
	}
	if input.DueDate != nil {
		current.DueDate = input.DueDate
	}
	if input.Tags != nil {
		current.Tags = models.NormalizeTags(input.Tags)
	}
	if input.Status != nil {
		current.Status = *input.Status
	}
	if len(input.AddAttachments) > 0 {
		current.Attachments = append(current.Attachments, input.AddAttachments...)
	}

	attachments, err := marshalAttachments(current.Attachments)
	if err != nil {
		return nil, err
	}

	query := `UPDATE tasks t SET
		title = $1, description = $2, assignee = $3, priority = $4,
		due_date = $5, tags = $6, status = $7, attachments = $8, updated_at = NOW()
	WHERE t.id = $9 AND t.org_id = $10
	RETURNING ` + taskSelectColumns

	args := []interface{}{
		current.Title,
		nullableString(current.Description),
		nullableString(current.Assignee),
		string(current.Priority),
		nullableTime(current.DueDate),
		pq.Array(current.Tags),
		string(current.Status),
		attachments,
		id,
		workspaceID, // Defense in depth: explicit workspace check
	}

	task, err := scanTask(conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return &task, nil
}

// UpdateStatus updates only the status of a task.
func (s *TaskStore) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "UPDATE tasks t SET status = $1, updated_at = NOW() WHERE t.id = $2 AND t.org_id = $3 RETURNING " + taskSelectColumns
	task, err := scanTask(conn.QueryRowContext(ctx, query, string(status), id, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	return &task, nil
}

// Delete deletes a task from the current workspace. Comments, reports, and
// the ledger entry go with it through ON DELETE CASCADE.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Defense in depth: explicit workspace check in WHERE clause
	result, err := conn.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1 AND org_id = $2", id, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// attachComments loads the comments of every listed task in one query, so
// list responses carry the full thread without a round trip per task.
func attachComments(ctx context.Context, conn Querier, workspaceID string, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	index := make(map[string]int, len(tasks))
	ids := make([]string, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
		index[tasks[i].ID] = i
	}

	query := "SELECT " + commentSelectColumns + ` FROM task_comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.task_id = ANY($1) AND c.org_id = $2
		ORDER BY c.created_at ASC`
	rows, err := conn.QueryContext(ctx, query, pq.Array(ids), workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list task comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return fmt.Errorf("failed to scan task comment: %w", err)
		}
		if i, ok := index[comment.TaskID]; ok {
			tasks[i].Comments = append(tasks[i].Comments, comment)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error reading task comments: %w", err)
	}

	return nil
}

func buildTaskListQuery(workspaceID string, filter TaskFilter) (string, []interface{}) {
	conditions := []string{"t.org_id = $1"}
	args := []interface{}{workspaceID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("t.project_id = $%d", len(args)))
	}
	if filter.Assignee != nil {
		args = append(args, *filter.Assignee)
		conditions = append(conditions, fmt.Sprintf("t.assignee = $%d", len(args)))
	}

	query := "SELECT " + taskSelectColumns + " FROM tasks t WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY t.created_at DESC"

	return query, args
}

func scanTask(scanner interface{ Scan(...any) error }) (models.Task, error) {
	var task models.Task
	var projectID sql.NullString
	var description sql.NullString
	var assignee sql.NullString
	var dueDate sql.NullTime
	var tags pq.StringArray
	var attachmentBytes []byte

	err := scanner.Scan(
		&task.ID,
		&task.OrgID,
		&projectID,
		&task.Title,
		&description,
		&assignee,
		&task.Priority,
		&dueDate,
		&tags,
		&task.Status,
		&attachmentBytes,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.ReportCount,
	)
	if err != nil {
		return task, err
	}

	if projectID.Valid {
		task.ProjectID = &projectID.String
	}
	if description.Valid {
		task.Description = &description.String
	}
	if assignee.Valid {
		task.Assignee = &assignee.String
		task.AssigneeAvatar = models.Initials(assignee.String)
	}
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	task.Tags = []string(tags)
	if task.Tags == nil {
		task.Tags = []string{}
	}

	task.Attachments = []models.AttachmentMetadata{}
	if len(attachmentBytes) > 0 {
		if err := json.Unmarshal(attachmentBytes, &task.Attachments); err != nil {
			return task, fmt.Errorf("failed to decode attachments: %w", err)
		}
	}
	task.Comments = []models.Comment{}

	return task, nil
}

func marshalAttachments(attachments []models.AttachmentMetadata) ([]byte, error) {
	if attachments == nil {
		attachments = []models.AttachmentMetadata{}
	}
	payload, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachments: %w", err)
	}
	return payload, nil
}

func nullableTime(value *time.Time) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
