package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
)

// CommentStore provides workspace-isolated access to task comments.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore with the given database connection.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

const commentSelectColumns = `c.id, c.task_id, c.author_id, u.name, c.content, c.created_at, c.updated_at`

// ListForTask retrieves a task's comments in chronological order.
func (s *CommentStore) ListForTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "SELECT " + commentSelectColumns + ` FROM task_comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.task_id = $1 AND c.org_id = $2
		ORDER BY c.created_at ASC`
	rows, err := conn.QueryContext(ctx, query, taskID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading comments: %w", err)
	}

	return comments, nil
}

// GetByID retrieves a single comment within the current workspace.
func (s *CommentStore) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "SELECT " + commentSelectColumns + ` FROM task_comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1 AND c.org_id = $2`
	comment, err := scanComment(conn.QueryRowContext(ctx, query, id, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}

	return &comment, nil
}

// Create adds a comment to a task, authored by the given user.
func (s *CommentStore) Create(ctx context.Context, taskID, authorID, content string) (*models.Comment, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var id string
	err = conn.QueryRowContext(ctx,
		`INSERT INTO task_comments (org_id, task_id, author_id, content)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		workspaceID, taskID, authorID, content).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	query := "SELECT " + commentSelectColumns + ` FROM task_comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1`
	comment, err := scanComment(conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read created comment: %w", err)
	}

	return &comment, nil
}

// UpdateContent replaces a comment's content. The author check belongs to
// the handler; the store only enforces workspace isolation.
func (s *CommentStore) UpdateContent(ctx context.Context, id, content string) error {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := conn.ExecContext(ctx,
		"UPDATE task_comments SET content = $1, updated_at = NOW() WHERE id = $2 AND org_id = $3",
		content, id, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a comment from the current workspace.
func (s *CommentStore) Delete(ctx context.Context, id string) error {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := conn.ExecContext(ctx,
		"DELETE FROM task_comments WHERE id = $1 AND org_id = $2", id, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
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

func scanComment(scanner interface{ Scan(...any) error }) (models.Comment, error) {
	var comment models.Comment
	var authorName sql.NullString

	err := scanner.Scan(
		&comment.ID,
		&comment.TaskID,
		&comment.AuthorID,
		&authorName,
		&comment.Content,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return comment, err
	}

	if authorName.Valid {
		comment.Author = authorName.String
		comment.Avatar = models.Initials(authorName.String)
	}

	return comment, nil
}
