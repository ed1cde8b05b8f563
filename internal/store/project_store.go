package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
)

// ProjectStore provides workspace-isolated access to projects.
type ProjectStore struct {
	db *sql.DB
}

// NewProjectStore creates a new ProjectStore with the given database connection.
func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const projectSelectColumns = "id, org_id, name, slug, status, created_at, updated_at"

// GetByID retrieves a project by ID within the current workspace.
func (s *ProjectStore) GetByID(ctx context.Context, id string) (*models.Project, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "SELECT " + projectSelectColumns + " FROM projects WHERE id = $1 AND org_id = $2"
	project, err := scanProject(conn.QueryRowContext(ctx, query, id, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// List retrieves all projects in the current workspace.
func (s *ProjectStore) List(ctx context.Context) ([]models.Project, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "SELECT " + projectSelectColumns + " FROM projects WHERE org_id = $1 ORDER BY name ASC"
	rows, err := conn.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading projects: %w", err)
	}

	return projects, nil
}

// Create creates a new project in the current workspace.
func (s *ProjectStore) Create(ctx context.Context, name, slug string) (*models.Project, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := `INSERT INTO projects (org_id, name, slug) VALUES ($1, $2, $3)
		RETURNING ` + projectSelectColumns
	project, err := scanProject(conn.QueryRowContext(ctx, query, workspaceID, name, slug))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

func scanProject(scanner interface{ Scan(...any) error }) (models.Project, error) {
	var project models.Project
	err := scanner.Scan(
		&project.ID,
		&project.OrgID,
		&project.Name,
		&project.Slug,
		&project.Status,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	return project, err
}
