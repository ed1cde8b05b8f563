package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
)

// UserStore provides workspace-isolated access to users. Handlers consult
// it to resolve the acting user's role before capability checks.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userSelectColumns = "id, org_id, name, role"

// GetByID retrieves a user by ID within the current workspace.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "SELECT " + userSelectColumns + " FROM users WHERE id = $1 AND org_id = $2"
	user, err := scanUser(conn.QueryRowContext(ctx, query, id, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// List retrieves all users in the current workspace.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	workspaceID := middleware.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	conn, err := WithWorkspace(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := "SELECT " + userSelectColumns + " FROM users WHERE org_id = $1 ORDER BY name ASC"
	rows, err := conn.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading users: %w", err)
	}

	return users, nil
}

func scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID,
		&user.OrgID,
		&user.Name,
		&user.Role,
	)
	return user, err
}
