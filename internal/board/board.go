// Package board implements the task board engine: an in-memory task store,
// the column state machine with its completion ledger side effects, the
// optimistic mutation coordinator, and the comment/report/attachment
// sub-resource managers.
//
// The engine owns no persistence of its own. Every durable change goes
// through a Client, and the engine's state is a cache of the remote system
// of record that is mutated optimistically and rolled back on failure.
package board

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/harborview/taskboard/internal/models"
)

var (
	// ErrTaskNotFound is returned when a task id is not present in the store.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTitleRequired is returned when creating a task without a title.
	ErrTitleRequired = errors.New("task title is required")
	// ErrEmptyContent is returned for empty or whitespace-only comment content.
	ErrEmptyContent = errors.New("comment content is empty")
	// ErrEmptyMessage is returned for empty report messages.
	ErrEmptyMessage = errors.New("report message is empty")
	// ErrNotAllowed is returned when the acting user lacks the capability.
	ErrNotAllowed = errors.New("action not allowed")
	// ErrNotConfirmed is returned when the user declines a confirmation prompt.
	ErrNotConfirmed = errors.New("action not confirmed")
)

// Scope selects which tasks a load fetches: all tasks, tasks for one
// project, or tasks for one assignee.
type Scope struct {
	ProjectID *string
	Assignee  *string
}

// ScopeAll selects every task visible to the workspace.
func ScopeAll() Scope { return Scope{} }

// ScopeProject selects the tasks of a single project.
func ScopeProject(projectID string) Scope { return Scope{ProjectID: &projectID} }

// ScopeAssignee selects the tasks assigned to one display name.
func ScopeAssignee(assignee string) Scope { return Scope{Assignee: &assignee} }

// Client is the remote persistence collaborator. Implementations report
// failure through the returned error; the engine never inspects transports.
type Client interface {
	ListTasks(ctx context.Context, scope Scope) ([]models.Task, error)
	CreateTask(ctx context.Context, fields CreateTaskFields, uploads []Upload) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, fields UpdateTaskFields, uploads []Upload) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error
	DeleteTask(ctx context.Context, id string) error

	ListComments(ctx context.Context, taskID string) ([]models.Comment, error)
	AddComment(ctx context.Context, taskID, content string) (*models.Comment, error)
	EditComment(ctx context.Context, commentID, content string) error
	DeleteComment(ctx context.Context, commentID string) error

	ListReports(ctx context.Context, taskID string) (*models.ReportSummary, error)
	AddReport(ctx context.Context, taskID, message string) error

	CreateLedgerEntry(ctx context.Context, entry LedgerDraft) error
	DeleteLedgerEntry(ctx context.Context, taskID string) error
}

// CreateTaskFields are the client-supplied fields of a new task.
type CreateTaskFields struct {
	ProjectID   *string             `json:"project_id,omitempty"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Assignee    *string             `json:"assignee,omitempty"`
	Priority    models.TaskPriority `json:"priority,omitempty"`
	DueDate     *string             `json:"due_date,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Status      models.TaskStatus   `json:"status,omitempty"`
}

// UpdateTaskFields are the fields of a full task edit. Nil members are left
// unchanged by the server.
type UpdateTaskFields struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Assignee    *string              `json:"assignee,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	DueDate     *string              `json:"due_date,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Status      *models.TaskStatus   `json:"status,omitempty"`
}

// LedgerDraft is the snapshot sent when a task crosses into completed.
type LedgerDraft struct {
	ProjectID   string              `json:"project_id"`
	TaskID      string              `json:"task_id"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *string             `json:"due_date,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Assignee    *string             `json:"assignee,omitempty"`
	CompletedBy string              `json:"completed_by"`
}

// Upload is one file attached to a create or edit submission.
type Upload struct {
	Name     string
	MimeType string
	Content  []byte
}

// Notifier surfaces non-blocking user notifications (toast-equivalent).
type Notifier interface {
	Notify(level NotifyLevel, message string)
}

// NotifyLevel classifies a notification.
type NotifyLevel string

const (
	NotifyInfo  NotifyLevel = "info"
	NotifyError NotifyLevel = "error"
)

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level NotifyLevel, message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(level NotifyLevel, message string) { f(level, message) }

// LogNotifier writes notifications to the process log. It is the fallback
// when the host wires no UI notifier.
func LogNotifier() Notifier {
	return NotifierFunc(func(level NotifyLevel, message string) {
		log.Printf("notify [%s]: %s", level, message)
	})
}

// Board ties the engine's components together for one board view.
type Board struct {
	Store       *Store
	Transitions *Transitions
	Coordinator *Coordinator
	Comments    *Comments
	Reports     *Reports
	User        models.User
}

// Options configures a Board.
type Options struct {
	// Variant selects the column set (global boards omit on-hold).
	Variant Variant
	// Notifier receives failure toasts. Defaults to LogNotifier.
	Notifier Notifier
	// Dispatch marshals completion callbacks onto the goroutine that owns
	// the store. When nil, the coordinator serializes its own store access,
	// so mutations of different tasks may be in flight at once.
	Dispatch func(func())
}

// New builds a Board around the given client for the acting user.
func New(client Client, user models.User, opts Options) *Board {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier()
	}

	store := NewStore()
	transitions := NewTransitions(client, notifier, opts.Variant)
	coordinator := NewCoordinator(store, client, transitions, notifier, user, opts.Dispatch)

	return &Board{
		Store:       store,
		Transitions: transitions,
		Coordinator: coordinator,
		Comments:    NewComments(store, client, notifier, user),
		Reports:     NewReports(store, client, notifier),
		User:        user,
	}
}

// Load replaces the store contents from the remote source. A fresh load
// always fully replaces prior state; there are no merge semantics.
func (b *Board) Load(ctx context.Context, scope Scope) error {
	tasks, err := b.Coordinator.client.ListTasks(ctx, scope)
	if err != nil {
		b.Coordinator.notifier.Notify(NotifyError, "failed to load tasks")
		return err
	}
	b.Store.Load(tasks)
	return nil
}

func validTitle(title string) bool {
	return strings.TrimSpace(title) != ""
}
