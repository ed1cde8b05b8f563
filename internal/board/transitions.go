package board

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/harborview/taskboard/internal/models"
)

// Variant selects the column set of a board.
type Variant int

const (
	// VariantProject is the per-project board with all four columns.
	VariantProject Variant = iota
	// VariantGlobal is the global board, which omits on-hold.
	VariantGlobal
)

var (
	// ErrInvalidTransition is returned when a status move is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnknownStatus is returned when a status is not recognized.
	ErrUnknownStatus = errors.New("unknown task status")
)

// InvalidTransitionError provides details about a rejected move.
type InvalidTransitionError struct {
	From models.TaskStatus
	To   models.TaskStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

var projectColumns = []models.TaskStatus{
	models.StatusOnHold,
	models.StatusAssigned,
	models.StatusInProgress,
	models.StatusCompleted,
}

var globalColumns = []models.TaskStatus{
	models.StatusAssigned,
	models.StatusInProgress,
	models.StatusCompleted,
}

// Transitions encodes the allowed column states and the ledger side effects
// triggered when a task enters or leaves completed.
//
// Every column accepts a drop from every other column. The transition table
// is still consulted explicitly so that a stricter workflow is a data
// change, not a redesign.
type Transitions struct {
	client   Client
	notifier Notifier
	variant  Variant
	allowed  map[models.TaskStatus]map[models.TaskStatus]struct{}
}

// NewTransitions builds the controller for the given board variant.
func NewTransitions(client Client, notifier Notifier, variant Variant) *Transitions {
	columns := projectColumns
	if variant == VariantGlobal {
		columns = globalColumns
	}

	allowed := make(map[models.TaskStatus]map[models.TaskStatus]struct{}, len(columns))
	for _, from := range columns {
		targets := make(map[models.TaskStatus]struct{}, len(columns)-1)
		for _, to := range columns {
			if to != from {
				targets[to] = struct{}{}
			}
		}
		allowed[from] = targets
	}

	return &Transitions{
		client:   client,
		notifier: notifier,
		variant:  variant,
		allowed:  allowed,
	}
}

// Columns returns the board's column statuses in display order.
func (t *Transitions) Columns() []models.TaskStatus {
	if t.variant == VariantGlobal {
		return globalColumns
	}
	return projectColumns
}

// Check validates a status move against the transition table.
func (t *Transitions) Check(from, to models.TaskStatus) error {
	targets, ok := t.allowed[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if _, ok := t.allowed[to]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if from == to {
		return nil
	}
	if _, ok := targets[to]; !ok {
		return InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// CrossesIntoCompleted reports whether the move enters the completed column.
func CrossesIntoCompleted(from, to models.TaskStatus) bool {
	return from != models.StatusCompleted && to == models.StatusCompleted
}

// CrossesOutOfCompleted reports whether the move leaves the completed column.
func CrossesOutOfCompleted(from, to models.TaskStatus) bool {
	return from == models.StatusCompleted && to != models.StatusCompleted
}

// ApplySideEffects fires the ledger calls paired with a status move. The
// snapshot must be the task's state at mutation time with the new status
// already applied.
//
// Ledger consistency is best-effort: a failed call is logged and surfaced
// as a notification, but never reverts the status change. Only tasks with a
// project have ledger entries, and a task holds at most one live entry; the
// server backs that exclusivity with an idempotent create and a tolerant
// delete, so re-completing an already-completed task cannot duplicate.
func (t *Transitions) ApplySideEffects(ctx context.Context, snapshot models.Task, previous models.TaskStatus, completedBy string) {
	if snapshot.ProjectID == nil {
		return
	}

	switch {
	case CrossesIntoCompleted(previous, snapshot.Status):
		entry := LedgerDraft{
			ProjectID:   *snapshot.ProjectID,
			TaskID:      snapshot.ID,
			Title:       snapshot.Title,
			Description: snapshot.Description,
			Priority:    snapshot.Priority,
			DueDate:     formatDueDate(snapshot.DueDate),
			Tags:        snapshot.Tags,
			Assignee:    snapshot.Assignee,
			CompletedBy: completedBy,
		}
		if err := t.client.CreateLedgerEntry(ctx, entry); err != nil {
			log.Printf("warning: ledger create failed: task_id=%s err=%v", snapshot.ID, err)
			t.notifier.Notify(NotifyError, "task completed, but recording it in the work-done ledger failed")
		}
	case CrossesOutOfCompleted(previous, snapshot.Status):
		if err := t.client.DeleteLedgerEntry(ctx, snapshot.ID); err != nil {
			log.Printf("warning: ledger delete failed: task_id=%s err=%v", snapshot.ID, err)
			t.notifier.Notify(NotifyError, "task reopened, but removing its work-done ledger entry failed")
		}
	}
}

func formatDueDate(due *time.Time) *string {
	if due == nil {
		return nil
	}
	formatted := due.UTC().Format("2006-01-02")
	return &formatted
}
