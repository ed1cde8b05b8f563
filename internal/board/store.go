package board

import (
	"time"

	"github.com/harborview/taskboard/internal/models"
)

// Store is the single source of truth for the currently loaded task set.
//
// Ordering is display order: tasks keep their array position across Upsert
// and PatchByID, and Load preserves the order the remote source returned.
//
// The store itself is not goroutine-safe. It is owned by the event loop
// that renders the board; the coordinator marshals its completion callbacks
// onto that loop via its dispatch function, or serializes its own store
// access when the host supplies none.
type Store struct {
	tasks []models.Task

	// selectedID is the open detail view, held as an id into the task list
	// rather than a copy, so sub-mutations have a single place to write.
	selectedID string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load fully replaces the task set. Prior state, including any selection
// that no longer resolves, is discarded.
func (s *Store) Load(tasks []models.Task) {
	s.tasks = make([]models.Task, len(tasks))
	for i, task := range tasks {
		s.tasks[i] = task.Clone()
	}
	if s.selectedID != "" {
		if _, ok := s.indexOf(s.selectedID); !ok {
			s.selectedID = ""
		}
	}
}

// Tasks returns the tasks in display order. The returned slice is the
// store's own; callers must not retain it across mutations.
func (s *Store) Tasks() []models.Task {
	return s.tasks
}

// Len returns the number of loaded tasks.
func (s *Store) Len() int {
	return len(s.tasks)
}

// Get returns a pointer to the task with the given id, or false.
// The pointer is only valid until the next mutation.
func (s *Store) Get(id string) (*models.Task, bool) {
	if i, ok := s.indexOf(id); ok {
		return &s.tasks[i], true
	}
	return nil, false
}

// Upsert inserts a new task at the end of display order, or replaces an
// existing task in place without moving it among its siblings.
func (s *Store) Upsert(task models.Task) {
	if i, ok := s.indexOf(task.ID); ok {
		s.tasks[i] = task.Clone()
		return
	}
	s.tasks = append(s.tasks, task.Clone())
}

// TaskPatch is a shallow field merge. Nil members leave the field unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Assignee    *string
	Priority    *models.TaskPriority
	DueDate     *time.Time
	Tags        []string
	Status      *models.TaskStatus
	Comments    []models.Comment
	Attachments []models.AttachmentMetadata
	ReportCount *int
}

// PatchByID shallow-merges the patch into the matching task.
// Returns ErrTaskNotFound if the id is unknown.
func (s *Store) PatchByID(id string, patch TaskPatch) error {
	i, ok := s.indexOf(id)
	if !ok {
		return ErrTaskNotFound
	}

	task := &s.tasks[i]
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = patch.Description
	}
	if patch.Assignee != nil {
		task.Assignee = patch.Assignee
		task.AssigneeAvatar = models.Initials(*patch.Assignee)
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		task.Tags = models.NormalizeTags(patch.Tags)
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Comments != nil {
		task.Comments = patch.Comments
	}
	if patch.Attachments != nil {
		task.Attachments = patch.Attachments
	}
	if patch.ReportCount != nil {
		task.ReportCount = *patch.ReportCount
	}
	return nil
}

// RemoveByID deletes the task and detaches the open selection if it
// referenced it. Returns ErrTaskNotFound if the id is unknown.
func (s *Store) RemoveByID(id string) error {
	i, ok := s.indexOf(id)
	if !ok {
		return ErrTaskNotFound
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	if s.selectedID == id {
		s.selectedID = ""
	}
	return nil
}

// Restore puts a previously captured task clone back, replacing the live
// task in place or, if it was removed, re-inserting it at its captured
// display position.
func (s *Store) Restore(snapshot models.Task, at int) {
	if i, ok := s.indexOf(snapshot.ID); ok {
		s.tasks[i] = snapshot.Clone()
		return
	}
	if at < 0 {
		at = 0
	}
	if at > len(s.tasks) {
		at = len(s.tasks)
	}
	s.tasks = append(s.tasks, models.Task{})
	copy(s.tasks[at+1:], s.tasks[at:])
	s.tasks[at] = snapshot.Clone()
}

// IndexOf returns the display position of the task with the given id.
func (s *Store) IndexOf(id string) (int, bool) {
	return s.indexOf(id)
}

// Select opens the detail view on the given task id.
// Returns ErrTaskNotFound if the id is unknown.
func (s *Store) Select(id string) error {
	if _, ok := s.indexOf(id); !ok {
		return ErrTaskNotFound
	}
	s.selectedID = id
	return nil
}

// Deselect closes the detail view.
func (s *Store) Deselect() {
	s.selectedID = ""
}

// Selected returns the task behind the open detail view. The detail view is
// derived state: a lookup, never a copy, so the list and the detail can
// never diverge after a mutation.
func (s *Store) Selected() (*models.Task, bool) {
	if s.selectedID == "" {
		return nil, false
	}
	return s.Get(s.selectedID)
}

// ByStatus returns the tasks of one column in display order.
func (s *Store) ByStatus(status models.TaskStatus) []models.Task {
	out := make([]models.Task, 0)
	for _, task := range s.tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}

func (s *Store) indexOf(id string) (int, bool) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i, true
		}
	}
	return 0, false
}
