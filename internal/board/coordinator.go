package board

import (
	"context"
	"sync"

	"github.com/harborview/taskboard/internal/models"
)

// Coordinator makes drag-and-drop and similar mutations feel instantaneous
// while staying consistent with the remote system of record.
//
// Each mutation captures its own snapshot of the affected task before the
// local change is applied, so concurrent mutations of different tasks
// cannot corrupt each other's rollback. A per-task generation counter
// discards the outcome of a stale request when a newer mutation has
// started in the meantime.
type Coordinator struct {
	store       *Store
	client      Client
	transitions *Transitions
	notifier    Notifier
	user        models.User

	// dispatch marshals completion callbacks onto the goroutine that owns
	// the store. The default runs callbacks inline under serial.
	dispatch func(func())

	// serial guards every store access the coordinator makes, so mutations
	// of different tasks may be issued and settle concurrently without a
	// host dispatcher.
	serial sync.Mutex

	mu          sync.Mutex
	generations map[string]uint64
}

// NewCoordinator wires a coordinator around the store and client.
func NewCoordinator(store *Store, client Client, transitions *Transitions, notifier Notifier, user models.User, dispatch func(func())) *Coordinator {
	c := &Coordinator{
		store:       store,
		client:      client,
		transitions: transitions,
		notifier:    notifier,
		user:        user,
		generations: make(map[string]uint64),
	}
	if dispatch == nil {
		dispatch = func(fn func()) {
			c.serial.Lock()
			defer c.serial.Unlock()
			fn()
		}
	}
	c.dispatch = dispatch
	return c
}

// withStore runs fn with the coordinator's store lock held.
func (c *Coordinator) withStore(fn func() error) error {
	c.serial.Lock()
	defer c.serial.Unlock()
	return fn()
}

// Mutation is the handle of an in-flight optimistic mutation.
type Mutation struct {
	done chan struct{}
	err  error
}

// Wait blocks until the remote call has settled and the local outcome
// (confirmation or rollback) has been applied. It returns the remote error,
// if any.
func (m *Mutation) Wait() error {
	<-m.done
	return m.err
}

func (c *Coordinator) nextGeneration(taskID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[taskID]++
	return c.generations[taskID]
}

func (c *Coordinator) isCurrent(taskID string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[taskID] == gen
}

// MoveTask performs an optimistic drag-and-drop status change:
//
//  1. snapshot the task,
//  2. mutate the store synchronously,
//  3. issue the remote status update,
//  4. fire the ledger side effects once the update call is issued,
//  5. roll back to the snapshot if the update fails.
//
// Side effects already issued are not undone on rollback; ledger and task
// status may transiently disagree.
func (c *Coordinator) MoveTask(ctx context.Context, taskID string, to models.TaskStatus) (*Mutation, error) {
	var (
		snapshot models.Task
		at       int
		gen      uint64
		previous models.TaskStatus
		noop     bool
	)
	err := c.withStore(func() error {
		task, ok := c.store.Get(taskID)
		if !ok {
			return ErrTaskNotFound
		}
		if err := c.transitions.Check(task.Status, to); err != nil {
			return err
		}
		previous = task.Status
		if previous == to {
			noop = true
			return nil
		}
		snapshot = task.Clone()
		at, _ = c.store.IndexOf(taskID)
		gen = c.nextGeneration(taskID)

		// Optimistic local change: the UI reflects the new column
		// immediately.
		status := to
		return c.store.PatchByID(taskID, TaskPatch{Status: &status})
	})
	if err != nil {
		return nil, err
	}
	if noop {
		done := make(chan struct{})
		close(done)
		return &Mutation{done: done}, nil
	}

	moved := snapshot.Clone()
	moved.Status = to

	mutation := &Mutation{done: make(chan struct{})}
	persisted := make(chan error, 1)
	go func() {
		persisted <- c.client.UpdateTaskStatus(ctx, taskID, to)
	}()

	var settled sync.WaitGroup
	settled.Add(2)

	// Side effects are sequenced after the persistence call is issued, not
	// after it resolves.
	go func() {
		defer settled.Done()
		c.transitions.ApplySideEffects(ctx, moved, previous, c.user.ID)
	}()

	go func() {
		defer settled.Done()
		err := <-persisted
		c.dispatch(func() {
			if !c.isCurrent(taskID, gen) {
				// A newer mutation started; this outcome is stale and must
				// not clobber newer state.
				return
			}
			if err != nil {
				mutation.err = err
				c.store.Restore(snapshot, at)
				c.notifier.Notify(NotifyError, "failed to move task; change reverted")
			}
		})
	}()

	go func() {
		settled.Wait()
		close(mutation.done)
	}()

	return mutation, nil
}

// CreateTask creates a task remotely and inserts the server-returned task.
// Creation is not optimistic: the client never invents an id, so the local
// insert waits for the authoritative task.
func (c *Coordinator) CreateTask(ctx context.Context, fields CreateTaskFields, uploads []Upload) (*models.Task, error) {
	if !validTitle(fields.Title) {
		return nil, ErrTitleRequired
	}

	task, err := c.client.CreateTask(ctx, fields, uploads)
	if err != nil {
		c.notifier.Notify(NotifyError, "failed to create task")
		return nil, err
	}
	_ = c.withStore(func() error {
		c.store.Upsert(*task)
		return nil
	})
	return task, nil
}

// EditTask submits a full edit and replaces the local task with the
// server-returned one. New uploads are appended to the task's attachments
// by the server; the returned task already carries them.
func (c *Coordinator) EditTask(ctx context.Context, taskID string, fields UpdateTaskFields, uploads []Upload) (*models.Task, error) {
	err := c.withStore(func() error {
		if _, ok := c.store.Get(taskID); !ok {
			return ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if fields.Title != nil && !validTitle(*fields.Title) {
		return nil, ErrTitleRequired
	}

	task, err := c.client.UpdateTask(ctx, taskID, fields, uploads)
	if err != nil {
		c.notifier.Notify(NotifyError, "failed to update task")
		return nil, err
	}
	_ = c.withStore(func() error {
		c.store.Upsert(*task)
		return nil
	})
	return task, nil
}

// DeleteTask removes a task optimistically. The task disappears from the
// board immediately and is restored at its prior position if the remote
// delete fails. Deletion is admin-gated and must be confirmed; the server
// cascades removal of comments, reports, and attachments.
func (c *Coordinator) DeleteTask(ctx context.Context, taskID string, confirm func() bool) (*Mutation, error) {
	err := c.withStore(func() error {
		task, ok := c.store.Get(taskID)
		if !ok {
			return ErrTaskNotFound
		}
		if !Can(c.user, *task).Has(ActionDeleteTask) {
			return ErrNotAllowed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if confirm != nil && !confirm() {
		return nil, ErrNotConfirmed
	}

	var (
		snapshot models.Task
		at       int
		gen      uint64
	)
	err = c.withStore(func() error {
		task, ok := c.store.Get(taskID)
		if !ok {
			return ErrTaskNotFound
		}
		snapshot = task.Clone()
		at, _ = c.store.IndexOf(taskID)
		gen = c.nextGeneration(taskID)
		return c.store.RemoveByID(taskID)
	})
	if err != nil {
		return nil, err
	}

	mutation := &Mutation{done: make(chan struct{})}
	go func() {
		err := c.client.DeleteTask(ctx, taskID)
		c.dispatch(func() {
			defer close(mutation.done)
			if !c.isCurrent(taskID, gen) {
				return
			}
			if err != nil {
				mutation.err = err
				c.store.Restore(snapshot, at)
				c.notifier.Notify(NotifyError, "failed to delete task; change reverted")
			}
		})
	}()

	return mutation, nil
}
