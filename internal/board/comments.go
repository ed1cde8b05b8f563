package board

import (
	"context"
	"strings"

	"github.com/harborview/taskboard/internal/models"
)

// Comments manages the comment sub-resource of tasks.
//
// Comment mutations are not optimistic: the local array is only updated
// after a confirmed success, so no rollback is needed. Because the detail
// view is a lookup into the store, updating the task's comment array once
// keeps the list and the open detail in agreement.
type Comments struct {
	store    *Store
	client   Client
	notifier Notifier
	user     models.User
}

// NewComments wires a comment manager for the acting user.
func NewComments(store *Store, client Client, notifier Notifier, user models.User) *Comments {
	return &Comments{store: store, client: client, notifier: notifier, user: user}
}

// Add posts a comment and appends the server-returned comment, which
// carries the authoritative id and timestamp. Empty or whitespace-only
// content is rejected before any remote call.
func (c *Comments) Add(ctx context.Context, taskID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	task, ok := c.store.Get(taskID)
	if !ok {
		return nil, ErrTaskNotFound
	}

	comment, err := c.client.AddComment(ctx, taskID, content)
	if err != nil {
		c.notifier.Notify(NotifyError, "failed to add comment")
		return nil, err
	}

	comments := append(append([]models.Comment(nil), task.Comments...), *comment)
	if err := c.store.PatchByID(taskID, TaskPatch{Comments: comments}); err != nil {
		return nil, err
	}
	return comment, nil
}

// Edit replaces a comment's content in place, leaving ordering unchanged.
// Only the author may edit; the capability check decides the affordance and
// the server enforces it again.
func (c *Comments) Edit(ctx context.Context, taskID, commentID, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	task, ok := c.store.Get(taskID)
	if !ok {
		return ErrTaskNotFound
	}
	comment, ok := findComment(task.Comments, commentID)
	if !ok {
		return ErrTaskNotFound
	}
	if !Can(c.user, comment).Has(ActionCommentEdit) {
		return ErrNotAllowed
	}

	if err := c.client.EditComment(ctx, commentID, content); err != nil {
		c.notifier.Notify(NotifyError, "failed to edit comment")
		return err
	}

	comments := append([]models.Comment(nil), task.Comments...)
	for i := range comments {
		if comments[i].ID == commentID {
			comments[i].Content = content
			break
		}
	}
	return c.store.PatchByID(taskID, TaskPatch{Comments: comments})
}

// Delete removes a comment after explicit user confirmation. Only the
// author may delete.
func (c *Comments) Delete(ctx context.Context, taskID, commentID string, confirm func() bool) error {
	task, ok := c.store.Get(taskID)
	if !ok {
		return ErrTaskNotFound
	}
	comment, ok := findComment(task.Comments, commentID)
	if !ok {
		return ErrTaskNotFound
	}
	if !Can(c.user, comment).Has(ActionCommentDelete) {
		return ErrNotAllowed
	}
	if confirm != nil && !confirm() {
		return ErrNotConfirmed
	}

	if err := c.client.DeleteComment(ctx, commentID); err != nil {
		c.notifier.Notify(NotifyError, "failed to delete comment")
		return err
	}

	comments := make([]models.Comment, 0, len(task.Comments)-1)
	for _, existing := range task.Comments {
		if existing.ID != commentID {
			comments = append(comments, existing)
		}
	}
	return c.store.PatchByID(taskID, TaskPatch{Comments: comments})
}

// Refresh replaces a task's comment array with server truth. Used when a
// task detail is opened.
func (c *Comments) Refresh(ctx context.Context, taskID string) error {
	if _, ok := c.store.Get(taskID); !ok {
		return ErrTaskNotFound
	}

	comments, err := c.client.ListComments(ctx, taskID)
	if err != nil {
		c.notifier.Notify(NotifyError, "failed to load comments")
		return err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return c.store.PatchByID(taskID, TaskPatch{Comments: comments})
}

func findComment(comments []models.Comment, commentID string) (models.Comment, bool) {
	for _, comment := range comments {
		if comment.ID == commentID {
			return comment, true
		}
	}
	return models.Comment{}, false
}
