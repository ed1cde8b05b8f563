package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/taskboard/internal/models"
)

func commentsFixture(t *testing.T, user models.User) (*Board, *fakeClient) {
	t.Helper()
	client := newFakeClient()
	b, _ := newTestBoard(t, client, user)
	loadSample(t, b, client)
	return b, client
}

func TestAddCommentRejectsEmptyContent(t *testing.T) {
	b, client := commentsFixture(t, models.User{ID: "user-1"})

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := b.Comments.Add(context.Background(), "t1", content)
		assert.ErrorIs(t, err, ErrEmptyContent, "content %q", content)
	}

	// No remote call and no state change.
	assert.Equal(t, 0, client.addCommentCalls)
	task, _ := b.Store.Get("t1")
	assert.Empty(t, task.Comments)
}

// Adding a comment while the task is the open detail view must land in both
// the list representation and the detail view.
func TestAddCommentUpdatesListAndDetailView(t *testing.T) {
	b, _ := commentsFixture(t, models.User{ID: "user-1"})
	require.NoError(t, b.Store.Select("t1"))

	comment, err := b.Comments.Add(context.Background(), "t1", "Looks good")
	require.NoError(t, err)
	require.NotEmpty(t, comment.ID, "server-issued id expected")

	listed, ok := b.Store.Get("t1")
	require.True(t, ok)
	require.Equal(t, 1, len(listed.Comments))
	assert.Equal(t, "Looks good", listed.Comments[0].Content)

	detail, ok := b.Store.Selected()
	require.True(t, ok)
	assert.Equal(t, listed.Comments, detail.Comments)
}

func TestAddCommentUsesServerReturnedComment(t *testing.T) {
	b, _ := commentsFixture(t, models.User{ID: "user-1"})

	first, err := b.Comments.Add(context.Background(), "t1", "one")
	require.NoError(t, err)
	second, err := b.Comments.Add(context.Background(), "t1", "two")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	task, _ := b.Store.Get("t1")
	require.Equal(t, 2, len(task.Comments))
	// Chronological append order.
	assert.Equal(t, "one", task.Comments[0].Content)
	assert.Equal(t, "two", task.Comments[1].Content)
}

func TestEditCommentOnlyByAuthor(t *testing.T) {
	b, client := commentsFixture(t, models.User{ID: "user-2"})

	comments := []models.Comment{{ID: "c1", TaskID: "t1", AuthorID: "user-1", Content: "original"}}
	require.NoError(t, b.Store.PatchByID("t1", TaskPatch{Comments: comments}))

	err := b.Comments.Edit(context.Background(), "t1", "c1", "hijacked")
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Empty(t, client.editCalls)

	task, _ := b.Store.Get("t1")
	assert.Equal(t, "original", task.Comments[0].Content)
}

func TestEditCommentReplacesContentInPlace(t *testing.T) {
	b, _ := commentsFixture(t, models.User{ID: "user-1"})

	comments := []models.Comment{
		{ID: "c1", TaskID: "t1", AuthorID: "user-1", Content: "first"},
		{ID: "c2", TaskID: "t1", AuthorID: "user-1", Content: "second"},
	}
	require.NoError(t, b.Store.PatchByID("t1", TaskPatch{Comments: comments}))

	require.NoError(t, b.Comments.Edit(context.Background(), "t1", "c1", "first, revised"))

	task, _ := b.Store.Get("t1")
	require.Equal(t, 2, len(task.Comments))
	assert.Equal(t, "first, revised", task.Comments[0].Content)
	assert.Equal(t, "c1", task.Comments[0].ID)
	assert.Equal(t, "second", task.Comments[1].Content)
}

func TestDeleteCommentRequiresConfirmation(t *testing.T) {
	b, client := commentsFixture(t, models.User{ID: "user-1"})

	comments := []models.Comment{{ID: "c1", TaskID: "t1", AuthorID: "user-1", Content: "keep me"}}
	require.NoError(t, b.Store.PatchByID("t1", TaskPatch{Comments: comments}))

	err := b.Comments.Delete(context.Background(), "t1", "c1", func() bool { return false })
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Empty(t, client.deleteCalls)

	task, _ := b.Store.Get("t1")
	assert.Equal(t, 1, len(task.Comments))
}

func TestDeleteCommentOnlyByAuthor(t *testing.T) {
	b, client := commentsFixture(t, models.User{ID: "user-2"})

	comments := []models.Comment{{ID: "c1", TaskID: "t1", AuthorID: "user-1", Content: "not yours"}}
	require.NoError(t, b.Store.PatchByID("t1", TaskPatch{Comments: comments}))

	err := b.Comments.Delete(context.Background(), "t1", "c1", func() bool { return true })
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Empty(t, client.deleteCalls)
}

func TestDeleteCommentRemovesFromArray(t *testing.T) {
	b, _ := commentsFixture(t, models.User{ID: "user-1"})

	comments := []models.Comment{
		{ID: "c1", TaskID: "t1", AuthorID: "user-1", Content: "first"},
		{ID: "c2", TaskID: "t1", AuthorID: "user-1", Content: "second"},
	}
	require.NoError(t, b.Store.PatchByID("t1", TaskPatch{Comments: comments}))

	require.NoError(t, b.Comments.Delete(context.Background(), "t1", "c1", func() bool { return true }))

	task, _ := b.Store.Get("t1")
	require.Equal(t, 1, len(task.Comments))
	assert.Equal(t, "c2", task.Comments[0].ID)
}

func TestCommentFailureLeavesLocalStateUnchanged(t *testing.T) {
	b, client := commentsFixture(t, models.User{ID: "user-1"})
	client.addCommentErr = assert.AnError

	_, err := b.Comments.Add(context.Background(), "t1", "will fail")
	require.Error(t, err)

	// Comments are not optimistic: nothing to roll back.
	task, _ := b.Store.Get("t1")
	assert.Empty(t, task.Comments)
}

func TestRefreshCommentsReplacesArray(t *testing.T) {
	b, client := commentsFixture(t, models.User{ID: "user-1"})

	client.comments["t1"] = []models.Comment{
		{ID: "c1", TaskID: "t1", Content: "from server"},
	}
	require.NoError(t, b.Comments.Refresh(context.Background(), "t1"))

	task, _ := b.Store.Get("t1")
	require.Equal(t, 1, len(task.Comments))
	assert.Equal(t, "from server", task.Comments[0].Content)
}
