package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harborview/taskboard/internal/models"
)

// fakeClient records every call and lets tests script failures. Its ledger
// mirrors the server's semantics: create is an upsert keyed by task id,
// delete of a missing entry succeeds.
type fakeClient struct {
	mu sync.Mutex

	listTasksResult []models.Task
	listTasksErr    error
	listTasksCalls  int

	createTaskErr error
	updateTaskErr error

	statusErr         error
	statusErrByStatus map[models.TaskStatus]error
	statusCalls       []statusCall
	// statusStarted receives the task id when a status call begins;
	// statusGate, when set, holds the call open until closed.
	statusStarted chan string
	statusGate    chan struct{}

	deleteTaskErr   error
	deleteTaskCalls []string

	comments       map[string][]models.Comment
	addCommentErr  error
	addCommentCalls int
	editCommentErr error
	editCalls      []string
	deleteCommentErr error
	deleteCalls    []string

	reports       map[string]*models.ReportSummary
	addReportErr  error
	reportCalls   int
	listReportsCalls int

	ledger          map[string]LedgerDraft
	ledgerCreates   []LedgerDraft
	ledgerDeletes   []string
	ledgerCreateErr error
	ledgerDeleteErr error

	nextID int
}

type statusCall struct {
	TaskID string
	Status models.TaskStatus
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		comments: make(map[string][]models.Comment),
		reports:  make(map[string]*models.ReportSummary),
		ledger:   make(map[string]LedgerDraft),
	}
}

func (f *fakeClient) mintID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeClient) ListTasks(ctx context.Context, scope Scope) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listTasksCalls++
	if f.listTasksErr != nil {
		return nil, f.listTasksErr
	}
	out := make([]models.Task, len(f.listTasksResult))
	for i, task := range f.listTasksResult {
		out[i] = task.Clone()
	}
	return out, nil
}

func (f *fakeClient) CreateTask(ctx context.Context, fields CreateTaskFields, uploads []Upload) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createTaskErr != nil {
		return nil, f.createTaskErr
	}
	task := models.Task{
		ID:        f.mintID("task"),
		ProjectID: fields.ProjectID,
		Title:     fields.Title,
		Priority:  fields.Priority,
		Tags:      models.NormalizeTags(fields.Tags),
		Status:    fields.Status,
		CreatedAt: time.Now().UTC(),
	}
	for _, upload := range uploads {
		task.Attachments = append(task.Attachments, models.AttachmentMetadata{
			ID:        f.mintID("att"),
			Name:      upload.Name,
			SizeBytes: int64(len(upload.Content)),
			Kind:      ClassifyAttachment(upload.Name, upload.MimeType),
		})
	}
	return &task, nil
}

func (f *fakeClient) UpdateTask(ctx context.Context, id string, fields UpdateTaskFields, uploads []Upload) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateTaskErr != nil {
		return nil, f.updateTaskErr
	}
	task := models.Task{ID: id, Title: "updated"}
	if fields.Title != nil {
		task.Title = *fields.Title
	}
	if fields.Status != nil {
		task.Status = *fields.Status
	}
	return &task, nil
}

func (f *fakeClient) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	f.mu.Lock()
	f.statusCalls = append(f.statusCalls, statusCall{TaskID: id, Status: status})
	started := f.statusStarted
	gate := f.statusGate
	err := f.statusErr
	if byStatus, ok := f.statusErrByStatus[status]; ok {
		err = byStatus
	}
	f.mu.Unlock()

	if started != nil {
		started <- id
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeClient) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteTaskCalls = append(f.deleteTaskCalls, id)
	return f.deleteTaskErr
}

func (f *fakeClient) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Comment(nil), f.comments[taskID]...), nil
}

func (f *fakeClient) AddComment(ctx context.Context, taskID, content string) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCommentCalls++
	if f.addCommentErr != nil {
		return nil, f.addCommentErr
	}
	comment := models.Comment{
		ID:        f.mintID("comment"),
		TaskID:    taskID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	f.comments[taskID] = append(f.comments[taskID], comment)
	return &comment, nil
}

func (f *fakeClient) EditComment(ctx context.Context, commentID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editCalls = append(f.editCalls, commentID)
	return f.editCommentErr
}

func (f *fakeClient) DeleteComment(ctx context.Context, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, commentID)
	return f.deleteCommentErr
}

func (f *fakeClient) ListReports(ctx context.Context, taskID string) (*models.ReportSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReportsCalls++
	if summary, ok := f.reports[taskID]; ok {
		copied := *summary
		copied.Messages = append([]models.ReportMessage(nil), summary.Messages...)
		return &copied, nil
	}
	return &models.ReportSummary{Messages: []models.ReportMessage{}}, nil
}

func (f *fakeClient) AddReport(ctx context.Context, taskID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportCalls++
	if f.addReportErr != nil {
		return f.addReportErr
	}
	summary, ok := f.reports[taskID]
	if !ok {
		summary = &models.ReportSummary{}
		f.reports[taskID] = summary
	}
	summary.Count++
	summary.Messages = append(summary.Messages, models.ReportMessage{Message: message})
	return nil
}

func (f *fakeClient) CreateLedgerEntry(ctx context.Context, entry LedgerDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledgerCreates = append(f.ledgerCreates, entry)
	if f.ledgerCreateErr != nil {
		return f.ledgerCreateErr
	}
	f.ledger[entry.TaskID] = entry
	return nil
}

func (f *fakeClient) DeleteLedgerEntry(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledgerDeletes = append(f.ledgerDeletes, taskID)
	if f.ledgerDeleteErr != nil {
		return f.ledgerDeleteErr
	}
	delete(f.ledger, taskID)
	return nil
}

func (f *fakeClient) ledgerEntry(taskID string) (LedgerDraft, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.ledger[taskID]
	return entry, ok
}

func (f *fakeClient) ledgerSize() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ledger)
}

func (f *fakeClient) recordedStatusCalls() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statusCall(nil), f.statusCalls...)
}

func (f *fakeClient) recordedLedgerCreates() []LedgerDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LedgerDraft(nil), f.ledgerCreates...)
}

func (f *fakeClient) recordedLedgerDeletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ledgerDeletes...)
}

// recordingNotifier captures toasts for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(level NotifyLevel, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, string(level)+": "+message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}
