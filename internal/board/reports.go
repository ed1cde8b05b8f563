package board

import (
	"context"
	"strings"

	"github.com/harborview/taskboard/internal/models"
)

// Reports manages the issue flags raised against tasks.
//
// After a successful report the local count is incremented and the message
// appended without re-fetching; Refresh reconciles with server truth when a
// task is selected and after reporting.
type Reports struct {
	store    *Store
	client   Client
	notifier Notifier

	// summaries caches the displayed report list per task id.
	summaries map[string]models.ReportSummary
}

// NewReports wires a report manager.
func NewReports(store *Store, client Client, notifier Notifier) *Reports {
	return &Reports{
		store:     store,
		client:    client,
		notifier:  notifier,
		summaries: make(map[string]models.ReportSummary),
	}
}

// Report files an issue flag against a task. Empty messages are rejected
// before any remote call. On success the local aggregate is trusted; no
// full re-fetch is attempted here.
func (r *Reports) Report(ctx context.Context, taskID, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	task, ok := r.store.Get(taskID)
	if !ok {
		return ErrTaskNotFound
	}

	if err := r.client.AddReport(ctx, taskID, message); err != nil {
		r.notifier.Notify(NotifyError, "failed to report task")
		return err
	}

	summary := r.summaries[taskID]
	summary.Count++
	summary.Messages = append(summary.Messages, models.ReportMessage{Message: message})
	r.summaries[taskID] = summary

	count := task.ReportCount + 1
	return r.store.PatchByID(taskID, TaskPatch{ReportCount: &count})
}

// Refresh fetches the authoritative report aggregate for a task.
func (r *Reports) Refresh(ctx context.Context, taskID string) (*models.ReportSummary, error) {
	if _, ok := r.store.Get(taskID); !ok {
		return nil, ErrTaskNotFound
	}

	summary, err := r.client.ListReports(ctx, taskID)
	if err != nil {
		r.notifier.Notify(NotifyError, "failed to load reports")
		return nil, err
	}

	r.summaries[taskID] = *summary
	if err := r.store.PatchByID(taskID, TaskPatch{ReportCount: &summary.Count}); err != nil {
		return nil, err
	}
	return summary, nil
}

// Summary returns the cached report aggregate for a task.
func (r *Reports) Summary(taskID string) models.ReportSummary {
	return r.summaries[taskID]
}
