// Package models defines shared domain types for the task board.
//
// Note: Postgres-facing input structs live in the store package alongside
// their data access methods. This package holds the types that cross package
// boundaries: board engine, HTTP client, and API handlers all speak in these.
package models

import (
	"strings"
	"time"
)

// TaskStatus represents a board column.
type TaskStatus string

const (
	StatusOnHold     TaskStatus = "on-hold"
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// TaskPriority represents task urgency.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task represents a card on the board.
type Task struct {
	ID             string               `json:"id"`
	OrgID          string               `json:"org_id"`
	ProjectID      *string              `json:"project_id,omitempty"`
	Title          string               `json:"title"`
	Description    *string              `json:"description,omitempty"`
	Assignee       *string              `json:"assignee,omitempty"`
	AssigneeAvatar string               `json:"assignee_avatar,omitempty"`
	Priority       TaskPriority         `json:"priority"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	Tags           []string             `json:"tags"`
	Status         TaskStatus           `json:"status"`
	Comments       []Comment            `json:"comments"`
	Attachments    []AttachmentMetadata `json:"attachments"`
	ReportCount    int                  `json:"report_count"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Clone returns a deep copy of the task. The optimistic coordinator relies on
// clones for its rollback snapshots, so every reference field must be copied.
func (t Task) Clone() Task {
	clone := t
	if t.ProjectID != nil {
		v := *t.ProjectID
		clone.ProjectID = &v
	}
	if t.Description != nil {
		v := *t.Description
		clone.Description = &v
	}
	if t.Assignee != nil {
		v := *t.Assignee
		clone.Assignee = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		clone.DueDate = &v
	}
	if t.Tags != nil {
		clone.Tags = append([]string(nil), t.Tags...)
	}
	if t.Comments != nil {
		clone.Comments = append([]Comment(nil), t.Comments...)
	}
	if t.Attachments != nil {
		clone.Attachments = append([]AttachmentMetadata(nil), t.Attachments...)
	}
	return clone
}

// Comment represents a comment on a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Avatar    string    `json:"avatar,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportMessage is a single issue flag raised against a task. Reports carry
// no identity beyond their message; the UI only shows an aggregate.
type ReportMessage struct {
	Message string `json:"message"`
}

// ReportSummary aggregates the reports filed against a task.
type ReportSummary struct {
	Count    int             `json:"count"`
	Messages []ReportMessage `json:"messages"`
}

// AttachmentKind is a coarse classifier used purely for icon selection.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentZip      AttachmentKind = "zip"
	AttachmentDocument AttachmentKind = "document"
	AttachmentVideo    AttachmentKind = "video"
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentOther    AttachmentKind = "other"
)

// AttachmentMetadata describes an uploaded file attached to a task.
type AttachmentMetadata struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	SizeBytes int64          `json:"size_bytes"`
	Kind      AttachmentKind `json:"kind"`
	URL       string         `json:"url"`
}

// LedgerEntry is a persisted record of a task's completion, decoupled from
// the task's live status.
type LedgerEntry struct {
	ID          string       `json:"id"`
	OrgID       string       `json:"org_id"`
	ProjectID   string       `json:"project_id"`
	TaskID      string       `json:"task_id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Tags        []string     `json:"tags"`
	Assignee    *string      `json:"assignee,omitempty"`
	CompletedBy string       `json:"completed_by"`
	CompletedAt time.Time    `json:"completed_at"`
}

// User identifies the acting user on the board.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	OrgID string `json:"org_id"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(u.Role), "admin")
}

// Project represents an owning project for board-scoped tasks.
type Project struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Initials derives a two-letter avatar from a display name.
func Initials(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return ""
	}
	if len(fields) == 1 {
		runes := []rune(fields[0])
		if len(runes) == 1 {
			return strings.ToUpper(string(runes[0]))
		}
		return strings.ToUpper(string(runes[:2]))
	}
	first := []rune(fields[0])
	last := []rune(fields[len(fields)-1])
	return strings.ToUpper(string(first[0]) + string(last[0]))
}

// NormalizeTags trims entries, drops empties, and suppresses duplicates
// while preserving insertion order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// PlainText strips markup from a rich-text description for previews and
// search. Tags are dropped, whitespace collapsed.
func PlainText(markup string) string {
	var b strings.Builder
	inTag := false
	for _, r := range markup {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ValidTaskStatus reports whether status is a known board column.
func ValidTaskStatus(status TaskStatus) bool {
	switch status {
	case StatusOnHold, StatusAssigned, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ValidTaskPriority reports whether priority is a known level.
func ValidTaskPriority(priority TaskPriority) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
