// Package boardclient is the HTTP implementation of board.Client. It talks
// to the task board API and reports failures as typed errors carrying the
// HTTP status, so callers can distinguish rejection from transport trouble.
package boardclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harborview/taskboard/internal/board"
	"github.com/harborview/taskboard/internal/models"
)

const maxResponseBodyBytes = 1 << 20

// Client calls the task board REST API. The zero value is not usable; build
// one with New.
type Client struct {
	baseURL string
	token   string
	orgID   string
	http    *http.Client
}

// Options configure a Client.
type Options struct {
	// Token is sent as a Bearer credential when set.
	Token string
	// OrgID is sent as the X-Org-ID header when set.
	OrgID string
	// Timeout bounds each request. Defaults to 30 seconds.
	Timeout time.Duration
	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

// New builds a Client for the given API base URL.
func New(baseURL string, opts Options) (*Client, error) {
	base := normalizeBaseURL(baseURL)
	if base == "" {
		return nil, errors.New("missing API base URL")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(opts.Token),
		orgID:   strings.TrimSpace(opts.OrgID),
		http:    httpClient,
	}, nil
}

// RequestError is a non-2xx response from the API.
type RequestError struct {
	StatusCode int
	Detail     string
}

func (e *RequestError) Error() string {
	if e == nil {
		return "request failed"
	}
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("request failed (%d)", e.StatusCode)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Detail)
}

func (e *RequestError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// HTTPStatusCode returns the HTTP status carried by typed client errors.
func HTTPStatusCode(err error) (int, bool) {
	var statusErr interface {
		HTTPStatusCode() int
	}
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	status := statusErr.HTTPStatusCode()
	if status <= 0 {
		return 0, false
	}
	return status, true
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.orgID != "" {
		req.Header.Set("X-Org-ID", c.orgID)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload interface{}) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// newMultipartRequest encodes the task fields as a JSON form field named
// "task" plus one "attachments" file part per upload.
func (c *Client) newMultipartRequest(ctx context.Context, method, path string, fields interface{}, uploads []board.Upload) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if err := writer.WriteField("task", string(payload)); err != nil {
		return nil, err
	}
	for _, upload := range uploads {
		part, err := writer.CreateFormFile("attachments", upload.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(upload.Content); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr != nil {
		return readErr
	}

	if resp.StatusCode >= 400 {
		return &RequestError{
			StatusCode: resp.StatusCode,
			Detail:     extractErrorDetail(payload),
		}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return io.EOF
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("invalid JSON response (%d): %w", resp.StatusCode, err)
	}
	return nil
}

// extractErrorDetail pulls a human-readable message out of a JSON error
// body, falling back to the raw text.
func extractErrorDetail(payload []byte) string {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return ""
	}
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err == nil {
		for _, key := range []string{"error", "message", "detail"} {
			if value, ok := body[key].(string); ok && strings.TrimSpace(value) != "" {
				return truncate(strings.TrimSpace(value), 200)
			}
		}
	}
	return truncate(trimmed, 200)
}

func truncate(value string, max int) string {
	collapsed := strings.Join(strings.Fields(value), " ")
	if len(collapsed) <= max {
		return collapsed
	}
	if max <= 3 {
		return collapsed[:max]
	}
	return collapsed[:max-3] + "..."
}

func normalizeBaseURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	return strings.TrimRight(value, "/")
}

type taskListResponse struct {
	Tasks []models.Task `json:"tasks"`
	Total int           `json:"total"`
}

type commentListResponse struct {
	Comments []models.Comment `json:"comments"`
}

// ListTasks implements board.Client.
func (c *Client) ListTasks(ctx context.Context, scope board.Scope) ([]models.Task, error) {
	q := url.Values{}
	if scope.ProjectID != nil && strings.TrimSpace(*scope.ProjectID) != "" {
		q.Set("project_id", strings.TrimSpace(*scope.ProjectID))
	}
	if scope.Assignee != nil && strings.TrimSpace(*scope.Assignee) != "" {
		q.Set("assignee", strings.TrimSpace(*scope.Assignee))
	}
	path := "/api/tasks"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var resp taskListResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CreateTask implements board.Client.
func (c *Client) CreateTask(ctx context.Context, fields board.CreateTaskFields, uploads []board.Upload) (*models.Task, error) {
	if strings.TrimSpace(fields.Title) == "" {
		return nil, errors.New("task title is required")
	}
	req, err := c.newMultipartRequest(ctx, http.MethodPost, "/api/tasks", fields, uploads)
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := c.do(req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask implements board.Client.
func (c *Client) UpdateTask(ctx context.Context, id string, fields board.UpdateTaskFields, uploads []board.Upload) (*models.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("task id is required")
	}
	req, err := c.newMultipartRequest(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), fields, uploads)
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := c.do(req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTaskStatus implements board.Client.
func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("task id is required")
	}
	req, err := c.newJSONRequest(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id)+"/status", map[string]string{
		"status": string(status),
	})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// DeleteTask implements board.Client.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("task id is required")
	}
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ListComments implements board.Client.
func (c *Client) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("task id is required")
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID)+"/comments", nil)
	if err != nil {
		return nil, err
	}
	var resp commentListResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// AddComment implements board.Client.
func (c *Client) AddComment(ctx context.Context, taskID, content string) (*models.Comment, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("task id is required")
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(taskID)+"/comments", map[string]string{
		"content": content,
	})
	if err != nil {
		return nil, err
	}
	var comment models.Comment
	if err := c.do(req, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// EditComment implements board.Client.
func (c *Client) EditComment(ctx context.Context, commentID, content string) error {
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return errors.New("comment id is required")
	}
	req, err := c.newJSONRequest(ctx, http.MethodPatch, "/api/comments/"+url.PathEscape(commentID), map[string]string{
		"content": content,
	})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// DeleteComment implements board.Client.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return errors.New("comment id is required")
	}
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/comments/"+url.PathEscape(commentID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ListReports implements board.Client.
func (c *Client) ListReports(ctx context.Context, taskID string) (*models.ReportSummary, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("task id is required")
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID)+"/reports", nil)
	if err != nil {
		return nil, err
	}
	var summary models.ReportSummary
	if err := c.do(req, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// AddReport implements board.Client.
func (c *Client) AddReport(ctx context.Context, taskID, message string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return errors.New("task id is required")
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(taskID)+"/reports", map[string]string{
		"message": message,
	})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// CreateLedgerEntry implements board.Client. The server upserts by task id,
// so retrying a delivery cannot produce a duplicate entry.
func (c *Client) CreateLedgerEntry(ctx context.Context, entry board.LedgerDraft) error {
	if strings.TrimSpace(entry.TaskID) == "" {
		return errors.New("task id is required")
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/ledger", entry)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// DeleteLedgerEntry implements board.Client. Deleting an absent entry is not
// an error on the server, so reopen after a lost create still converges.
func (c *Client) DeleteLedgerEntry(ctx context.Context, taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return errors.New("task id is required")
	}
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/ledger/task/"+url.PathEscape(taskID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

var _ board.Client = (*Client)(nil)
