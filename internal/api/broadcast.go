package api

import (
	"github.com/harborview/taskboard/internal/models"
	"github.com/harborview/taskboard/internal/ws"
)

type taskEventPayload struct {
	Task models.Task `json:"task"`
}

type taskStatusEventPayload struct {
	Task           models.Task `json:"task"`
	PreviousStatus string      `json:"previous_status"`
}

type taskRefPayload struct {
	TaskID string `json:"task_id"`
}

type commentEventPayload struct {
	Comment models.Comment `json:"comment"`
}

func broadcastTaskCreated(hub *ws.Hub, task models.Task) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(task.OrgID, ws.MessageTaskCreated, taskEventPayload{Task: task})
}

func broadcastTaskUpdated(hub *ws.Hub, task models.Task) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(task.OrgID, ws.MessageTaskUpdated, taskEventPayload{Task: task})
}

func broadcastTaskStatusChanged(hub *ws.Hub, task models.Task, previousStatus string) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(task.OrgID, ws.MessageTaskStatusChanged, taskStatusEventPayload{
		Task:           task,
		PreviousStatus: previousStatus,
	})
}

func broadcastTaskDeleted(hub *ws.Hub, orgID, taskID string) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(orgID, ws.MessageTaskDeleted, taskRefPayload{TaskID: taskID})
}

func broadcastTaskReported(hub *ws.Hub, orgID, taskID string) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(orgID, ws.MessageTaskReported, taskRefPayload{TaskID: taskID})
}

func broadcastCommentAdded(hub *ws.Hub, orgID string, comment models.Comment) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(orgID, ws.MessageCommentAdded, commentEventPayload{Comment: comment})
}

func broadcastCommentUpdated(hub *ws.Hub, orgID string, comment models.Comment) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(orgID, ws.MessageCommentUpdated, commentEventPayload{Comment: comment})
}

func broadcastCommentDeleted(hub *ws.Hub, orgID, commentID string) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(orgID, ws.MessageCommentDeleted, map[string]string{"comment_id": commentID})
}
