package ws

import (
	"encoding/json"
	"testing"
	"time"
)

func mustReceiveMessage(t *testing.T, ch <-chan []byte, timeout time.Duration) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for websocket payload")
		return nil
	}
}

func mustNotReceiveMessage(t *testing.T, ch <-chan []byte, timeout time.Duration) {
	t.Helper()
	select {
	case payload := <-ch:
		t.Fatalf("expected no payload, got %q", string(payload))
	case <-time.After(timeout):
	}
}

func TestHubBroadcastFiltersByOrg(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	orgID := "550e8400-e29b-41d4-a716-446655440000"
	otherOrgID := "660e8400-e29b-41d4-a716-446655440000"

	clientA := NewClient(hub, nil)
	clientA.SetOrgID(orgID)

	clientB := NewClient(hub, nil)
	clientB.SetOrgID(orgID)

	clientOtherOrg := NewClient(hub, nil)
	clientOtherOrg.SetOrgID(otherOrgID)

	hub.Register(clientA)
	hub.Register(clientB)
	hub.Register(clientOtherOrg)

	t.Cleanup(func() {
		hub.Unregister(clientA)
		hub.Unregister(clientB)
		hub.Unregister(clientOtherOrg)
	})

	time.Sleep(25 * time.Millisecond)

	hub.Broadcast(orgID, []byte("org-wide"))
	received := mustReceiveMessage(t, clientA.Send, 200*time.Millisecond)
	if string(received) != "org-wide" {
		t.Fatalf("expected org-wide payload for clientA, got %q", string(received))
	}
	received = mustReceiveMessage(t, clientB.Send, 200*time.Millisecond)
	if string(received) != "org-wide" {
		t.Fatalf("expected org-wide payload for clientB, got %q", string(received))
	}
	mustNotReceiveMessage(t, clientOtherOrg.Send, 80*time.Millisecond)
}

func TestHubBroadcastEventWrapsPayload(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	orgID := "550e8400-e29b-41d4-a716-446655440000"

	client := NewClient(hub, nil)
	client.SetOrgID(orgID)
	hub.Register(client)
	t.Cleanup(func() { hub.Unregister(client) })

	time.Sleep(25 * time.Millisecond)

	hub.BroadcastEvent(orgID, MessageTaskStatusChanged, map[string]string{
		"task_id": "t1",
		"status":  "completed",
	})

	received := mustReceiveMessage(t, client.Send, 200*time.Millisecond)

	var event struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(received, &event); err != nil {
		t.Fatalf("failed to decode event payload: %v", err)
	}
	if event.Type != string(MessageTaskStatusChanged) {
		t.Fatalf("expected %s event, got %q", MessageTaskStatusChanged, event.Type)
	}
	if event.Data["task_id"] != "t1" || event.Data["status"] != "completed" {
		t.Fatalf("unexpected event data: %+v", event.Data)
	}
}
