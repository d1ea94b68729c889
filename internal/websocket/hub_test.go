package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(hub *Hub, groups ...string) *Client {
	client := &Client{Hub: hub, Send: make(chan []byte, 16), groups: make(map[string]bool)}
	for _, group := range groups {
		hub.join(client, group)
	}
	hub.register <- client
	return client
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case payload := <-c.Send:
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.Send:
		t.Fatalf("unexpected event delivered: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishReachesOnlySubscribedGroup(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	kitchen := newTestClient(hub, GroupKitchen)
	bar := newTestClient(hub, GroupBar)
	dashboard := newTestClient(hub, GroupDashboard)

	hub.Publish(GroupKitchen, "order.confirmed", map[string]string{"table": "T1"})

	event := recv(t, kitchen)
	if event.Event != "order.confirmed" {
		t.Errorf("event name = %q, want order.confirmed", event.Event)
	}
	data, ok := event.Data.(map[string]interface{})
	if !ok || data["table"] != "T1" {
		t.Errorf("unexpected event data: %#v", event.Data)
	}

	assertSilent(t, bar)
	assertSilent(t, dashboard)
}

func TestPublishToMultipleGroupMembers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := newTestClient(hub, GroupDashboard)
	second := newTestClient(hub, GroupDashboard, GroupKitchen)

	hub.Publish(GroupDashboard, "payment.recorded", map[string]string{"tab_id": "x"})

	if event := recv(t, first); event.Event != "payment.recorded" {
		t.Errorf("first client got %q, want payment.recorded", event.Event)
	}
	if event := recv(t, second); event.Event != "payment.recorded" {
		t.Errorf("second client got %q, want payment.recorded", event.Event)
	}
}

func TestPublishUnknownGroupDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, GroupKitchen)

	hub.Publish("cellar", "order.confirmed", nil)

	assertSilent(t, client)
}

func TestJoinAndLeave(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub)

	hub.Publish(GroupBar, "order.confirmed", nil)
	assertSilent(t, client)

	hub.join(client, GroupBar)
	hub.Publish(GroupBar, "order.confirmed", nil)
	if event := recv(t, client); event.Event != "order.confirmed" {
		t.Errorf("event after join = %q, want order.confirmed", event.Event)
	}

	hub.leave(client, GroupBar)
	hub.Publish(GroupBar, "order.confirmed", nil)
	assertSilent(t, client)
}

func TestJoinRejectsUnknownGroup(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub)
	hub.join(client, "cellar")

	hub.mu.Lock()
	joined := client.groups["cellar"]
	hub.mu.Unlock()
	if joined {
		t.Errorf("client joined unknown group")
	}
}
