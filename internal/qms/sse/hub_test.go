package sse

import (
	"encoding/json"
	"testing"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
)

func newClient(id, userID string) *Client {
	return &Client{ID: id, UserID: userID, Events: make(chan Event, 8)}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(nil)
	a := newClient("c1", "u1")
	b := newClient("c2", "u2")
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(Event{EventType: "ping", Data: "{}"})

	for _, c := range []*Client{a, b} {
		select {
		case ev := <-c.Events:
			if ev.EventType != "ping" {
				t.Fatalf("event type = %s, want ping", ev.EventType)
			}
		default:
			t.Fatalf("client %s did not receive broadcast", c.ID)
		}
	}
}

func TestSendToUserIsScoped(t *testing.T) {
	hub := NewHub(nil)
	a := newClient("c1", "u1")
	b := newClient("c2", "u2")
	hub.Register(a)
	hub.Register(b)

	hub.SendToUser("u1", Event{EventType: "direct", Data: "{}"})

	select {
	case <-a.Events:
	default:
		t.Fatal("target user did not receive event")
	}
	select {
	case <-b.Events:
		t.Fatal("event leaked to another user")
	default:
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	hub := NewHub(nil)
	c := newClient("c1", "u1")
	hub.Register(c)
	hub.Unregister("c1")

	if _, ok := <-c.Events; ok {
		t.Fatal("expected closed channel after unregister")
	}

	// 已注销的客户端不再收事件，也不会panic
	hub.Broadcast(Event{EventType: "ping", Data: "{}"})
}

func TestPublishDefectEventPayload(t *testing.T) {
	hub := NewHub(nil)
	c := newClient("c1", "u1")
	hub.Register(c)

	hub.PublishDefectEvent(entity.NotifyDefectCreated, &entity.Defect{
		ID:         "DEF-0001",
		DefectType: "Cold Solder",
		Component:  "Resistor",
		PartNumber: "P0042",
		Severity:   entity.SeverityHigh,
	})

	ev := <-c.Events
	if ev.EventType != entity.NotifyDefectCreated {
		t.Fatalf("event type = %s", ev.EventType)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload["title"] != "New high Defect Detected" {
		t.Fatalf("title = %s", payload["title"])
	}
	if payload["message"] != "Cold Solder detected on Resistor (P0042)" {
		t.Fatalf("message = %s", payload["message"])
	}
	if payload["defect_id"] != "DEF-0001" || payload["severity"] != "high" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}
