package live

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestClient(eventID uuid.UUID) *Client {
	return &Client{
		ID:      uuid.NewString(),
		EventID: eventID,
		send:    make(chan WSMessage, 8),
	}
}

func TestHubRegisterAndViewers(t *testing.T) {
	t.Parallel()

	hub := NewHub(zap.NewNop(), nil, nil)
	eventID := uuid.New()

	if got := hub.Viewers(eventID); got != 0 {
		t.Fatalf("Viewers() = %d before any register", got)
	}

	a := newTestClient(eventID)
	b := newTestClient(eventID)
	hub.Register(a)
	hub.Register(b)
	if got := hub.Viewers(eventID); got != 2 {
		t.Errorf("Viewers() = %d, want 2", got)
	}

	hub.Unregister(a)
	if got := hub.Viewers(eventID); got != 1 {
		t.Errorf("Viewers() = %d after unregister, want 1", got)
	}
	hub.Unregister(b)
	if got := hub.Viewers(eventID); got != 0 {
		t.Errorf("Viewers() = %d after last unregister, want 0", got)
	}
}

func TestHubBroadcast(t *testing.T) {
	t.Parallel()

	hub := NewHub(zap.NewNop(), nil, nil)
	eventID := uuid.New()
	other := uuid.New()

	watcher := newTestClient(eventID)
	bystander := newTestClient(other)
	hub.Register(watcher)
	hub.Register(bystander)

	hub.Broadcast(eventID, "page_updated", map[string]string{"reason": "edit"})

	select {
	case msg := <-watcher.send:
		if msg.Event != "page_updated" {
			t.Errorf("event = %q, want page_updated", msg.Event)
		}
		var payload map[string]string
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["reason"] != "edit" {
			t.Errorf("payload = %v", payload)
		}
	default:
		t.Fatalf("watcher received nothing")
	}

	select {
	case msg := <-bystander.send:
		t.Fatalf("bystander on another event received %q", msg.Event)
	default:
	}
}

func TestHubBroadcastFullBufferDoesNotBlock(t *testing.T) {
	t.Parallel()

	hub := NewHub(zap.NewNop(), nil, nil)
	eventID := uuid.New()
	c := &Client{ID: uuid.NewString(), EventID: eventID, send: make(chan WSMessage)} // no buffer, never drained
	hub.Register(c)

	// Must return despite the stuck client; a blocking send would deadlock
	// the test and trip the timeout.
	hub.Broadcast(eventID, "page_updated", nil)
	hub.Broadcast(eventID, "page_updated", nil)
}

type capturePublisher struct {
	events []string
}

func (p *capturePublisher) PublishEventUpdate(_ uuid.UUID, event string, _ []byte) error {
	p.events = append(p.events, event)
	return nil
}

func TestHubBroadcastPublishes(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	hub := NewHub(zap.NewNop(), pub, nil)
	eventID := uuid.New()

	hub.Broadcast(eventID, "urgent_updated", map[string]string{"message": "m"})

	if len(pub.events) != 1 || pub.events[0] != "urgent_updated" {
		t.Errorf("published events = %v", pub.events)
	}
}
