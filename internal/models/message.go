package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a dated announcement an organizer posts to an event's timeline.
// Visitors see messages newest-first on the public page.
type Message struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
