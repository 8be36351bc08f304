package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is used when an event is created without a title.
const DefaultTitle = "Untitled Event"

// Event is a published event page. The ID is the stable identifier the
// printed QR code is built from and never changes after creation.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"` // markdown
	IsPublic      bool      `json:"is_public"`
	UrgentMessage string    `json:"urgent_message,omitempty"`
	ViewCount     int64     `json:"view_count"`
	EditKeyHash   string    `json:"-"`
	QRKey         string    `json:"-"` // S3 object key once the artifact is mirrored
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
