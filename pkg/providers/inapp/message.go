package inapp

import (
	"time"

	"github.com/google/uuid"
)

// Message is one in-app notification as stored in a recipient's inbox
// and pushed to live subscribers.
type Message struct {
	ID        uuid.UUID      `json:"id"`
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject,omitempty"`
	Body      string         `json:"body"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

// Read reports whether the recipient has acknowledged the message.
func (m Message) Read() bool {
	return m.ReadAt != nil
}
