package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Event is one raw provider signal recorded against an attempt,
// together with its canonical mapping. The (Raw, Timestamp) pair is the
// deduplication key for idempotent reconciliation.
type Event struct {
	Raw       string         `json:"raw"`
	Status    Status         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Same reports whether two events carry the identical provider signal.
func (e Event) Same(other Event) bool {
	return e.Raw == other.Raw && e.Timestamp.Equal(other.Timestamp)
}

// Attempt is one provider-level try to deliver one notification over
// one channel. Retries create new attempts rather than overwriting, so
// the full delivery history stays auditable.
type Attempt struct {
	ID                uuid.UUID            `json:"id"`
	NotificationID    uuid.UUID            `json:"notification_id"`
	Channel           notification.Channel `json:"channel"`
	Provider          string               `json:"provider"`
	ProviderMessageID string               `json:"provider_message_id,omitempty"`
	AttemptNumber     int                  `json:"attempt_number"`
	Status            Status               `json:"status"`
	Cost              float64              `json:"cost,omitempty"`
	Currency          string               `json:"currency,omitempty"`
	Segments          int                  `json:"segments,omitempty"`
	ErrorCode         string               `json:"error_code,omitempty"`
	ErrorMessage      string               `json:"error_message,omitempty"`
	Events            []Event              `json:"events,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// HasEvent reports whether the identical event was already recorded.
func (a *Attempt) HasEvent(ev Event) bool {
	for _, existing := range a.Events {
		if existing.Same(ev) {
			return true
		}
	}
	return false
}
