package notification

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents a delivery medium.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "inapp"
	ChannelChat  Channel = "chat"
)

// Valid reports whether the channel is one of the known delivery media.
func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelPush, ChannelInApp, ChannelChat:
		return true
	}
	return false
}

// Type represents the business category of a notification.
type Type string

const (
	TypeTransactional Type = "transactional"
	TypeAlert         Type = "alert"
	TypeReminder      Type = "reminder"
	TypeMarketing     Type = "marketing"
	TypeSystem        Type = "system"
)

// Priority represents the notification priority level.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
	PriorityCritical
)

// Notification is a logical message intended for one recipient across
// one or more channels. Provider-level delivery tries are tracked
// separately as delivery attempts.
type Notification struct {
	ID          uuid.UUID          `json:"id"`
	Recipients  map[Channel]string `json:"recipients"` // channel -> recipient identity
	Type        Type               `json:"type"`
	Priority    Priority           `json:"priority"`
	Title       string             `json:"title"`
	Body        string             `json:"body"`
	Data        map[string]any     `json:"data,omitempty"`
	ScheduledAt *time.Time         `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	Status      Status             `json:"status"`
}

// Channels returns the channels the notification is addressed to.
func (n *Notification) Channels() []Channel {
	channels := make([]Channel, 0, len(n.Recipients))
	for ch := range n.Recipients {
		channels = append(channels, ch)
	}
	return channels
}

// Validate checks the structural invariants required before the engine
// accepts a notification for delivery.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrMissingID
	}
	if len(n.Recipients) == 0 {
		return ErrNoRecipients
	}
	for ch, identity := range n.Recipients {
		if !ch.Valid() {
			return ErrUnknownChannel
		}
		if identity == "" {
			return ErrNoRecipients
		}
	}
	return nil
}
