package delivery

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// AttemptStore persists delivery attempts and their event history.
// Attempts are append-only records: the orchestrator creates them, the
// reconciler appends events and advances status, nothing else mutates
// them.
type AttemptStore interface {
	// SaveAttempt stores a new attempt.
	SaveAttempt(ctx context.Context, a Attempt) error

	// GetAttempt retrieves an attempt by ID.
	GetAttempt(ctx context.Context, id uuid.UUID) (*Attempt, error)

	// ByProviderMessageID resolves an attempt from the provider's
	// message identifier, used by webhook ingestion.
	ByProviderMessageID(ctx context.Context, providerMessageID string) (*Attempt, error)

	// ListByNotification returns all attempts for a notification,
	// ordered by creation time.
	ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]Attempt, error)

	// ListUnresolved returns up to limit attempts still awaiting a
	// final provider verdict (Pending, Sent or Unknown), oldest
	// first. The status reconciler polls these.
	ListUnresolved(ctx context.Context, limit int) ([]Attempt, error)

	// NextAttemptNumber returns the next attempt number for the
	// (notification, channel) pair. Numbers are strictly increasing
	// starting at 1.
	NextAttemptNumber(ctx context.Context, notificationID uuid.UUID, channel notification.Channel) (int, error)

	// AppendEvent records an event against an attempt and advances its
	// status. Implementations must be idempotent on the event's
	// (Raw, Timestamp) pair and must never regress the status.
	AppendEvent(ctx context.Context, attemptID uuid.UUID, ev Event, newStatus Status) error
}
