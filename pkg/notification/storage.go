package notification

import (
	"context"

	"github.com/google/uuid"
)

// Store handles notification persistence. The engine only ever loads
// notifications and advances their coarse status; creation and deletion
// belong to the authoring service.
type Store interface {
	// Save stores a new notification.
	Save(ctx context.Context, n Notification) error

	// Load retrieves a notification by ID.
	Load(ctx context.Context, id uuid.UUID) (*Notification, error)

	// UpdateStatus advances the coarse status, guarding the lifecycle
	// direction. Returns ErrInvalidTransition when the step is illegal
	// and ErrNotFound when the notification does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
}
