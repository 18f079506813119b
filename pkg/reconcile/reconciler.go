package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Reconciler ingests later-arriving provider status signals, from
// polls or webhooks, and advances the per-attempt state machine
// idempotently. Applying the identical event twice is a no-op, and a
// late event never regresses an attempt past what is already known.
type Reconciler struct {
	attempts delivery.AttemptStore
	notifs   notification.Store
	logger   *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger sets the logger.
func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReconciler creates a status reconciler over the given stores.
func NewReconciler(attempts delivery.AttemptStore, notifs notification.Store, opts ...ReconcilerOption) (*Reconciler, error) {
	if attempts == nil || notifs == nil {
		return nil, ErrStoreNil
	}

	r := &Reconciler{
		attempts: attempts,
		notifs:   notifs,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// ApplyEvent records one raw provider signal against an attempt. The
// raw value is mapped to the canonical status (unknown vocabulary maps
// to Unknown, never an error) and appended to the attempt's event log.
// Read-qualifying signals promote the owning notification from Sent to
// Read.
func (r *Reconciler) ApplyEvent(ctx context.Context, attemptID uuid.UUID, raw string, ts time.Time, payload map[string]any) error {
	attempt, err := r.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}

	status := delivery.MapRawStatus(raw)
	ev := delivery.Event{
		Raw:       raw,
		Status:    status,
		Timestamp: ts,
		Payload:   payload,
	}

	if attempt.HasEvent(ev) {
		// Identical signal already recorded; webhooks redeliver.
		return nil
	}

	if err := r.attempts.AppendEvent(ctx, attemptID, ev, status); err != nil {
		return err
	}

	r.logger.LogAttrs(ctx, slog.LevelDebug, "delivery event applied",
		slog.String("attempt_id", attemptID.String()),
		slog.String("raw_status", raw),
		slog.String("status", string(status)),
	)

	// The attempt snapshot predates the append; a read-qualifying
	// event against a terminally-failed attempt was recorded but did
	// not advance it, so it must not promote the notification.
	if readQualifying(status) && attempt.Status.Advances(status) {
		r.promoteRead(ctx, attempt.NotificationID)
	}

	return nil
}

// ApplyByProviderMessageID resolves the attempt from the provider's
// message identifier, the key webhook callbacks carry.
func (r *Reconciler) ApplyByProviderMessageID(ctx context.Context, providerMessageID, raw string, ts time.Time, payload map[string]any) error {
	attempt, err := r.attempts.ByProviderMessageID(ctx, providerMessageID)
	if err != nil {
		return err
	}
	return r.ApplyEvent(ctx, attempt.ID, raw, ts, payload)
}

// ApplySnapshot folds a pull-based status snapshot into the attempt.
// Snapshots without an event list are applied as a single event.
func (r *Reconciler) ApplySnapshot(ctx context.Context, attemptID uuid.UUID, snap delivery.StatusSnapshot) error {
	if len(snap.Events) == 0 {
		return r.ApplyEvent(ctx, attemptID, snap.Raw, snap.LastUpdated, nil)
	}
	for _, ev := range snap.Events {
		if err := r.ApplyEvent(ctx, attemptID, ev.Raw, ev.Timestamp, ev.Payload); err != nil {
			return err
		}
	}
	return nil
}

// readQualifying reports whether the status proves the recipient saw
// the message. Only these promote the coarse notification status.
func readQualifying(s delivery.Status) bool {
	return s == delivery.StatusOpened || s == delivery.StatusClicked || s == delivery.StatusRead
}

func (r *Reconciler) promoteRead(ctx context.Context, notificationID uuid.UUID) {
	err := r.notifs.UpdateStatus(ctx, notificationID, notification.StatusSent, notification.StatusRead)
	if err != nil && !errors.Is(err, notification.ErrInvalidTransition) {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to promote notification to read",
			slog.String("notification_id", notificationID.String()),
			slog.String("error", err.Error()),
		)
	}
}
