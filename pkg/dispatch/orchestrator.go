package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// defaultBodyLimits caps message body size per channel before any
// provider call is made. SMS gateways reject concatenated messages
// beyond 1600 characters.
var defaultBodyLimits = map[notification.Channel]int{
	notification.ChannelSMS: 1600,
}

// Outcome is the typed result of one delivery try. Per-item errors are
// always captured here and never abort a batch.
type Outcome struct {
	NotificationID uuid.UUID
	AttemptID      uuid.UUID
	AttemptNumber  int
	Channel        notification.Channel
	Provider       string
	Recipient      string
	Success        bool
	Result         delivery.SendResult
	Err            *delivery.Error
}

// Retryable reports whether the failure might succeed on a later try.
func (o Outcome) Retryable() bool {
	return o.Err != nil && o.Err.Retryable()
}

// Orchestrator sends one notification through one provider and
// normalizes the result: it validates the recipient before any network
// call, persists a delivery attempt for every try and advances the
// owning notification's coarse status.
type Orchestrator struct {
	providers  map[notification.Channel]delivery.Provider
	health     map[notification.Channel]*delivery.Health
	notifs     notification.Store
	attempts   delivery.AttemptStore
	bodyLimits map[notification.Channel]int
	logger     *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBodyLimit overrides the maximum body size for a channel.
// A non-positive limit disables the check.
func WithBodyLimit(ch notification.Channel, limit int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.bodyLimits[ch] = limit
	}
}

// WithHealthGuard replaces the availability guard for a channel,
// allowing custom thresholds per provider.
func WithHealthGuard(ch notification.Channel, h *delivery.Health) OrchestratorOption {
	return func(o *Orchestrator) {
		if h != nil {
			o.health[ch] = h
		}
	}
}

// NewOrchestrator creates a delivery orchestrator over the given
// providers, one per channel.
func NewOrchestrator(notifs notification.Store, attempts delivery.AttemptStore, providers []delivery.Provider, opts ...OrchestratorOption) (*Orchestrator, error) {
	if notifs == nil || attempts == nil {
		return nil, ErrStoreNil
	}
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	o := &Orchestrator{
		providers:  make(map[notification.Channel]delivery.Provider, len(providers)),
		health:     make(map[notification.Channel]*delivery.Health, len(providers)),
		notifs:     notifs,
		attempts:   attempts,
		bodyLimits: make(map[notification.Channel]int, len(defaultBodyLimits)),
		logger:     slog.Default(),
	}
	for ch, limit := range defaultBodyLimits {
		o.bodyLimits[ch] = limit
	}
	for _, p := range providers {
		o.providers[p.Channel()] = p
		o.health[p.Channel()] = delivery.NewHealth(0, 0)
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Provider returns the provider registered for the channel, if any.
func (o *Orchestrator) Provider(ch notification.Channel) (delivery.Provider, bool) {
	p, ok := o.providers[ch]
	return p, ok
}

// DeliverOne sends the notification over the given channel. The
// outcome always carries a typed error on failure; DeliverOne itself
// never returns one.
func (o *Orchestrator) DeliverOne(ctx context.Context, n *notification.Notification, ch notification.Channel) Outcome {
	out := Outcome{NotificationID: n.ID, Channel: ch}

	provider, ok := o.providers[ch]
	if !ok {
		out.Err = delivery.NewConfigurationError(fmt.Sprintf("no provider registered for channel %q", ch))
		return out
	}
	out.Provider = provider.Name()

	if !provider.Available() {
		out.Err = delivery.NewConfigurationError(fmt.Sprintf("provider %q is not configured", provider.Name()))
		return out
	}
	if guard := o.health[ch]; guard != nil && !guard.Allow() {
		out.Err = &delivery.Error{
			Kind:    delivery.KindConfiguration,
			Code:    "PROVIDER_UNAVAILABLE",
			Message: fmt.Sprintf("provider %q suspended after repeated failures", provider.Name()),
			Cause:   delivery.ErrProviderExhausted,
		}
		return out
	}

	recipient, ok := n.Recipients[ch]
	if !ok || recipient == "" {
		out.Err = delivery.NewValidationError("VALIDATION_ERROR", ErrMissingRecipient.Error())
		o.persistFailure(ctx, n, ch, &out)
		return out
	}
	out.Recipient = recipient

	// Recipient validation consumes zero provider quota.
	if vr := provider.ValidateRecipient(recipient); !vr.IsValid {
		out.Err = delivery.NewValidationError("VALIDATION_ERROR", vr.Reason)
		o.persistFailure(ctx, n, ch, &out)
		return out
	} else if vr.Formatted != "" {
		out.Recipient = vr.Formatted
	}

	if limit := o.bodyLimits[ch]; limit > 0 && len([]rune(n.Body)) > limit {
		out.Err = delivery.NewValidationError("VALIDATION_ERROR",
			fmt.Sprintf("message body exceeds %d characters for channel %q", limit, ch))
		o.persistFailure(ctx, n, ch, &out)
		return out
	}

	result, err := provider.Send(ctx, delivery.SendRequest{
		Recipient:      out.Recipient,
		Subject:        n.Title,
		Body:           n.Body,
		ScheduledAt:    n.ScheduledAt,
		RequestReceipt: true,
		Metadata:       n.Data,
	})
	out.Result = result

	guard := o.health[ch]
	if err != nil {
		out.Err = delivery.AsError(err)
		// Only account-level failures count against the guard;
		// transient noise and bad input say nothing about the
		// provider's health.
		if guard != nil && (out.Err.Kind == delivery.KindPermanent || out.Err.Kind == delivery.KindConfiguration) {
			guard.RecordFailure()
		}
		o.persistFailure(ctx, n, ch, &out)
		o.logger.LogAttrs(ctx, slog.LevelWarn, "delivery attempt failed",
			slog.String("notification_id", n.ID.String()),
			slog.String("channel", string(ch)),
			slog.String("provider", provider.Name()),
			slog.String("kind", string(out.Err.Kind)),
			slog.String("error", out.Err.Message),
		)
		return out
	}

	if guard != nil {
		guard.RecordSuccess()
	}

	out.Success = true
	status := delivery.StatusSent
	if result.Queued {
		// Provider queued the message asynchronously; the reconciler
		// advances the attempt once the gateway reports progress.
		status = delivery.StatusPending
	}
	o.persistAttempt(ctx, n, ch, &out, status)

	if upErr := o.notifs.UpdateStatus(ctx, n.ID, n.Status, notification.StatusSent); upErr != nil &&
		!errors.Is(upErr, notification.ErrInvalidTransition) {
		o.logger.LogAttrs(ctx, slog.LevelError, "failed to advance notification status",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", upErr.Error()),
		)
	}

	o.logger.LogAttrs(ctx, slog.LevelInfo, "delivery attempt succeeded",
		slog.String("notification_id", n.ID.String()),
		slog.String("channel", string(ch)),
		slog.String("provider", provider.Name()),
		slog.String("provider_message_id", result.ProviderMessageID),
		slog.Int("attempt_number", out.AttemptNumber),
	)
	return out
}

// MarkExhausted records that every configured channel of a
// notification has run out of retries. The coarse status moves to
// Failed only if no attempt ever succeeded.
func (o *Orchestrator) MarkExhausted(ctx context.Context, notificationID uuid.UUID) error {
	n, err := o.notifs.Load(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.Status == notification.StatusSent || n.Status.Terminal() {
		return nil
	}
	if err := o.notifs.UpdateStatus(ctx, notificationID, n.Status, notification.StatusFailed); err != nil &&
		!errors.Is(err, notification.ErrInvalidTransition) {
		return err
	}
	return nil
}

// persistFailure stores a failed attempt. Failures to persist are
// logged, not propagated: the outcome already carries the delivery
// error the caller branches on.
func (o *Orchestrator) persistFailure(ctx context.Context, n *notification.Notification, ch notification.Channel, out *Outcome) {
	status := delivery.StatusFailed
	switch out.Err.Code {
	case "RATE_LIMITED":
		status = delivery.StatusRateLimited
	case "BLOCKED":
		status = delivery.StatusBlocked
	case "UNSUBSCRIBED":
		status = delivery.StatusUnsubscribed
	case "BOUNCED":
		status = delivery.StatusBounced
	}
	o.persistAttempt(ctx, n, ch, out, status)
}

func (o *Orchestrator) persistAttempt(ctx context.Context, n *notification.Notification, ch notification.Channel, out *Outcome, status delivery.Status) {
	number, err := o.attempts.NextAttemptNumber(ctx, n.ID, ch)
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "failed to allocate attempt number",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", err.Error()),
		)
		number = 1
	}

	attempt := delivery.Attempt{
		ID:                uuid.New(),
		NotificationID:    n.ID,
		Channel:           ch,
		Provider:          out.Provider,
		ProviderMessageID: out.Result.ProviderMessageID,
		AttemptNumber:     number,
		Status:            status,
		Cost:              out.Result.Cost,
		Currency:          out.Result.Currency,
		Segments:          out.Result.Segments,
		CreatedAt:         time.Now(),
	}
	if out.Err != nil {
		attempt.ErrorCode = out.Err.Code
		attempt.ErrorMessage = out.Err.Message
	}

	if err := o.attempts.SaveAttempt(ctx, attempt); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "failed to persist delivery attempt",
			slog.String("notification_id", n.ID.String()),
			slog.String("channel", string(ch)),
			slog.String("error", err.Error()),
		)
		return
	}

	out.AttemptID = attempt.ID
	out.AttemptNumber = attempt.AttemptNumber
}
