package inapp

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// ProviderName identifies this gateway on delivery attempts.
const ProviderName = "inapp"

// defaultBufferSize is the per-subscriber live channel buffer.
const defaultBufferSize = 16

// Provider delivers notifications into an in-process inbox and pushes
// them to live subscribers. There is no external gateway: persistence
// counts as delivery, and the recipient's acknowledgement moves the
// message to read.
type Provider struct {
	inbox Inbox
	hub   *hub
}

// Option configures a Provider.
type Option func(*options)

type options struct {
	bufferSize int
}

// WithBufferSize sets the per-subscriber live channel buffer. Messages
// beyond the buffer are dropped for that subscriber; the inbox remains
// the source of truth.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// New creates the in-app provider over the given inbox.
func New(inbox Inbox, opts ...Option) (*Provider, error) {
	if inbox == nil {
		return nil, ErrInboxNil
	}

	o := options{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}

	return &Provider{
		inbox: inbox,
		hub:   newHub(o.bufferSize),
	}, nil
}

// Name implements delivery.Provider.
func (p *Provider) Name() string { return ProviderName }

// Channel implements delivery.Provider.
func (p *Provider) Channel() notification.Channel { return notification.ChannelInApp }

// Available always reports true; the in-app sink needs no credentials.
func (p *Provider) Available() bool { return true }

// ValidateRecipient requires a non-empty user identifier.
func (p *Provider) ValidateRecipient(identity string) delivery.ValidationResult {
	return delivery.ValidateRecipient(notification.ChannelInApp, identity)
}

// Send persists the message and pushes it to live subscribers. The
// provider message ID is the stored message's ID.
func (p *Provider) Send(ctx context.Context, req delivery.SendRequest) (delivery.SendResult, error) {
	v := p.ValidateRecipient(req.Recipient)
	if !v.IsValid {
		derr := delivery.NewValidationError("INVALID_RECIPIENT", v.Reason)
		return delivery.SendResult{ErrorCode: derr.Code, ErrorMessage: derr.Message, SentAt: time.Now()}, derr
	}

	msg := Message{
		ID:        uuid.New(),
		Recipient: strings.TrimSpace(req.Recipient),
		Subject:   req.Subject,
		Body:      req.Body,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
	}
	if err := p.inbox.Append(ctx, msg); err != nil {
		derr := delivery.NewTransientError("STORAGE_ERROR", "failed to persist in-app message", err)
		return delivery.SendResult{ErrorCode: derr.Code, ErrorMessage: derr.Message, SentAt: time.Now()}, derr
	}

	p.hub.publish(msg.Recipient, msg)

	return delivery.SendResult{
		Success:           true,
		ProviderMessageID: msg.ID.String(),
		SentAt:            msg.CreatedAt,
	}, nil
}

// SendBulk persists a batch one by one. One item's failure never
// aborts the rest.
func (p *Provider) SendBulk(ctx context.Context, reqs []delivery.SendRequest) (delivery.BulkResult, error) {
	bulk := delivery.BulkResult{
		TotalProcessed: len(reqs),
		Results:        make([]delivery.SendResult, 0, len(reqs)),
	}
	for _, req := range reqs {
		res, err := p.Send(ctx, req)
		bulk.Results = append(bulk.Results, res)
		if err != nil {
			bulk.FailureCount++
			continue
		}
		bulk.SuccessCount++
	}
	return bulk, nil
}

// DeliveryStatus reports Delivered once stored and Read once the
// recipient acknowledged. The poller folds this into the attempt.
func (p *Provider) DeliveryStatus(ctx context.Context, providerMessageID string) (delivery.StatusSnapshot, error) {
	id, err := uuid.Parse(providerMessageID)
	if err != nil {
		return delivery.StatusSnapshot{}, ErrMessageNotFound
	}

	msg, err := p.inbox.Get(ctx, id)
	if err != nil {
		return delivery.StatusSnapshot{}, err
	}

	snap := delivery.StatusSnapshot{
		Status:      delivery.StatusDelivered,
		Raw:         "delivered",
		LastUpdated: msg.CreatedAt,
	}
	if msg.ReadAt != nil {
		snap.Status = delivery.StatusRead
		snap.Raw = "read"
		snap.LastUpdated = *msg.ReadAt
	}
	return snap, nil
}

// AccountBalance reports a nominal always-active account; there is no
// billing behind the in-app channel.
func (p *Provider) AccountBalance(ctx context.Context) (delivery.AccountBalance, error) {
	return delivery.AccountBalance{
		AccountStatus: "active",
		LastUpdated:   time.Now(),
	}, nil
}

// Subscribe opens a live message stream for a recipient. The
// subscription ends when ctx is cancelled or Close is called.
func (p *Provider) Subscribe(ctx context.Context, recipient string) Subscriber {
	return p.hub.subscribe(ctx, recipient)
}

// MarkRead acknowledges a message on behalf of the recipient and
// returns the updated message. Acknowledging twice keeps the original
// read time.
func (p *Provider) MarkRead(ctx context.Context, providerMessageID string) (Message, error) {
	id, err := uuid.Parse(providerMessageID)
	if err != nil {
		return Message{}, ErrMessageNotFound
	}
	return p.inbox.MarkRead(ctx, id, time.Now())
}

// Close shuts down live subscriptions. Stored messages are unaffected.
func (p *Provider) Close() error {
	p.hub.close()
	return nil
}
