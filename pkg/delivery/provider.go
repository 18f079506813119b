package delivery

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// SendRequest carries everything a provider needs for one outbound
// delivery call.
type SendRequest struct {
	Recipient      string         `json:"recipient"`
	Subject        string         `json:"subject,omitempty"`
	Body           string         `json:"body"`
	ScheduledAt    *time.Time     `json:"scheduled_at,omitempty"`
	RequestReceipt bool           `json:"request_receipt,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// SendResult is the normalized outcome of one provider send call.
// Providers never return raw transport errors for recoverable
// failures; the result carries the error code and message instead.
type SendResult struct {
	Success           bool      `json:"success"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	ErrorCode         string    `json:"error_code,omitempty"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	SentAt            time.Time `json:"sent_at"`
	Cost              float64   `json:"cost,omitempty"`
	Currency          string    `json:"currency,omitempty"`
	Segments          int       `json:"segments,omitempty"`
	// Queued indicates the provider accepted the message for
	// asynchronous processing; the attempt starts as Pending rather
	// than Sent and is advanced by the reconciler.
	Queued bool `json:"queued,omitempty"`
}

// BulkResult aggregates per-item results of a bulk send.
// TotalProcessed always equals the input count; one item's failure
// never aborts the batch.
type BulkResult struct {
	TotalProcessed int          `json:"total_processed"`
	SuccessCount   int          `json:"success_count"`
	FailureCount   int          `json:"failure_count"`
	Results        []SendResult `json:"results"`
	// TotalCost sums costs only across results sharing Currency.
	// Mixed-currency batches leave TotalCost zero and report cost
	// per item instead of summing blindly.
	TotalCost    float64 `json:"total_cost,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// ValidationResult reports a recipient format/reachability check.
type ValidationResult struct {
	IsValid    bool   `json:"is_valid"`
	Formatted  string `json:"formatted,omitempty"` // normalized identity
	Reason     string `json:"reason,omitempty"`
	CanReceive bool   `json:"can_receive"`
}

// StatusSnapshot is a pull-based view of an attempt's provider-side
// state, used by the reconciler when no push callback exists.
type StatusSnapshot struct {
	Status       Status    `json:"status"`
	Raw          string    `json:"raw"`
	LastUpdated  time.Time `json:"last_updated"`
	Events       []Event   `json:"events,omitempty"`
	ErrorDetails string    `json:"error_details,omitempty"`
	FinalCost    *float64  `json:"final_cost,omitempty"`
	Currency     string    `json:"currency,omitempty"`
}

// AccountBalance is operational/diagnostic provider account state.
// Failures fetching it are non-fatal and reported as unknown.
type AccountBalance struct {
	Balance       float64   `json:"balance"`
	Currency      string    `json:"currency"`
	AccountStatus string    `json:"account_status"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Provider is the uniform capability contract every channel gateway
// implements: SMS, email, push, in-app sink or chat bridge. Instances
// are stateless request builders and safe for concurrent use.
type Provider interface {
	// Name identifies the concrete gateway, e.g. "twilio".
	Name() string

	// Channel returns the delivery medium the provider serves.
	Channel() notification.Channel

	// Available reports whether required credentials are configured.
	// Unconfigured providers are skipped instead of failing at call
	// time.
	Available() bool

	// Send performs one outbound delivery call. Recoverable provider
	// failures come back as a populated SendResult plus a typed
	// *Error; the error is nil only on success.
	Send(ctx context.Context, req SendRequest) (SendResult, error)

	// SendBulk delivers a batch, reporting per-item results. It may be
	// implemented as repeated Send; engine-level concurrency bounding
	// happens in the dispatcher.
	SendBulk(ctx context.Context, reqs []SendRequest) (BulkResult, error)

	// ValidateRecipient is a pure format/reachability check with no
	// network call. It never returns an error: every identity yields
	// a definite IsValid.
	ValidateRecipient(identity string) ValidationResult

	// DeliveryStatus fetches the provider-side status of a previously
	// sent message.
	DeliveryStatus(ctx context.Context, providerMessageID string) (StatusSnapshot, error)

	// AccountBalance fetches operational account state.
	AccountBalance(ctx context.Context) (AccountBalance, error)
}
