package postmarkemail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// ProviderName identifies this gateway on delivery attempts.
const ProviderName = "postmark"

// Provider sends transactional email through Postmark. Instances are
// safe for concurrent use.
type Provider struct {
	client *postmark.Client
	config Config
}

// New creates a Postmark email provider. An empty token set yields a
// disabled provider rather than an error; partial configuration is
// rejected.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{config: cfg}
	if cfg.configured() {
		p.client = postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	}
	return p, nil
}

// Name implements delivery.Provider.
func (p *Provider) Name() string { return ProviderName }

// Channel implements delivery.Provider.
func (p *Provider) Channel() notification.Channel { return notification.ChannelEmail }

// Available reports whether the server token is configured.
func (p *Provider) Available() bool { return p.client != nil }

// ValidateRecipient checks the recipient is a plausible email address.
func (p *Provider) ValidateRecipient(identity string) delivery.ValidationResult {
	return delivery.ValidateRecipient(notification.ChannelEmail, identity)
}

// Send delivers a single email. Postmark confirms acceptance
// synchronously, so a successful call yields a sent result; delivery,
// opens and clicks arrive later through webhooks.
func (p *Provider) Send(ctx context.Context, req delivery.SendRequest) (delivery.SendResult, error) {
	if !p.Available() {
		derr := delivery.NewConfigurationError("postmark server token is not configured")
		return failedResult(derr), derr
	}
	if err := ctx.Err(); err != nil {
		derr := delivery.NewTransientError("CANCELLED", "send cancelled before dispatch", err)
		return failedResult(derr), derr
	}

	v := p.ValidateRecipient(req.Recipient)
	if !v.IsValid {
		derr := delivery.NewValidationError("INVALID_RECIPIENT", v.Reason)
		return failedResult(derr), derr
	}

	resp, err := p.client.SendEmail(ctx, p.buildEmail(v.Formatted, req))
	if err != nil {
		derr := delivery.NewTransientError("NETWORK_ERROR", "postmark request failed", err)
		return failedResult(derr), derr
	}
	if resp.ErrorCode > 0 {
		derr := classifyCode(resp.ErrorCode, resp.Message)
		return failedResult(derr), derr
	}

	return delivery.SendResult{
		Success:           true,
		ProviderMessageID: resp.MessageID,
		SentAt:            resp.SubmittedAt,
	}, nil
}

// SendBulk delivers a batch through Postmark's batch endpoint, falling
// back to per-item results. One item's rejection never aborts the rest.
func (p *Provider) SendBulk(ctx context.Context, reqs []delivery.SendRequest) (delivery.BulkResult, error) {
	bulk := delivery.BulkResult{
		TotalProcessed: len(reqs),
		Results:        make([]delivery.SendResult, 0, len(reqs)),
	}
	if len(reqs) == 0 {
		return bulk, nil
	}

	if !p.Available() {
		derr := delivery.NewConfigurationError("postmark server token is not configured")
		for range reqs {
			bulk.Results = append(bulk.Results, failedResult(derr))
		}
		bulk.FailureCount = len(reqs)
		bulk.ErrorMessage = derr.Message
		return bulk, nil
	}

	// Reject invalid recipients locally; only valid items go on the
	// wire. Order is restored when folding responses back in.
	emails := make([]postmark.Email, 0, len(reqs))
	wireIndex := make([]int, 0, len(reqs))
	results := make([]delivery.SendResult, len(reqs))

	for i, req := range reqs {
		v := p.ValidateRecipient(req.Recipient)
		if !v.IsValid {
			derr := delivery.NewValidationError("INVALID_RECIPIENT", v.Reason)
			results[i] = failedResult(derr)
			bulk.FailureCount++
			continue
		}
		emails = append(emails, p.buildEmail(v.Formatted, req))
		wireIndex = append(wireIndex, i)
	}

	if len(emails) > 0 {
		responses, err := p.client.SendEmailBatch(ctx, emails)
		if err != nil {
			derr := delivery.NewTransientError("NETWORK_ERROR", "postmark batch request failed", err)
			for _, i := range wireIndex {
				results[i] = failedResult(derr)
				bulk.FailureCount++
			}
			bulk.ErrorMessage = derr.Message
		} else {
			for n, resp := range responses {
				if n >= len(wireIndex) {
					break
				}
				i := wireIndex[n]
				if resp.ErrorCode > 0 {
					results[i] = failedResult(classifyCode(resp.ErrorCode, resp.Message))
					bulk.FailureCount++
					continue
				}
				results[i] = delivery.SendResult{
					Success:           true,
					ProviderMessageID: resp.MessageID,
					SentAt:            resp.SubmittedAt,
				}
				bulk.SuccessCount++
			}
		}
	}

	bulk.Results = results
	return bulk, nil
}

// DeliveryStatus fetches the outbound message details and folds its
// event history into a snapshot.
func (p *Provider) DeliveryStatus(ctx context.Context, providerMessageID string) (delivery.StatusSnapshot, error) {
	if !p.Available() {
		return delivery.StatusSnapshot{}, delivery.NewConfigurationError("postmark server token is not configured")
	}

	msg, err := p.client.GetOutboundMessage(ctx, providerMessageID)
	if err != nil {
		return delivery.StatusSnapshot{}, delivery.NewTransientError("NETWORK_ERROR", "postmark message lookup failed", err)
	}

	snap := delivery.StatusSnapshot{
		Status:      MapEventType(msg.Status),
		Raw:         msg.Status,
		LastUpdated: time.Now(),
	}
	for _, ev := range msg.MessageEvents {
		payload := make(map[string]any, len(ev.Details))
		for k, v := range ev.Details {
			payload[k] = v
		}
		snap.Events = append(snap.Events, delivery.Event{
			Raw:       ev.Type,
			Status:    MapEventType(ev.Type),
			Timestamp: ev.ReceivedAt,
			Payload:   payload,
		})
	}
	return snap, nil
}

// AccountBalance reports server reachability. Postmark has no monetary
// balance; the check doubles as a credentials probe.
func (p *Provider) AccountBalance(ctx context.Context) (delivery.AccountBalance, error) {
	if !p.Available() {
		return delivery.AccountBalance{AccountStatus: "unconfigured"}, nil
	}

	if _, err := p.client.GetCurrentServer(ctx); err != nil {
		return delivery.AccountBalance{AccountStatus: "unknown"},
			delivery.NewTransientError("NETWORK_ERROR", "postmark server lookup failed", err)
	}
	return delivery.AccountBalance{
		AccountStatus: "active",
		LastUpdated:   time.Now(),
	}, nil
}

func (p *Provider) buildEmail(to string, req delivery.SendRequest) postmark.Email {
	email := postmark.Email{
		From:          p.config.SenderEmail,
		To:            to,
		Subject:       req.Subject,
		HTMLBody:      req.Body,
		TrackOpens:    p.config.TrackOpens,
		MessageStream: p.config.MessageStream,
	}
	if p.config.ReplyToEmail != "" {
		email.ReplyTo = p.config.ReplyToEmail
	}
	if p.config.TrackLinks {
		// HTML-only tracking avoids rewriting links in plain text.
		email.TrackLinks = "HtmlOnly"
	}
	if len(req.Metadata) > 0 {
		email.Metadata = make(map[string]string, len(req.Metadata))
		for k, v := range req.Metadata {
			email.Metadata[k] = fmt.Sprint(v)
		}
	}
	return email
}

func failedResult(derr *delivery.Error) delivery.SendResult {
	return delivery.SendResult{
		ErrorCode:    derr.Code,
		ErrorMessage: derr.Message,
		SentAt:       time.Now(),
	}
}

// classifyCode maps Postmark API error codes onto the delivery error
// taxonomy. See https://postmarkapp.com/developer/api/overview#error-codes.
func classifyCode(code int64, message string) *delivery.Error {
	switch code {
	case 10, 405:
		// Bad token / account pending approval.
		return delivery.NewConfigurationError(message)
	case 300:
		return delivery.NewValidationError("INVALID_RECIPIENT", message)
	case 406:
		// Inactive recipient: previously hard bounced or marked spam.
		return delivery.NewPermanentError("BOUNCED", message, nil)
	case 429:
		return delivery.NewTransientError("RATE_LIMITED", message, nil)
	default:
		return delivery.NewPermanentError("POSTMARK_"+strconv.FormatInt(code, 10), message, nil)
	}
}
