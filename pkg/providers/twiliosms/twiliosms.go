package twiliosms

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// ProviderName identifies this gateway on delivery attempts.
const ProviderName = "twilio"

// Provider sends SMS through the Twilio REST API. Instances are safe
// for concurrent use.
type Provider struct {
	client *twilio.RestClient
	config Config
}

// New creates a Twilio SMS provider. An empty credential set yields a
// disabled provider rather than an error; partial credentials are
// rejected.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{config: cfg}
	if cfg.configured() {
		p.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		if cfg.Timeout > 0 {
			p.client.Client.SetTimeout(cfg.Timeout)
		}
	}
	return p, nil
}

// Name implements delivery.Provider.
func (p *Provider) Name() string { return ProviderName }

// Channel implements delivery.Provider.
func (p *Provider) Channel() notification.Channel { return notification.ChannelSMS }

// Available reports whether credentials are configured.
func (p *Provider) Available() bool { return p.client != nil }

// ValidateRecipient checks the recipient is a plausible E.164 number.
func (p *Provider) ValidateRecipient(identity string) delivery.ValidationResult {
	return delivery.ValidateRecipient(notification.ChannelSMS, identity)
}

// Send delivers a single SMS. Twilio accepts messages asynchronously,
// so a successful call yields a queued result that the reconciler
// advances from status callbacks or polls.
func (p *Provider) Send(ctx context.Context, req delivery.SendRequest) (delivery.SendResult, error) {
	if !p.Available() {
		derr := delivery.NewConfigurationError("twilio credentials are not configured")
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

	params := &api.CreateMessageParams{}
	params.SetTo(v.Formatted)
	params.SetFrom(p.config.FromNumber)
	params.SetBody(req.Body)
	if p.config.StatusCallbackURL != "" {
		params.SetStatusCallback(p.config.StatusCallbackURL)
	}

	msg, err := p.client.Api.CreateMessage(params)
	if err != nil {
		derr := classifyError(err)
		return failedResult(derr), derr
	}

	result := resultFromMessage(msg)
	return result, nil
}

// SendBulk delivers a batch sequentially. One item's failure never
// aborts the rest; concurrency bounding happens at the dispatcher.
func (p *Provider) SendBulk(ctx context.Context, reqs []delivery.SendRequest) (delivery.BulkResult, error) {
	bulk := delivery.BulkResult{
		TotalProcessed: len(reqs),
		Results:        make([]delivery.SendResult, 0, len(reqs)),
	}

	mixedCurrency := false
	for _, req := range reqs {
		res, err := p.Send(ctx, req)
		bulk.Results = append(bulk.Results, res)
		if err != nil {
			bulk.FailureCount++
			continue
		}
		bulk.SuccessCount++

		if res.Currency == "" {
			continue
		}
		switch {
		case bulk.Currency == "" && !mixedCurrency:
			bulk.Currency = res.Currency
			bulk.TotalCost = res.Cost
		case bulk.Currency == res.Currency:
			bulk.TotalCost += res.Cost
		default:
			// Mixed currencies cannot be summed meaningfully.
			mixedCurrency = true
			bulk.Currency = ""
			bulk.TotalCost = 0
		}
	}
	return bulk, nil
}

// DeliveryStatus fetches the current provider-side state of a message.
func (p *Provider) DeliveryStatus(ctx context.Context, providerMessageID string) (delivery.StatusSnapshot, error) {
	if !p.Available() {
		return delivery.StatusSnapshot{}, delivery.NewConfigurationError("twilio credentials are not configured")
	}

	msg, err := p.client.Api.FetchMessage(providerMessageID, &api.FetchMessageParams{})
	if err != nil {
		return delivery.StatusSnapshot{}, classifyError(err)
	}

	raw := deref(msg.Status)
	snap := delivery.StatusSnapshot{
		Status:       MapMessageStatus(raw),
		Raw:          raw,
		LastUpdated:  time.Now(),
		ErrorDetails: deref(msg.ErrorMessage),
	}
	if cost, ok := parsePrice(msg.Price); ok {
		snap.FinalCost = &cost
		snap.Currency = deref(msg.PriceUnit)
	}
	return snap, nil
}

// AccountBalance fetches the Twilio account balance.
func (p *Provider) AccountBalance(ctx context.Context) (delivery.AccountBalance, error) {
	if !p.Available() {
		return delivery.AccountBalance{AccountStatus: "unconfigured"}, nil
	}

	bal, err := p.client.Api.FetchBalance(&api.FetchBalanceParams{})
	if err != nil {
		return delivery.AccountBalance{AccountStatus: "unknown"}, classifyError(err)
	}

	amount, _ := strconv.ParseFloat(deref(bal.Balance), 64)
	return delivery.AccountBalance{
		Balance:       amount,
		Currency:      deref(bal.Currency),
		AccountStatus: "active",
		LastUpdated:   time.Now(),
	}, nil
}

func resultFromMessage(msg *api.ApiV2010Message) delivery.SendResult {
	status := MapMessageStatus(deref(msg.Status))
	result := delivery.SendResult{
		Success:           true,
		ProviderMessageID: deref(msg.Sid),
		SentAt:            time.Now(),
		Queued:            status == delivery.StatusPending || status == delivery.StatusUnknown,
	}
	if segments, err := strconv.Atoi(deref(msg.NumSegments)); err == nil {
		result.Segments = segments
	}
	if cost, ok := parsePrice(msg.Price); ok {
		result.Cost = cost
		result.Currency = deref(msg.PriceUnit)
	}
	return result
}

func failedResult(derr *delivery.Error) delivery.SendResult {
	return delivery.SendResult{
		ErrorCode:    derr.Code,
		ErrorMessage: derr.Message,
		SentAt:       time.Now(),
	}
}

// classifyError maps Twilio REST errors onto the delivery error
// taxonomy so the retry scheduler can branch on kind.
func classifyError(err error) *delivery.Error {
	var tre *twclient.TwilioRestError
	if !errors.As(err, &tre) {
		return delivery.NewTransientError("NETWORK_ERROR", "twilio request failed", err)
	}

	switch tre.Code {
	case 20429:
		return delivery.NewTransientError("RATE_LIMITED", tre.Message, err)
	case 21211, 21217:
		return delivery.NewValidationError("INVALID_RECIPIENT", tre.Message)
	case 21610:
		return delivery.NewPermanentError("UNSUBSCRIBED", tre.Message, err)
	case 21408, 21612:
		return delivery.NewPermanentError("BLOCKED", tre.Message, err)
	case 21614:
		return delivery.NewPermanentError("INVALID_DESTINATION", tre.Message, err)
	case 20003:
		return delivery.NewConfigurationError("twilio authentication failed: " + tre.Message)
	}

	switch {
	case tre.Status == 429:
		return delivery.NewTransientError("RATE_LIMITED", tre.Message, err)
	case tre.Status >= 500:
		return delivery.NewTransientError("PROVIDER_ERROR", tre.Message, err)
	default:
		return delivery.NewPermanentError("TWILIO_"+strconv.Itoa(tre.Code), tre.Message, err)
	}
}

func parsePrice(raw *string) (float64, bool) {
	if raw == nil || *raw == "" {
		return 0, false
	}
	// Twilio reports outbound prices as negative amounts.
	price, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return 0, false
	}
	return math.Abs(price), true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
