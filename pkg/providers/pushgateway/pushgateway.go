package pushgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// ProviderName identifies this gateway on delivery attempts.
const ProviderName = "pushgateway"

// Provider sends push notifications through an HTTP push gateway that
// fronts the platform services (APNs, FCM). Recipients are device
// tokens registered with the gateway.
type Provider struct {
	client *http.Client
	config Config
}

type pushRequest struct {
	Token string         `json:"token"`
	Title string         `json:"title,omitempty"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

type pushResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

type statusResponse struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

type accountResponse struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
}

// Option configures a Provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// New creates a push gateway provider. An empty config yields a
// disabled provider rather than an error; partial configuration is
// rejected.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	client := o.httpClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Provider{client: client, config: cfg}, nil
}

// Name implements delivery.Provider.
func (p *Provider) Name() string { return ProviderName }

// Channel implements delivery.Provider.
func (p *Provider) Channel() notification.Channel { return notification.ChannelPush }

// Available reports whether the gateway URL and API key are configured.
func (p *Provider) Available() bool { return p.config.configured() }

// ValidateRecipient requires a non-empty device token.
func (p *Provider) ValidateRecipient(identity string) delivery.ValidationResult {
	return delivery.ValidateRecipient(notification.ChannelPush, identity)
}

// Send submits one push notification to the gateway.
func (p *Provider) Send(ctx context.Context, req delivery.SendRequest) (delivery.SendResult, error) {
	if !p.Available() {
		derr := delivery.NewConfigurationError("push gateway is not configured")
		return failedResult(derr), derr
	}

	v := p.ValidateRecipient(req.Recipient)
	if !v.IsValid {
		derr := delivery.NewValidationError("INVALID_RECIPIENT", v.Reason)
		return failedResult(derr), derr
	}

	var resp pushResponse
	status, err := p.do(ctx, http.MethodPost, "/v1/push", pushRequest{
		Token: v.Formatted,
		Title: req.Subject,
		Body:  req.Body,
		Data:  req.Metadata,
	}, &resp)
	if err != nil {
		derr := delivery.NewTransientError("NETWORK_ERROR", "push gateway request failed", err)
		return failedResult(derr), derr
	}
	if status < 200 || status >= 300 {
		derr := classifyStatus(status, resp.Error)
		return failedResult(derr), derr
	}

	return delivery.SendResult{
		Success:           true,
		ProviderMessageID: resp.MessageID,
		SentAt:            time.Now(),
		// The gateway forwards to the platform service asynchronously.
		Queued: true,
	}, nil
}

// SendBulk submits a batch sequentially. One token's failure never
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

// DeliveryStatus fetches the gateway-side state of a message.
func (p *Provider) DeliveryStatus(ctx context.Context, providerMessageID string) (delivery.StatusSnapshot, error) {
	if !p.Available() {
		return delivery.StatusSnapshot{}, delivery.NewConfigurationError("push gateway is not configured")
	}

	var resp statusResponse
	status, err := p.do(ctx, http.MethodGet, "/v1/push/"+providerMessageID, nil, &resp)
	if err != nil {
		return delivery.StatusSnapshot{}, delivery.NewTransientError("NETWORK_ERROR", "push gateway status lookup failed", err)
	}
	if status < 200 || status >= 300 {
		return delivery.StatusSnapshot{}, classifyStatus(status, resp.Error)
	}

	updated := resp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return delivery.StatusSnapshot{
		Status:       delivery.MapRawStatus(resp.Status),
		Raw:          resp.Status,
		LastUpdated:  updated,
		ErrorDetails: resp.Error,
	}, nil
}

// AccountBalance fetches gateway account state.
func (p *Provider) AccountBalance(ctx context.Context) (delivery.AccountBalance, error) {
	if !p.Available() {
		return delivery.AccountBalance{AccountStatus: "unconfigured"}, nil
	}

	var resp accountResponse
	status, err := p.do(ctx, http.MethodGet, "/v1/account", nil, &resp)
	if err != nil {
		return delivery.AccountBalance{AccountStatus: "unknown"},
			delivery.NewTransientError("NETWORK_ERROR", "push gateway account lookup failed", err)
	}
	if status < 200 || status >= 300 {
		return delivery.AccountBalance{AccountStatus: "unknown"}, classifyStatus(status, "")
	}

	accountStatus := resp.Status
	if accountStatus == "" {
		accountStatus = "active"
	}
	return delivery.AccountBalance{
		Balance:       resp.Balance,
		Currency:      resp.Currency,
		AccountStatus: accountStatus,
		LastUpdated:   time.Now(),
	}, nil
}

func (p *Provider) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && len(raw) > 0 {
		// Error bodies may not match the success shape; keep the status
		// code authoritative.
		_ = json.Unmarshal(raw, out)
	}
	return resp.StatusCode, nil
}

// classifyStatus maps gateway response codes onto the delivery error
// taxonomy. Unregistered and expired tokens are permanent; the
// recipient cannot be reached again until the device re-registers.
func classifyStatus(code int, detail string) *delivery.Error {
	msg := fmt.Sprintf("push gateway returned %d", code)
	if detail != "" {
		msg += ": " + detail
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return delivery.NewConfigurationError(msg)
	case code == http.StatusNotFound || code == http.StatusGone:
		return delivery.NewPermanentError("BLOCKED", msg, nil)
	case code == http.StatusTooManyRequests:
		return delivery.NewTransientError("RATE_LIMITED", msg, nil)
	case code >= 400 && code < 500:
		return delivery.NewValidationError("INVALID_REQUEST", msg)
	default:
		return delivery.NewTransientError("PROVIDER_ERROR", msg, nil)
	}
}

func failedResult(derr *delivery.Error) delivery.SendResult {
	return delivery.SendResult{
		ErrorCode:    derr.Code,
		ErrorMessage: derr.Message,
		SentAt:       time.Now(),
	}
}
