package chatbridge

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// ProviderName identifies this gateway on delivery attempts.
const ProviderName = "chatbridge"

// Provider posts notifications as Slack-compatible JSON payloads to a
// per-recipient incoming webhook URL. Instances are safe for
// concurrent use.
type Provider struct {
	client *http.Client
	config Config
}

// payload is the Slack-compatible message body.
type payload struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// New creates a chat bridge provider.
func New(cfg Config, opts ...Option) *Provider {
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

	return &Provider{client: client, config: cfg}
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

// Name implements delivery.Provider.
func (p *Provider) Name() string { return ProviderName }

// Channel implements delivery.Provider.
func (p *Provider) Channel() notification.Channel { return notification.ChannelChat }

// Available always reports true; destinations carry their own URL.
func (p *Provider) Available() bool { return true }

// ValidateRecipient requires the identity to be an http(s) webhook URL.
func (p *Provider) ValidateRecipient(identity string) delivery.ValidationResult {
	if identity == "" {
		return delivery.ValidationResult{Reason: "webhook URL is empty"}
	}
	u, err := url.Parse(identity)
	if err != nil {
		return delivery.ValidationResult{Reason: "malformed webhook URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return delivery.ValidationResult{Reason: "webhook URL must use http or https"}
	}
	if u.Host == "" {
		return delivery.ValidationResult{Reason: "webhook URL host is required"}
	}
	return delivery.ValidationResult{IsValid: true, Formatted: u.String(), CanReceive: true}
}

// Send posts one message to the recipient's webhook URL. A 2xx
// response is the destination's final acknowledgement; there is no
// later status signal for chat webhooks.
func (p *Provider) Send(ctx context.Context, req delivery.SendRequest) (delivery.SendResult, error) {
	v := p.ValidateRecipient(req.Recipient)
	if !v.IsValid {
		derr := delivery.NewValidationError("INVALID_RECIPIENT", v.Reason)
		return failedResult(derr), derr
	}

	text := req.Body
	if req.Subject != "" {
		text = fmt.Sprintf("*%s*\n%s", req.Subject, req.Body)
	}
	body, err := json.Marshal(payload{Text: text, Metadata: req.Metadata})
	if err != nil {
		derr := delivery.NewValidationError("INVALID_PAYLOAD", "failed to encode message payload")
		return failedResult(derr), derr
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Formatted, bytes.NewReader(body))
	if err != nil {
		derr := delivery.NewValidationError("INVALID_RECIPIENT", "failed to build webhook request")
		return failedResult(derr), derr
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.SigningSecret != "" {
		signRequest(httpReq, p.config.SigningSecret, body)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		derr := delivery.NewTransientError("NETWORK_ERROR", "webhook request failed", err)
		return failedResult(derr), derr
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		derr := classifyStatus(resp.StatusCode)
		return failedResult(derr), derr
	}

	return delivery.SendResult{
		Success:           true,
		ProviderMessageID: uuid.NewString(),
		SentAt:            time.Now(),
	}, nil
}

// SendBulk posts a batch sequentially. One destination's failure never
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

// DeliveryStatus reports Delivered unconditionally. The 2xx
// acknowledgement at send time is the only signal chat webhooks give;
// failed attempts are terminal and never polled.
func (p *Provider) DeliveryStatus(ctx context.Context, providerMessageID string) (delivery.StatusSnapshot, error) {
	return delivery.StatusSnapshot{
		Status:      delivery.StatusDelivered,
		Raw:         "delivered",
		LastUpdated: time.Now(),
	}, nil
}

// AccountBalance reports a nominal always-active account; there is no
// billing behind webhook destinations.
func (p *Provider) AccountBalance(ctx context.Context) (delivery.AccountBalance, error) {
	return delivery.AccountBalance{
		AccountStatus: "active",
		LastUpdated:   time.Now(),
	}, nil
}

// signRequest attaches the timestamp-bound HMAC-SHA256 signature
// headers (signature over "<timestamp>.<body>").
func signRequest(req *http.Request, secret string, body []byte) {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)

	req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(ts, 10))
}

// classifyStatus maps HTTP response codes onto the delivery error
// taxonomy. 4xx codes are permanent except for rate limiting; 5xx and
// anything else is worth retrying.
func classifyStatus(code int) *delivery.Error {
	msg := fmt.Sprintf("webhook endpoint returned %d", code)
	switch {
	case code == http.StatusTooManyRequests:
		return delivery.NewTransientError("RATE_LIMITED", msg, nil)
	case code == http.StatusNotFound || code == http.StatusGone:
		// Slack signals a removed or revoked webhook this way.
		return delivery.NewPermanentError("BLOCKED", msg, nil)
	case code >= 400 && code < 500:
		return delivery.NewPermanentError("REJECTED", msg, nil)
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
