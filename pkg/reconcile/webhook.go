package reconcile

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
)

// maxWebhookBody caps callback payload size.
const maxWebhookBody = 1 << 20

// webhookPayload is the callback body providers POST, keyed by the
// provider's message identifier.
type webhookPayload struct {
	MessageID string         `json:"message_id"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// WebhookHandler ingests asynchronous provider status callbacks and
// feeds them to the reconciler. Redelivered callbacks are harmless:
// event application is idempotent.
type WebhookHandler struct {
	reconciler *Reconciler
	secret     string
	maxAge     time.Duration
	logger     *slog.Logger
}

// WebhookOption configures a WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithWebhookSecret enables HMAC-SHA256 signature verification.
// Unsigned or stale callbacks are rejected with 401.
func WithWebhookSecret(secret string) WebhookOption {
	return func(h *WebhookHandler) {
		h.secret = secret
	}
}

// WithWebhookMaxAge bounds the accepted signature timestamp skew.
func WithWebhookMaxAge(d time.Duration) WebhookOption {
	return func(h *WebhookHandler) {
		if d > 0 {
			h.maxAge = d
		}
	}
}

// WithWebhookLogger sets the logger.
func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(h *WebhookHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewWebhookHandler creates the callback ingestion handler.
func NewWebhookHandler(reconciler *Reconciler, opts ...WebhookOption) (*WebhookHandler, error) {
	if reconciler == nil {
		return nil, ErrReconcilerNil
	}

	h := &WebhookHandler{
		reconciler: reconciler,
		maxAge:     5 * time.Minute,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// Routes returns the webhook router, mountable under any prefix.
func (h *WebhookHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhooks/{provider}", h.handleCallback)
	return r
}

func (h *WebhookHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if h.secret != "" {
		if err := h.verifySignature(r, body); err != nil {
			h.logger.LogAttrs(r.Context(), slog.LevelWarn, "webhook signature rejected",
				slog.String("provider", providerName),
				slog.String("error", err.Error()),
			)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if payload.MessageID == "" || payload.Status == "" {
		http.Error(w, "message_id and status are required", http.StatusBadRequest)
		return
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}

	err = h.reconciler.ApplyByProviderMessageID(r.Context(), payload.MessageID, payload.Status, payload.Timestamp, payload.Payload)
	switch {
	case errors.Is(err, delivery.ErrAttemptNotFound):
		http.Error(w, "unknown message id", http.StatusNotFound)
		return
	case err != nil:
		h.logger.LogAttrs(r.Context(), slog.LevelError, "failed to apply webhook event",
			slog.String("provider", providerName),
			slog.String("message_id", payload.MessageID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "failed to apply event", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// verifySignature checks the timestamp-bound HMAC-SHA256 signature
// scheme (signature over "<timestamp>.<body>") with a constant-time
// comparison.
func (h *WebhookHandler) verifySignature(r *http.Request, body []byte) error {
	signature := r.Header.Get("X-Webhook-Signature")
	if signature == "" {
		return fmt.Errorf("%w: signature header missing", ErrInvalidSignature)
	}

	rawTS := r.Header.Get("X-Webhook-Timestamp")
	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp header", ErrInvalidSignature)
	}
	if age := time.Since(time.Unix(ts, 0)); age > h.maxAge || age < -h.maxAge {
		return fmt.Errorf("%w: timestamp outside accepted window", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}
