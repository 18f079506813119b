package reconcile_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/reconcile"
)

func postWebhook(t *testing.T, handler http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/postmark", bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_AppliesEvent(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, notification.StatusSent)

	handler, err := reconcile.NewWebhookHandler(f.reconciler)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"message_id":%q,"status":"Delivered","timestamp":%q}`,
		f.pmid, time.Now().Format(time.RFC3339))

	rec := postWebhook(t, handler.Routes(), body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	attempt, err := f.attempts.GetAttempt(ctx, f.attemptID)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusDelivered, attempt.Status)
}

func TestWebhookHandler_RedeliveryIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, notification.StatusSent)

	handler, err := reconcile.NewWebhookHandler(f.reconciler)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"message_id":%q,"status":"Delivered","timestamp":%q}`,
		f.pmid, time.Now().Truncate(time.Second).Format(time.RFC3339))

	assert.Equal(t, http.StatusOK, postWebhook(t, handler.Routes(), body, nil).Code)
	assert.Equal(t, http.StatusOK, postWebhook(t, handler.Routes(), body, nil).Code)

	attempt, err := f.attempts.GetAttempt(ctx, f.attemptID)
	require.NoError(t, err)
	assert.Len(t, attempt.Events, 1)
}

func TestWebhookHandler_BadRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(t, notification.StatusSent)
	handler, err := reconcile.NewWebhookHandler(f.reconciler)
	require.NoError(t, err)

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		rec := postWebhook(t, handler.Routes(), "{not json", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		rec := postWebhook(t, handler.Routes(), `{"status":"Delivered"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown message id", func(t *testing.T) {
		t.Parallel()
		body := fmt.Sprintf(`{"message_id":"missing","status":"Delivered","timestamp":%q}`,
			time.Now().Format(time.RFC3339))
		rec := postWebhook(t, handler.Routes(), body, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestWebhookHandler_SignatureVerification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, notification.StatusSent)
	const secret = "webhook-secret"

	handler, err := reconcile.NewWebhookHandler(f.reconciler, reconcile.WithWebhookSecret(secret))
	require.NoError(t, err)

	body := fmt.Sprintf(`{"message_id":%q,"status":"Delivered","timestamp":%q}`,
		f.pmid, time.Now().Format(time.RFC3339))

	sign := func(secret, body string, ts int64) string {
		mac := hmac.New(sha256.New, []byte(secret))
		fmt.Fprintf(mac, "%d.%s", ts, body)
		return hex.EncodeToString(mac.Sum(nil))
	}

	t.Run("valid signature accepted", func(t *testing.T) {
		ts := time.Now().Unix()
		rec := postWebhook(t, handler.Routes(), body, map[string]string{
			"X-Webhook-Signature": sign(secret, body, ts),
			"X-Webhook-Timestamp": strconv.FormatInt(ts, 10),
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		rec := postWebhook(t, handler.Routes(), body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		ts := time.Now().Unix()
		rec := postWebhook(t, handler.Routes(), body, map[string]string{
			"X-Webhook-Signature": sign("other-secret", body, ts),
			"X-Webhook-Timestamp": strconv.FormatInt(ts, 10),
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		ts := time.Now().Add(-time.Hour).Unix()
		rec := postWebhook(t, handler.Routes(), body, map[string]string{
			"X-Webhook-Signature": sign(secret, body, ts),
			"X-Webhook-Timestamp": strconv.FormatInt(ts, 10),
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
