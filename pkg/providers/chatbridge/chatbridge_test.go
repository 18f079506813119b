package chatbridge_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/providers/chatbridge"
)

func TestProviderIdentity(t *testing.T) {
	t.Parallel()

	p := chatbridge.New(chatbridge.Config{})
	assert.Equal(t, "chatbridge", p.Name())
	assert.Equal(t, notification.ChannelChat, p.Channel())
	assert.True(t, p.Available())
}

func TestValidateRecipient(t *testing.T) {
	t.Parallel()

	p := chatbridge.New(chatbridge.Config{})

	assert.True(t, p.ValidateRecipient("https://hooks.example.com/T123/B456").IsValid)
	assert.True(t, p.ValidateRecipient("http://localhost:8080/hook").IsValid)
	assert.False(t, p.ValidateRecipient("").IsValid)
	assert.False(t, p.ValidateRecipient("ftp://hooks.example.com/x").IsValid)
	assert.False(t, p.ValidateRecipient("not a url").IsValid)
}

func TestSend_PostsSlackPayload(t *testing.T) {
	t.Parallel()

	var got struct {
		Text string `json:"text"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := chatbridge.New(chatbridge.Config{})
	result, err := p.Send(t.Context(), delivery.SendRequest{
		Recipient: srv.URL,
		Subject:   "deploy",
		Body:      "v1.2.3 is live",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.ProviderMessageID)
	assert.Equal(t, "*deploy*\nv1.2.3 is live", got.Text)
}

func TestSend_SignsWhenSecretConfigured(t *testing.T) {
	t.Parallel()

	const secret = "chat-secret"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		ts, err := strconv.ParseInt(r.Header.Get("X-Webhook-Timestamp"), 10, 64)
		require.NoError(t, err)

		mac := hmac.New(sha256.New, []byte(secret))
		fmt.Fprintf(mac, "%d.%s", ts, body)
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-Webhook-Signature"))

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := chatbridge.New(chatbridge.Config{SigningSecret: secret})
	_, err := p.Send(t.Context(), delivery.SendRequest{Recipient: srv.URL, Body: "signed"})
	require.NoError(t, err)
}

func TestSend_ErrorClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code     int
		wantKind delivery.ErrorKind
		wantCode string
	}{
		{http.StatusTooManyRequests, delivery.KindTransient, "RATE_LIMITED"},
		{http.StatusNotFound, delivery.KindPermanent, "BLOCKED"},
		{http.StatusGone, delivery.KindPermanent, "BLOCKED"},
		{http.StatusBadRequest, delivery.KindPermanent, "REJECTED"},
		{http.StatusForbidden, delivery.KindPermanent, "REJECTED"},
		{http.StatusInternalServerError, delivery.KindTransient, "PROVIDER_ERROR"},
		{http.StatusBadGateway, delivery.KindTransient, "PROVIDER_ERROR"},
	}

	for _, tc := range cases {
		t.Run(strconv.Itoa(tc.code), func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
			}))
			defer srv.Close()

			p := chatbridge.New(chatbridge.Config{})
			result, err := p.Send(t.Context(), delivery.SendRequest{Recipient: srv.URL, Body: "x"})
			require.Error(t, err)

			derr := delivery.AsError(err)
			assert.Equal(t, tc.wantKind, derr.Kind)
			assert.Equal(t, tc.wantCode, derr.Code)
			assert.False(t, result.Success)
		})
	}
}

func TestSend_NetworkErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	p := chatbridge.New(chatbridge.Config{})
	_, err := p.Send(t.Context(), delivery.SendRequest{Recipient: srv.URL, Body: "x"})
	require.Error(t, err)

	derr := delivery.AsError(err)
	assert.Equal(t, delivery.KindTransient, derr.Kind)
	assert.True(t, derr.Retryable())
}

func TestSendBulk_CountsAlwaysSum(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := chatbridge.New(chatbridge.Config{})
	bulk, err := p.SendBulk(t.Context(), []delivery.SendRequest{
		{Recipient: srv.URL, Body: "one"},
		{Recipient: "not a url", Body: "two"},
		{Recipient: srv.URL, Body: "three"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, bulk.TotalProcessed)
	assert.Equal(t, 2, bulk.SuccessCount)
	assert.Equal(t, 1, bulk.FailureCount)
}
