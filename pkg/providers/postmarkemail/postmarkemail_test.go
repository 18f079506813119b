package postmarkemail_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/providers/postmarkemail"
)

func TestNew_Config(t *testing.T) {
	t.Parallel()

	t.Run("empty tokens yield disabled provider", func(t *testing.T) {
		t.Parallel()

		p, err := postmarkemail.New(postmarkemail.Config{})
		require.NoError(t, err)
		assert.False(t, p.Available())
		assert.Equal(t, "postmark", p.Name())
		assert.Equal(t, notification.ChannelEmail, p.Channel())
	})

	t.Run("token without sender rejected", func(t *testing.T) {
		t.Parallel()

		_, err := postmarkemail.New(postmarkemail.Config{ServerToken: "token"})
		assert.ErrorIs(t, err, delivery.ErrInvalidConfig)
	})

	t.Run("malformed sender rejected", func(t *testing.T) {
		t.Parallel()

		_, err := postmarkemail.New(postmarkemail.Config{
			ServerToken: "token",
			SenderEmail: "not-an-email",
		})
		assert.ErrorIs(t, err, delivery.ErrInvalidConfig)
	})

	t.Run("full config yields enabled provider", func(t *testing.T) {
		t.Parallel()

		p, err := postmarkemail.New(postmarkemail.Config{
			ServerToken:  "token",
			SenderEmail:  "no-reply@example.com",
			ReplyToEmail: "support@example.com",
		})
		require.NoError(t, err)
		assert.True(t, p.Available())
	})
}

func TestSend_Unconfigured(t *testing.T) {
	t.Parallel()

	p, err := postmarkemail.New(postmarkemail.Config{})
	require.NoError(t, err)

	result, err := p.Send(t.Context(), delivery.SendRequest{
		Recipient: "user@example.com",
		Subject:   "hello",
		Body:      "<p>hi</p>",
	})
	require.Error(t, err)

	derr := delivery.AsError(err)
	assert.Equal(t, delivery.KindConfiguration, derr.Kind)
	assert.False(t, result.Success)
}

func TestSend_InvalidRecipientSkipsNetwork(t *testing.T) {
	t.Parallel()

	p, err := postmarkemail.New(postmarkemail.Config{
		ServerToken: "token",
		SenderEmail: "no-reply@example.com",
	})
	require.NoError(t, err)

	result, err := p.Send(t.Context(), delivery.SendRequest{
		Recipient: "not an email",
		Body:      "hi",
	})
	require.Error(t, err)

	derr := delivery.AsError(err)
	assert.Equal(t, delivery.KindValidation, derr.Kind)
	assert.Equal(t, "INVALID_RECIPIENT", derr.Code)
	assert.False(t, result.Success)
}

func TestSendBulk_Unconfigured(t *testing.T) {
	t.Parallel()

	p, err := postmarkemail.New(postmarkemail.Config{})
	require.NoError(t, err)

	bulk, err := p.SendBulk(t.Context(), []delivery.SendRequest{
		{Recipient: "a@example.com", Body: "one"},
		{Recipient: "b@example.com", Body: "two"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, bulk.TotalProcessed)
	assert.Equal(t, 2, bulk.FailureCount)
	assert.Len(t, bulk.Results, 2)
}

func TestMapEventType(t *testing.T) {
	t.Parallel()

	cases := map[string]delivery.Status{
		"Delivery":           delivery.StatusDelivered,
		"Delivered":          delivery.StatusDelivered,
		"Bounce":             delivery.StatusBounced,
		"HardBounce":         delivery.StatusBounced,
		"SpamComplaint":      delivery.StatusSpam,
		"Open":               delivery.StatusOpened,
		"Click":              delivery.StatusClicked,
		"LinkClicked":        delivery.StatusClicked,
		"SubscriptionChange": delivery.StatusUnsubscribed,
		"Transient":          delivery.StatusPending,
		"Queued":             delivery.StatusPending,
		"Sent":               delivery.StatusSent,
		"something-else":     delivery.StatusUnknown,
		"":                   delivery.StatusUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, postmarkemail.MapEventType(raw), "raw=%q", raw)
	}
}
