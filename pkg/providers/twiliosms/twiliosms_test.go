package twiliosms_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/providers/twiliosms"
)

func TestNew_Config(t *testing.T) {
	t.Parallel()

	t.Run("empty credentials yield disabled provider", func(t *testing.T) {
		t.Parallel()

		p, err := twiliosms.New(twiliosms.Config{})
		require.NoError(t, err)
		assert.False(t, p.Available())
		assert.Equal(t, "twilio", p.Name())
		assert.Equal(t, notification.ChannelSMS, p.Channel())
	})

	t.Run("partial credentials rejected", func(t *testing.T) {
		t.Parallel()

		_, err := twiliosms.New(twiliosms.Config{AccountSID: "AC123"})
		assert.ErrorIs(t, err, delivery.ErrInvalidConfig)
	})

	t.Run("malformed from number rejected", func(t *testing.T) {
		t.Parallel()

		_, err := twiliosms.New(twiliosms.Config{
			AccountSID: "AC123",
			AuthToken:  "token",
			FromNumber: "not-a-number",
		})
		assert.ErrorIs(t, err, delivery.ErrInvalidConfig)
	})

	t.Run("full credentials yield enabled provider", func(t *testing.T) {
		t.Parallel()

		p, err := twiliosms.New(twiliosms.Config{
			AccountSID: "AC123",
			AuthToken:  "token",
			FromNumber: "+15005550006",
			Timeout:    5 * time.Second,
		})
		require.NoError(t, err)
		assert.True(t, p.Available())
	})
}

func TestSend_Unconfigured(t *testing.T) {
	t.Parallel()

	p, err := twiliosms.New(twiliosms.Config{})
	require.NoError(t, err)

	result, err := p.Send(t.Context(), delivery.SendRequest{
		Recipient: "+15005550006",
		Body:      "hello",
	})
	require.Error(t, err)

	derr := delivery.AsError(err)
	assert.Equal(t, delivery.KindConfiguration, derr.Kind)
	assert.False(t, result.Success)
	assert.False(t, derr.Retryable())
}

func TestSend_InvalidRecipientSkipsNetwork(t *testing.T) {
	t.Parallel()

	p, err := twiliosms.New(twiliosms.Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15005550006",
	})
	require.NoError(t, err)

	result, err := p.Send(t.Context(), delivery.SendRequest{
		Recipient: "555-not-e164",
		Body:      "hello",
	})
	require.Error(t, err)

	derr := delivery.AsError(err)
	assert.Equal(t, delivery.KindValidation, derr.Kind)
	assert.Equal(t, "INVALID_RECIPIENT", derr.Code)
	assert.False(t, result.Success)
}

func TestSendBulk_Unconfigured(t *testing.T) {
	t.Parallel()

	p, err := twiliosms.New(twiliosms.Config{})
	require.NoError(t, err)

	bulk, err := p.SendBulk(t.Context(), []delivery.SendRequest{
		{Recipient: "+15005550006", Body: "one"},
		{Recipient: "+15005550007", Body: "two"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, bulk.TotalProcessed)
	assert.Equal(t, 2, bulk.FailureCount)
	assert.Zero(t, bulk.SuccessCount)
	assert.Len(t, bulk.Results, 2)
}

func TestValidateRecipient(t *testing.T) {
	t.Parallel()

	p, err := twiliosms.New(twiliosms.Config{})
	require.NoError(t, err)

	v := p.ValidateRecipient("+14155552671")
	assert.True(t, v.IsValid)
	assert.Equal(t, "+14155552671", v.Formatted)

	assert.False(t, p.ValidateRecipient("").IsValid)
	assert.False(t, p.ValidateRecipient("14155552671").IsValid)
	assert.False(t, p.ValidateRecipient("+1-415-555").IsValid)
}

func TestMapMessageStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]delivery.Status{
		"queued":        delivery.StatusPending,
		"accepted":      delivery.StatusPending,
		"scheduled":     delivery.StatusPending,
		"sending":       delivery.StatusPending,
		"sent":          delivery.StatusSent,
		"delivered":     delivery.StatusDelivered,
		"receiving":     delivery.StatusDelivered,
		"received":      delivery.StatusDelivered,
		"read":          delivery.StatusRead,
		"undelivered":   delivery.StatusFailed,
		"failed":        delivery.StatusFailed,
		"canceled":      delivery.StatusFailed,
		"DELIVERED":     delivery.StatusDelivered,
		"brand-new":     delivery.StatusUnknown,
		"":              delivery.StatusUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, twiliosms.MapMessageStatus(raw), "raw=%q", raw)
	}
}
