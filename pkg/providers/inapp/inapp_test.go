package inapp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/providers/inapp"
)

func newProvider(t *testing.T) *inapp.Provider {
	t.Helper()

	p, err := inapp.New(inapp.NewMemoryInbox())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNew_RequiresInbox(t *testing.T) {
	t.Parallel()

	_, err := inapp.New(nil)
	assert.ErrorIs(t, err, inapp.ErrInboxNil)
}

func TestSend_PersistsMessage(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	inbox := inapp.NewMemoryInbox()
	p, err := inapp.New(inbox)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	result, err := p.Send(ctx, delivery.SendRequest{
		Recipient: "user-42",
		Subject:   "welcome",
		Body:      "hello",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.ProviderMessageID)

	msgs, err := inbox.List(ctx, "user-42", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "welcome", msgs[0].Subject)
	assert.False(t, msgs[0].Read())

	unread, err := inbox.UnreadCount(ctx, "user-42")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestSend_EmptyRecipientRejected(t *testing.T) {
	t.Parallel()

	p := newProvider(t)

	_, err := p.Send(t.Context(), delivery.SendRequest{Recipient: "  ", Body: "hi"})
	require.Error(t, err)
	assert.Equal(t, delivery.KindValidation, delivery.AsError(err).Kind)
}

func TestSubscribe_ReceivesLiveMessages(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	p := newProvider(t)

	sub := p.Subscribe(ctx, "user-42")
	defer sub.Close()

	_, err := p.Send(ctx, delivery.SendRequest{Recipient: "user-42", Body: "live"})
	require.NoError(t, err)

	select {
	case msg := <-sub.Receive():
		assert.Equal(t, "live", msg.Body)
		assert.Equal(t, "user-42", msg.Recipient)
	case <-time.After(time.Second):
		t.Fatal("expected live message")
	}
}

func TestSubscribe_OtherRecipientsNotDelivered(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	p := newProvider(t)

	sub := p.Subscribe(ctx, "user-1")
	defer sub.Close()

	_, err := p.Send(ctx, delivery.SendRequest{Recipient: "user-2", Body: "not yours"})
	require.NoError(t, err)

	select {
	case msg := <-sub.Receive():
		t.Fatalf("unexpected message: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeliveryStatus_ReadLifecycle(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	p := newProvider(t)

	result, err := p.Send(ctx, delivery.SendRequest{Recipient: "user-42", Body: "hello"})
	require.NoError(t, err)

	snap, err := p.DeliveryStatus(ctx, result.ProviderMessageID)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusDelivered, snap.Status)

	msg, err := p.MarkRead(ctx, result.ProviderMessageID)
	require.NoError(t, err)
	require.NotNil(t, msg.ReadAt)
	firstRead := *msg.ReadAt

	// A second acknowledgement keeps the original read time.
	msg, err = p.MarkRead(ctx, result.ProviderMessageID)
	require.NoError(t, err)
	assert.Equal(t, firstRead, *msg.ReadAt)

	snap, err = p.DeliveryStatus(ctx, result.ProviderMessageID)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusRead, snap.Status)
}

func TestDeliveryStatus_UnknownMessage(t *testing.T) {
	t.Parallel()

	p := newProvider(t)

	_, err := p.DeliveryStatus(t.Context(), "not-a-uuid")
	assert.ErrorIs(t, err, inapp.ErrMessageNotFound)
}

func TestProviderIdentity(t *testing.T) {
	t.Parallel()

	p := newProvider(t)
	assert.Equal(t, "inapp", p.Name())
	assert.Equal(t, notification.ChannelInApp, p.Channel())
	assert.True(t, p.Available())
}

func TestSendBulk_CountsAlwaysSum(t *testing.T) {
	t.Parallel()

	p := newProvider(t)

	bulk, err := p.SendBulk(t.Context(), []delivery.SendRequest{
		{Recipient: "user-1", Body: "one"},
		{Recipient: "", Body: "bad"},
		{Recipient: "user-3", Body: "three"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, bulk.TotalProcessed)
	assert.Equal(t, 2, bulk.SuccessCount)
	assert.Equal(t, 1, bulk.FailureCount)
}
