package notification_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func TestNotification_Validate(t *testing.T) {
	t.Parallel()

	valid := notification.Notification{
		ID: uuid.New(),
		Recipients: map[notification.Channel]string{
			notification.ChannelSMS: "+15551234567",
		},
		Type: notification.TypeTransactional,
		Body: "exam graded",
	}

	t.Run("valid notification", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, valid.Validate())
	})

	t.Run("missing ID", func(t *testing.T) {
		t.Parallel()
		n := valid
		n.ID = uuid.Nil
		assert.ErrorIs(t, n.Validate(), notification.ErrMissingID)
	})

	t.Run("no recipients", func(t *testing.T) {
		t.Parallel()
		n := valid
		n.Recipients = nil
		assert.ErrorIs(t, n.Validate(), notification.ErrNoRecipients)
	})

	t.Run("empty recipient identity", func(t *testing.T) {
		t.Parallel()
		n := valid
		n.Recipients = map[notification.Channel]string{notification.ChannelEmail: ""}
		assert.ErrorIs(t, n.Validate(), notification.ErrNoRecipients)
	})

	t.Run("unknown channel", func(t *testing.T) {
		t.Parallel()
		n := valid
		n.Recipients = map[notification.Channel]string{notification.Channel("fax"): "+15551234567"}
		assert.ErrorIs(t, n.Validate(), notification.ErrUnknownChannel)
	})
}

func TestStatus_CanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to notification.Status
		want     bool
	}{
		{notification.StatusPending, notification.StatusSent, true},
		{notification.StatusPending, notification.StatusFailed, true},
		{notification.StatusPending, notification.StatusCancelled, true},
		{notification.StatusPending, notification.StatusScheduled, true},
		{notification.StatusPending, notification.StatusRead, false},
		{notification.StatusScheduled, notification.StatusSent, true},
		{notification.StatusScheduled, notification.StatusPending, false},
		{notification.StatusSent, notification.StatusRead, true},
		{notification.StatusSent, notification.StatusFailed, false},
		{notification.StatusSent, notification.StatusPending, false},
		{notification.StatusFailed, notification.StatusSent, false},
		{notification.StatusCancelled, notification.StatusSent, false},
		{notification.StatusRead, notification.StatusSent, false},
		{notification.StatusSent, notification.StatusSent, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestMemoryStore_UpdateStatus(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := notification.NewMemoryStore()

	n := notification.Notification{
		ID:         uuid.New(),
		Recipients: map[notification.Channel]string{notification.ChannelEmail: "user@example.com"},
		Status:     notification.StatusPending,
	}
	require.NoError(t, store.Save(ctx, n))

	t.Run("legal transition", func(t *testing.T) {
		require.NoError(t, store.UpdateStatus(ctx, n.ID, notification.StatusPending, notification.StatusSent))

		got, err := store.Load(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)
	})

	t.Run("stale from status", func(t *testing.T) {
		err := store.UpdateStatus(ctx, n.ID, notification.StatusPending, notification.StatusFailed)
		assert.ErrorIs(t, err, notification.ErrInvalidTransition)
	})

	t.Run("illegal direction", func(t *testing.T) {
		err := store.UpdateStatus(ctx, n.ID, notification.StatusSent, notification.StatusPending)
		assert.ErrorIs(t, err, notification.ErrInvalidTransition)
	})

	t.Run("read only from sent", func(t *testing.T) {
		require.NoError(t, store.UpdateStatus(ctx, n.ID, notification.StatusSent, notification.StatusRead))
	})

	t.Run("unknown notification", func(t *testing.T) {
		err := store.UpdateStatus(ctx, uuid.New(), notification.StatusPending, notification.StatusSent)
		assert.ErrorIs(t, err, notification.ErrNotFound)
	})
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := notification.NewMemoryStore()

	id := uuid.New()
	require.NoError(t, store.Save(ctx, notification.Notification{
		ID:         id,
		Recipients: map[notification.Channel]string{notification.ChannelSMS: "+15551234567"},
	}))

	first, err := store.Load(ctx, id)
	require.NoError(t, err)
	first.Status = notification.StatusFailed

	second, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, second.Status)
}
