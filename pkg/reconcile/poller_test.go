package reconcile_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/reconcile"
)

// pollProvider serves a scripted status snapshot.
type pollProvider struct {
	name  string
	snap  delivery.StatusSnapshot
	calls atomic.Int64
}

func (p *pollProvider) Name() string                  { return p.name }
func (p *pollProvider) Channel() notification.Channel { return notification.ChannelEmail }
func (p *pollProvider) Available() bool               { return true }

func (p *pollProvider) Send(ctx context.Context, req delivery.SendRequest) (delivery.SendResult, error) {
	return delivery.SendResult{}, delivery.NewConfigurationError("poll-only provider")
}

func (p *pollProvider) SendBulk(ctx context.Context, reqs []delivery.SendRequest) (delivery.BulkResult, error) {
	return delivery.BulkResult{}, delivery.NewConfigurationError("poll-only provider")
}

func (p *pollProvider) ValidateRecipient(identity string) delivery.ValidationResult {
	return delivery.ValidateRecipient(notification.ChannelEmail, identity)
}

func (p *pollProvider) DeliveryStatus(ctx context.Context, providerMessageID string) (delivery.StatusSnapshot, error) {
	p.calls.Add(1)
	return p.snap, nil
}

func (p *pollProvider) AccountBalance(ctx context.Context) (delivery.AccountBalance, error) {
	return delivery.AccountBalance{AccountStatus: "unknown"}, nil
}

func TestPoller_SweepAppliesSnapshots(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, notification.StatusSent)

	provider := &pollProvider{
		name: "postmark",
		snap: delivery.StatusSnapshot{
			Status:      delivery.StatusDelivered,
			Raw:         "Delivered",
			LastUpdated: time.Now(),
		},
	}

	poller, err := reconcile.NewPoller(f.attempts, f.reconciler, []delivery.Provider{provider})
	require.NoError(t, err)

	poller.Sweep(ctx)

	assert.EqualValues(t, 1, provider.calls.Load())

	attempt, err := f.attempts.GetAttempt(ctx, f.attemptID)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusDelivered, attempt.Status)
}

func TestPoller_ResolvedAttemptsNotPolled(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, notification.StatusSent)

	provider := &pollProvider{
		name: "postmark",
		snap: delivery.StatusSnapshot{Raw: "Delivered", LastUpdated: time.Now()},
	}

	poller, err := reconcile.NewPoller(f.attempts, f.reconciler, []delivery.Provider{provider})
	require.NoError(t, err)

	// First sweep resolves the attempt to Delivered.
	poller.Sweep(ctx)
	// Second sweep has nothing left to poll.
	poller.Sweep(ctx)

	assert.EqualValues(t, 1, provider.calls.Load())
}

func TestPoller_UnknownProviderSkipped(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, notification.StatusSent)

	provider := &pollProvider{name: "someone-else"}
	poller, err := reconcile.NewPoller(f.attempts, f.reconciler, []delivery.Provider{provider})
	require.NoError(t, err)

	poller.Sweep(ctx)
	assert.Zero(t, provider.calls.Load())
}

func TestPoller_StartStop(t *testing.T) {
	t.Parallel()

	f := newFixture(t, notification.StatusSent)
	provider := &pollProvider{
		name: "postmark",
		snap: delivery.StatusSnapshot{Raw: "Delivered", LastUpdated: time.Now()},
	}

	poller, err := reconcile.NewPoller(f.attempts, f.reconciler, []delivery.Provider{provider},
		reconcile.WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)

	assert.ErrorIs(t, poller.Stop(), reconcile.ErrNotStarted)

	require.NoError(t, poller.Start(t.Context()))
	assert.ErrorIs(t, poller.Start(t.Context()), reconcile.ErrAlreadyStarted)

	assert.Eventually(t, func() bool {
		return provider.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, poller.Stop())
}
