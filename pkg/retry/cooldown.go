package retry

import (
	"context"
	"sync"
	"time"
)

// CooldownStore tracks provider-imposed cool-down windows. Rate limits
// are a constraint set by the gateway, not transient network noise, so
// they get an explicit window distinct from generic backoff.
type CooldownStore interface {
	// SetCooldown opens (or extends) the window for a provider.
	SetCooldown(ctx context.Context, provider string, d time.Duration) error

	// Remaining returns how long the provider's window still has to
	// run; zero when no window is active.
	Remaining(ctx context.Context, provider string) (time.Duration, error)
}

// MemoryCooldowns is an in-process CooldownStore for single-node
// deployments and tests.
type MemoryCooldowns struct {
	deadlines map[string]time.Time
	mu        sync.Mutex
}

// NewMemoryCooldowns creates an in-memory cooldown store.
func NewMemoryCooldowns() *MemoryCooldowns {
	return &MemoryCooldowns{deadlines: make(map[string]time.Time)}
}

func (m *MemoryCooldowns) SetCooldown(ctx context.Context, provider string, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline := time.Now().Add(d)
	if existing, ok := m.deadlines[provider]; !ok || deadline.After(existing) {
		m.deadlines[provider] = deadline
	}
	return nil
}

func (m *MemoryCooldowns) Remaining(ctx context.Context, provider string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline, ok := m.deadlines[provider]
	if !ok {
		return 0, nil
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		delete(m.deadlines, provider)
		return 0, nil
	}
	return remaining, nil
}
