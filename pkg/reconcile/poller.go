package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
)

// DefaultPollInterval is how often the poller sweeps unresolved
// attempts when no interval is configured.
const DefaultPollInterval = 30 * time.Second

// defaultPollBatch caps attempts fetched per sweep.
const defaultPollBatch = 100

// Poller periodically pulls delivery status for attempts that have no
// final verdict yet. It covers providers without push callbacks;
// providers that do push still get polled as a safety net for lost
// webhooks.
type Poller struct {
	attempts   delivery.AttemptStore
	providers  map[string]delivery.Provider
	reconciler *Reconciler

	interval time.Duration
	batch    int
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the sweep interval.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPollBatch caps attempts fetched per sweep.
func WithPollBatch(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.batch = n
		}
	}
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPoller creates a status poller over the given providers, keyed by
// provider name as recorded on attempts.
func NewPoller(attempts delivery.AttemptStore, reconciler *Reconciler, providers []delivery.Provider, opts ...PollerOption) (*Poller, error) {
	if attempts == nil {
		return nil, ErrStoreNil
	}
	if reconciler == nil {
		return nil, ErrReconcilerNil
	}

	p := &Poller{
		attempts:   attempts,
		providers:  make(map[string]delivery.Provider, len(providers)),
		reconciler: reconciler,
		interval:   DefaultPollInterval,
		batch:      defaultPollBatch,
		logger:     slog.Default(),
	}
	for _, provider := range providers {
		p.providers[provider.Name()] = provider
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Start begins sweeping in the background.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Sweep(ctx)
			}
		}
	}()

	return nil
}

// Stop halts sweeping and waits for an in-progress sweep to finish.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return ErrNotStarted
	}
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	return nil
}

// Run returns an errgroup-compatible runner.
func (p *Poller) Run(ctx context.Context) func() error {
	return func() error {
		if err := p.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return p.Stop()
	}
}

// Sweep polls every unresolved attempt once. Exported so callers can
// force a sweep outside the ticker, e.g. in tests or admin tooling.
func (p *Poller) Sweep(ctx context.Context) {
	attempts, err := p.attempts.ListUnresolved(ctx, p.batch)
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelError, "failed to list unresolved attempts",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, attempt := range attempts {
		if ctx.Err() != nil {
			return
		}
		if attempt.ProviderMessageID == "" {
			continue
		}

		provider, ok := p.providers[attempt.Provider]
		if !ok {
			continue
		}

		snap, err := provider.DeliveryStatus(ctx, attempt.ProviderMessageID)
		if err != nil {
			p.logger.LogAttrs(ctx, slog.LevelWarn, "delivery status poll failed",
				slog.String("attempt_id", attempt.ID.String()),
				slog.String("provider", attempt.Provider),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := p.reconciler.ApplySnapshot(ctx, attempt.ID, snap); err != nil {
			p.logger.LogAttrs(ctx, slog.LevelError, "failed to apply status snapshot",
				slog.String("attempt_id", attempt.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}
