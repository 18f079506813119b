package retry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// DefaultMaxAttempts caps tries per (notification, channel) chain.
const DefaultMaxAttempts = 3

// Redeliverer is the slice of the orchestrator the scheduler needs.
type Redeliverer interface {
	DeliverOne(ctx context.Context, n *notification.Notification, ch notification.Channel) dispatch.Outcome
	MarkExhausted(ctx context.Context, notificationID uuid.UUID) error
}

// Scheduler consumes failed-but-retryable delivery outcomes and
// re-runs them with backoff until they succeed or attempts run out.
// Each chain retries strictly sequentially: attempt N+1 never starts
// before attempt N's outcome is recorded.
type Scheduler struct {
	orch      Redeliverer
	backoff   BackoffStrategy
	cooldowns CooldownStore

	maxAttempts     int
	rateLimitWindow time.Duration
	maxConcurrent   int
	sem             chan struct{}
	logger          *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	stopping bool

	// concluded tracks, per notification, the channels whose chains
	// ended without success. The coarse Failed roll-up waits until
	// every addressed channel is in the set.
	concluded map[uuid.UUID]map[notification.Channel]struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxAttempts overrides the attempt cap per chain.
func WithMaxAttempts(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff replaces the backoff strategy.
func WithBackoff(b BackoffStrategy) SchedulerOption {
	return func(s *Scheduler) {
		if b != nil {
			s.backoff = b
		}
	}
}

// WithCooldowns replaces the rate-limit cooldown store.
func WithCooldowns(c CooldownStore) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.cooldowns = c
		}
	}
}

// WithRateLimitWindow sets the cool-down opened when a provider
// reports rate limiting.
func WithRateLimitWindow(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.rateLimitWindow = d
		}
	}
}

// WithSchedulerConcurrency caps simultaneously executing retry sends.
func WithSchedulerConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a retry scheduler over the given orchestrator.
func NewScheduler(orch Redeliverer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		orch:            orch,
		backoff:         DefaultBackoff(),
		cooldowns:       NewMemoryCooldowns(),
		maxAttempts:     DefaultMaxAttempts,
		rateLimitWindow: 30 * time.Second,
		maxConcurrent:   DefaultMaxAttempts * 2,
		logger:          slog.Default(),
		concluded:       make(map[uuid.UUID]map[notification.Channel]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.sem = make(chan struct{}, s.maxConcurrent)
	return s
}

// Start begins accepting retry chains. Chains scheduled before Start
// are rejected.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.stopping = false
	return nil
}

// Stop waits for in-flight retry sends to complete. Chains still
// waiting on backoff are abandoned; their attempts are already
// recorded, so a restart can resume from storage.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.stopping = true
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	return nil
}

// Run returns an errgroup-compatible runner.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return s.Stop()
	}
}

// Schedule hands a delivery outcome to the scheduler. It returns true
// when a retry chain was accepted. Permanent, validation and
// configuration failures are refused and conclude their channel; the
// notification is marked exhausted only once every addressed channel
// has concluded without a success. Successful outcomes settle the
// notification and drop any conclusion bookkeeping.
func (s *Scheduler) Schedule(n *notification.Notification, out dispatch.Outcome) bool {
	if out.Success || out.Err == nil {
		s.clearConcluded(n.ID)
		return false
	}

	ctx := s.runningCtx()
	if ctx == nil {
		return false
	}

	if out.Err.Code == "RATE_LIMITED" {
		if err := s.cooldowns.SetCooldown(ctx, out.Provider, s.rateLimitWindow); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to record provider cooldown",
				slog.String("provider", out.Provider),
				slog.String("error", err.Error()),
			)
		}
	}

	if !out.Retryable() {
		s.concludeChannel(ctx, n, out.Channel)
		return false
	}
	if out.AttemptNumber >= s.maxAttempts {
		s.concludeChannel(ctx, n, out.Channel)
		return false
	}

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runChain(ctx, n, out)
	return true
}

// runChain drives one (notification, channel) retry chain to its
// terminal outcome.
func (s *Scheduler) runChain(ctx context.Context, n *notification.Notification, out dispatch.Outcome) {
	defer s.wg.Done()

	for {
		wait := s.backoff.NextInterval(out.AttemptNumber)
		if out.Err != nil && out.Err.Code == "RATE_LIMITED" {
			if remaining, err := s.cooldowns.Remaining(ctx, out.Provider); err == nil && remaining > wait {
				wait = remaining
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		s.sem <- struct{}{}
		next := s.orch.DeliverOne(ctx, n, out.Channel)
		<-s.sem

		if next.Success {
			s.clearConcluded(n.ID)
			s.logger.LogAttrs(ctx, slog.LevelInfo, "retry succeeded",
				slog.String("notification_id", n.ID.String()),
				slog.String("channel", string(out.Channel)),
				slog.Int("attempt_number", next.AttemptNumber),
			)
			return
		}

		if next.Err != nil && next.Err.Code == "RATE_LIMITED" {
			if err := s.cooldowns.SetCooldown(ctx, next.Provider, s.rateLimitWindow); err != nil {
				s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to record provider cooldown",
					slog.String("provider", next.Provider),
					slog.String("error", err.Error()),
				)
			}
		}

		if !next.Retryable() || next.AttemptNumber >= s.maxAttempts {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "retries exhausted",
				slog.String("notification_id", n.ID.String()),
				slog.String("channel", string(out.Channel)),
				slog.Int("attempt_number", next.AttemptNumber),
			)
			s.concludeChannel(ctx, n, out.Channel)
			return
		}

		out = next
	}
}

// concludeChannel records that a (notification, channel) chain ended
// without success. A channel whose chain is still running, or that
// succeeded, keeps the coarse status out of Failed: the roll-up fires
// only once every addressed channel has concluded.
func (s *Scheduler) concludeChannel(ctx context.Context, n *notification.Notification, ch notification.Channel) {
	channels := n.Channels()

	s.mu.Lock()
	set := s.concluded[n.ID]
	if set == nil {
		set = make(map[notification.Channel]struct{}, len(channels))
		s.concluded[n.ID] = set
	}
	set[ch] = struct{}{}

	allConcluded := true
	for _, c := range channels {
		if _, ok := set[c]; !ok {
			allConcluded = false
			break
		}
	}
	if allConcluded {
		delete(s.concluded, n.ID)
	}
	s.mu.Unlock()

	if !allConcluded {
		return
	}

	if err := s.orch.MarkExhausted(ctx, n.ID); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to mark notification exhausted",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Scheduler) clearConcluded(id uuid.UUID) {
	s.mu.Lock()
	delete(s.concluded, id)
	s.mu.Unlock()
}

func (s *Scheduler) runningCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil || s.stopping {
		return nil
	}
	return s.ctx
}
