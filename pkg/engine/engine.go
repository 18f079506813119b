package engine

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/reconcile"
	"github.com/dmitrymomot/notifykit/pkg/retry"
)

// Engine is the facade over the delivery pipeline: it accepts
// notifications, fans them out across channels with bounded
// concurrency, retries transient failures and reconciles
// later-arriving provider status signals.
type Engine struct {
	cfg      Config
	notifs   notification.Store
	attempts delivery.AttemptStore

	orch       *dispatch.Orchestrator
	dispatcher *dispatch.Dispatcher
	scheduler  *retry.Scheduler
	reconciler *reconcile.Reconciler
	poller     *reconcile.Poller
	webhook    *reconcile.WebhookHandler

	logger *slog.Logger

	mu     sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
	timers sync.WaitGroup
}

// Option configures an Engine.
type Option func(*settings)

type settings struct {
	logger    *slog.Logger
	cooldowns retry.CooldownStore
	backoff   retry.BackoffStrategy
}

// WithLogger sets the logger shared by all engine components.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCooldowns replaces the rate-limit cooldown store, e.g. with the
// Redis-backed one for multi-instance deployments.
func WithCooldowns(c retry.CooldownStore) Option {
	return func(s *settings) {
		if c != nil {
			s.cooldowns = c
		}
	}
}

// WithBackoff replaces the retry backoff strategy.
func WithBackoff(b retry.BackoffStrategy) Option {
	return func(s *settings) {
		if b != nil {
			s.backoff = b
		}
	}
}

// New assembles the engine from its stores and channel providers.
func New(cfg Config, notifs notification.Store, attempts delivery.AttemptStore, providers []delivery.Provider, opts ...Option) (*Engine, error) {
	s := settings{
		logger:    slog.Default(),
		cooldowns: retry.NewMemoryCooldowns(),
		backoff:   retry.DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	orch, err := dispatch.NewOrchestrator(notifs, attempts, providers,
		dispatch.WithOrchestratorLogger(s.logger))
	if err != nil {
		return nil, err
	}

	reconciler, err := reconcile.NewReconciler(attempts, notifs,
		reconcile.WithReconcilerLogger(s.logger))
	if err != nil {
		return nil, err
	}

	poller, err := reconcile.NewPoller(attempts, reconciler, providers,
		reconcile.WithPollInterval(cfg.PollInterval),
		reconcile.WithPollBatch(cfg.PollBatch),
		reconcile.WithPollerLogger(s.logger))
	if err != nil {
		return nil, err
	}

	webhookOpts := []reconcile.WebhookOption{
		reconcile.WithWebhookLogger(s.logger),
		reconcile.WithWebhookMaxAge(cfg.WebhookMaxAge),
	}
	if cfg.WebhookSecret != "" {
		webhookOpts = append(webhookOpts, reconcile.WithWebhookSecret(cfg.WebhookSecret))
	}
	webhook, err := reconcile.NewWebhookHandler(reconciler, webhookOpts...)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:      cfg,
		notifs:   notifs,
		attempts: attempts,
		orch:     orch,
		dispatcher: dispatch.NewDispatcher(orch,
			dispatch.WithMaxConcurrent(cfg.MaxConcurrent),
			dispatch.WithDispatcherLogger(s.logger)),
		scheduler: retry.NewScheduler(orch,
			retry.WithMaxAttempts(cfg.RetryMaxAttempts),
			retry.WithRateLimitWindow(cfg.RateLimitCooldown),
			retry.WithCooldowns(s.cooldowns),
			retry.WithBackoff(s.backoff),
			retry.WithSchedulerLogger(s.logger)),
		reconciler: reconciler,
		poller:     poller,
		webhook:    webhook,
		logger:     s.logger,
	}, nil
}

// Start launches the retry scheduler and the status poller.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return ErrAlreadyStarted
	}
	e.runCtx, e.cancel = context.WithCancel(ctx)

	if err := e.scheduler.Start(e.runCtx); err != nil {
		return err
	}
	if err := e.poller.Start(e.runCtx); err != nil {
		_ = e.scheduler.Stop()
		return err
	}
	return nil
}

// Stop shuts the background components down and waits for in-flight
// work. Notifications still waiting on their scheduled time stay
// persisted as Scheduled; delivery resumes when they are resubmitted.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.cancel == nil {
		e.mu.Unlock()
		return ErrNotStarted
	}
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.timers.Wait()

	err := e.scheduler.Stop()
	if perr := e.poller.Stop(); err == nil {
		err = perr
	}
	return err
}

// Run returns an errgroup-compatible runner.
func (e *Engine) Run(ctx context.Context) func() error {
	return func() error {
		if err := e.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return e.Stop()
	}
}

// Submit validates and persists a notification, then delivers it over
// every addressed channel. Notifications scheduled for the future are
// stored as Scheduled and dispatched when due; the returned outcome is
// empty for those.
func (e *Engine) Submit(ctx context.Context, n notification.Notification) (dispatch.BulkOutcome, error) {
	if err := n.Validate(); err != nil {
		return dispatch.BulkOutcome{}, err
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	deferred := n.ScheduledAt != nil && n.ScheduledAt.After(time.Now())
	if n.Status == "" {
		n.Status = notification.StatusPending
		if deferred {
			n.Status = notification.StatusScheduled
		}
	}

	if err := e.notifs.Save(ctx, n); err != nil {
		return dispatch.BulkOutcome{}, err
	}

	if deferred {
		e.deferDelivery(n)
		return dispatch.BulkOutcome{}, nil
	}

	return e.deliverNow(ctx, []notification.Notification{n}), nil
}

// SubmitBulk persists and delivers a batch. One notification's
// validation failure never aborts the rest; the outcome accounts for
// every item delivered now. Future-scheduled notifications are stored
// as Scheduled and dispatched when due, exactly as in Submit, so they
// do not appear in the returned outcome.
func (e *Engine) SubmitBulk(ctx context.Context, ns []notification.Notification) (dispatch.BulkOutcome, error) {
	deliverable := make([]notification.Notification, 0, len(ns))
	var rejected []dispatch.Outcome

	for _, n := range ns {
		if err := n.Validate(); err != nil {
			rejected = append(rejected, dispatch.Outcome{
				NotificationID: n.ID,
				Err:            delivery.NewValidationError("VALIDATION_ERROR", err.Error()),
			})
			continue
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		deferred := n.ScheduledAt != nil && n.ScheduledAt.After(time.Now())
		if n.Status == "" {
			n.Status = notification.StatusPending
			if deferred {
				n.Status = notification.StatusScheduled
			}
		}
		if err := e.notifs.Save(ctx, n); err != nil {
			rejected = append(rejected, dispatch.Outcome{
				NotificationID: n.ID,
				Err:            delivery.AsError(err),
			})
			continue
		}
		if deferred {
			e.deferDelivery(n)
			continue
		}
		deliverable = append(deliverable, n)
	}

	bulk := e.deliverNow(ctx, deliverable)

	bulk.Outcomes = append(bulk.Outcomes, rejected...)
	bulk.TotalProcessed += len(rejected)
	bulk.FailureCount += len(rejected)
	return bulk, nil
}

// Cancel withdraws a notification that has not gone out yet.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID) error {
	n, err := e.notifs.Load(ctx, id)
	if err != nil {
		return err
	}
	return e.notifs.UpdateStatus(ctx, id, n.Status, notification.StatusCancelled)
}

// Status returns the notification with its current coarse status.
func (e *Engine) Status(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	return e.notifs.Load(ctx, id)
}

// Attempts returns the full delivery history of a notification.
func (e *Engine) Attempts(ctx context.Context, id uuid.UUID) ([]delivery.Attempt, error) {
	return e.attempts.ListByNotification(ctx, id)
}

// WebhookHandler returns the HTTP handler ingesting provider status
// callbacks, mountable under any prefix.
func (e *Engine) WebhookHandler() http.Handler {
	return e.webhook.Routes()
}

// Reconciler exposes status reconciliation for custom ingestion paths,
// e.g. an in-app read acknowledgement endpoint.
func (e *Engine) Reconciler() *reconcile.Reconciler {
	return e.reconciler
}

func (e *Engine) deliverNow(ctx context.Context, ns []notification.Notification) dispatch.BulkOutcome {
	if len(ns) == 0 {
		return dispatch.BulkOutcome{}
	}

	items := make([]dispatch.Item, 0, len(ns))
	for i := range ns {
		for _, ch := range ns[i].Channels() {
			items = append(items, dispatch.Item{Notification: &ns[i], Channel: ch})
		}
	}

	bulk := e.dispatcher.Dispatch(ctx, items)

	// Every outcome feeds the scheduler: failures start retry chains
	// or conclude their channel, successes settle the notification so
	// it can never be rolled up to Failed.
	for i, out := range bulk.Outcomes {
		e.scheduler.Schedule(items[i].Notification, out)
	}
	return bulk
}

// deferDelivery waits out the scheduled time, then dispatches. The
/// timer is bound to the engine lifecycle: stopping the engine abandons
// the timer and leaves the notification Scheduled in storage.
func (e *Engine) deferDelivery(n notification.Notification) {
	e.mu.Lock()
	runCtx := e.runCtx
	e.mu.Unlock()
	if runCtx == nil {
		runCtx = context.Background()
	}

	e.timers.Add(1)
	go func() {
		defer e.timers.Done()

		select {
		case <-runCtx.Done():
			return
		case <-time.After(time.Until(*n.ScheduledAt)):
		}

		e.logger.LogAttrs(runCtx, slog.LevelInfo, "dispatching scheduled notification",
			logger.NotificationID(n.ID),
		)
		e.deliverNow(runCtx, []notification.Notification{n})
	}()
}
