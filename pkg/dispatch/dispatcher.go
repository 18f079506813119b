package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// DefaultMaxConcurrent caps in-flight provider calls when no explicit
// limit is configured.
const DefaultMaxConcurrent = 10

// Item is one unit of work for the dispatcher: deliver one
// notification over one channel.
type Item struct {
	Notification *notification.Notification
	Channel      notification.Channel
}

// BulkOutcome aggregates the results of a dispatched batch.
// TotalProcessed always equals the input count and
// SuccessCount + FailureCount == TotalProcessed, even under partial
// failure or cancellation.
type BulkOutcome struct {
	TotalProcessed int
	SuccessCount   int
	FailureCount   int
	Outcomes       []Outcome

	// TotalCost and Currency are set when all successful attempts
	// share one currency. Mixed batches report per-currency sums in
	// CostByCurrency instead of summing blindly.
	TotalCost      float64
	Currency       string
	CostByCurrency map[string]float64
}

// Dispatcher fans a batch of send requests out across a bounded number
// of concurrent orchestrator calls and fans the results back in.
type Dispatcher struct {
	orch          *Orchestrator
	maxConcurrent int
	logger        *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMaxConcurrent caps simultaneously in-flight deliveries.
// Non-positive values fall back to DefaultMaxConcurrent.
func WithMaxConcurrent(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxConcurrent = n
		}
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a bounded bulk dispatcher over the given
// orchestrator.
func NewDispatcher(orch *Orchestrator, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		orch:          orch,
		maxConcurrent: DefaultMaxConcurrent,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch delivers all items with at most maxConcurrent calls in
// flight. One item's failure never aborts the batch. Cancelling ctx
// stops issuing new sends; in-flight calls run to completion and their
// results are included. Items never started are reported as failed
// with code CANCELLED.
func (d *Dispatcher) Dispatch(ctx context.Context, items []Item) BulkOutcome {
	outcomes := make([]Outcome, len(items))

	sem := make(chan struct{}, d.maxConcurrent)
	var wg sync.WaitGroup

	for i, item := range items {
		// Cooperative cancellation: checked before each new unit of
		// work, never interrupting calls already issued.
		if err := ctx.Err(); err != nil {
			outcomes[i] = cancelledOutcome(item)
			continue
		}

		// Waiting on a permit is interruptible too: an item still
		// queued behind the cap at cancellation time is never started.
		select {
		case <-ctx.Done():
			outcomes[i] = cancelledOutcome(item)
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, item Item) {
			defer wg.Done()
			defer func() { <-sem }()

			// Each goroutine writes only its own slot.
			outcomes[i] = d.orch.DeliverOne(ctx, item.Notification, item.Channel)
		}(i, item)
	}

	wg.Wait()

	return aggregate(outcomes)
}

func cancelledOutcome(item Item) Outcome {
	out := Outcome{Channel: item.Channel}
	if item.Notification != nil {
		out.NotificationID = item.Notification.ID
	}
	out.Err = &delivery.Error{
		Kind:    delivery.KindTransient,
		Code:    "CANCELLED",
		Message: "batch cancelled before dispatch",
	}
	return out
}

func aggregate(outcomes []Outcome) BulkOutcome {
	bulk := BulkOutcome{
		TotalProcessed: len(outcomes),
		Outcomes:       outcomes,
	}

	costs := make(map[string]float64)
	for _, out := range outcomes {
		if out.Success {
			bulk.SuccessCount++
			if out.Result.Cost > 0 {
				costs[out.Result.Currency] += out.Result.Cost
			}
		} else {
			bulk.FailureCount++
		}
	}

	switch len(costs) {
	case 0:
	case 1:
		for currency, total := range costs {
			bulk.Currency = currency
			bulk.TotalCost = total
		}
	default:
		bulk.CostByCurrency = costs
	}

	return bulk
}
