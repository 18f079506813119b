// Package reconcile folds later-arriving provider status signals into
// the per-attempt delivery state machine.
//
// Signals arrive two ways: a Poller pulls status snapshots for
// attempts with no final verdict, and a WebhookHandler accepts
// provider callbacks keyed by provider message ID. Both paths converge
// on Reconciler.ApplyEvent, which is idempotent on the event's
// (raw status, timestamp) pair and only ever moves status forward
// along the canonical partial order.
package reconcile
