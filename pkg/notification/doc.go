// Package notification defines the logical notification domain model:
// the coarse lifecycle status, delivery channels, priorities and the
// persistence port the delivery engine reads from.
//
// A Notification is a logical message for one recipient across one or
// more channels. The engine never deletes notifications; it only
// advances their status as delivery attempts succeed or fail. Actual
// provider-level tries are modeled separately as delivery attempts in
// the delivery package, so retry history stays fully auditable.
//
// # Lifecycle
//
// Status transitions flow strictly forward:
//
//	Pending/Scheduled -> Sent | Failed | Cancelled
//	Sent -> Read
//
// UpdateStatus on the Store is guarded: an illegal step returns
// ErrInvalidTransition instead of silently overwriting state, which
// keeps concurrent writers (orchestrator, reconciler) from regressing
// each other's updates.
package notification
