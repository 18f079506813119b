// Package inapp implements the in-app delivery provider: a persistent
// per-recipient inbox plus a fan-out hub for live subscribers.
//
// Unlike external gateways, delivery is synchronous and local. A
// stored message counts as delivered; it becomes read when the
// recipient acknowledges it via MarkRead. Live subscribers get
// non-blocking pushes with a bounded buffer, and a slow subscriber
// catches up from the inbox instead of stalling publishers.
package inapp
