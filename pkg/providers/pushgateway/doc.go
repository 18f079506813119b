// Package pushgateway implements the push delivery provider as a
// client of an HTTP push gateway fronting the platform services.
//
// The gateway accepts messages asynchronously; Send reports Queued
// results and the reconciler advances the attempt from status polls.
// Unregistered or expired device tokens come back as permanent
// failures since the device must re-register before it is reachable.
package pushgateway
