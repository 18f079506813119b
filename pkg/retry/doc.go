// Package retry re-runs transiently failed delivery attempts with
// exponential backoff until they succeed or the attempt cap is hit.
//
// Failure classification is data-driven: only outcomes whose typed
// error is transient enter a retry chain. Permanent and validation
// failures are refused up front, and a chain that runs out of attempts
// marks the owning notification exhausted.
//
// Rate limiting is handled apart from generic backoff. A provider
// reporting RATE_LIMITED opens a cool-down window in the CooldownStore
// (in-memory or Redis-backed for multi-node deployments), and the next
// attempt waits for whichever is longer, the window or the backoff.
package retry
