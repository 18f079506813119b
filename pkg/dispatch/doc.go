// Package dispatch turns logical notifications into provider-level
// delivery attempts.
//
// The Orchestrator handles one (notification, channel) pair: it
// validates the recipient and body size before any network call,
// invokes the channel's provider, persists a delivery attempt for
// every try and advances the notification's coarse status. Failures
// come back as typed outcomes, never as batch-aborting errors.
//
// The Dispatcher fans a batch out across a bounded worker set: a
// semaphore channel caps in-flight orchestrator calls, results fan
// back into a single BulkOutcome whose counts always add up to the
// input size. Cancellation is cooperative; in-flight provider calls
// complete to avoid inconsistent provider-side state.
package dispatch
