// Package delivery defines the provider contract and the per-attempt
// delivery model the engine is built around.
//
// A Provider is the sole integration surface for a channel gateway:
// one implementation per medium (SMS, email, push, in-app, chat)
// behind a uniform capability set. Providers normalize every raw
// status they may emit into the canonical Status enumeration; the
// mapping is total, with unknown values landing on StatusUnknown.
//
// An Attempt records one provider-level try. Retries create new
// attempts instead of overwriting, and every later provider signal is
// appended as an Event, so delivery history stays fully auditable.
//
// Failures are typed values rather than bare errors: *Error carries an
// ErrorKind (validation, transient, permanent, configuration) so the
// retry scheduler branches on data, not on error string matching.
package delivery
