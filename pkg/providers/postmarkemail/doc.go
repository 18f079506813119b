// Package postmarkemail implements the email delivery provider on top
// of the Postmark transactional API.
//
// Postmark confirms acceptance synchronously and reports the rest of
// the lifecycle (delivery, bounces, spam complaints, opens, clicks)
// through webhooks, which the reconciler ingests keyed by MessageID.
package postmarkemail
