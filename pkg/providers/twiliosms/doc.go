// Package twiliosms implements the SMS delivery provider on top of the
// Twilio REST API.
//
// Twilio accepts messages asynchronously: a successful create call
// returns a queued message that later moves through sending, sent and
// delivered. Send therefore reports Queued results and the reconciler
// advances the attempt from Twilio status callbacks or polls.
//
// An empty credential set yields a disabled provider (Available()
// returns false) so deployments without SMS simply skip the channel.
package twiliosms
