// Package chatbridge implements the chat delivery provider: messages
// are posted as Slack-compatible JSON to a per-recipient incoming
// webhook URL, optionally signed with a timestamp-bound HMAC.
//
// Chat webhooks acknowledge synchronously and never report back, so a
// 2xx response is treated as final delivery.
package chatbridge
