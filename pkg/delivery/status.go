package delivery

import "strings"

// Status is the engine's canonical delivery status for a single
// attempt, independent of any provider's raw vocabulary.
type Status string

const (
	StatusPending      Status = "pending"
	StatusSent         Status = "sent"
	StatusDelivered    Status = "delivered"
	StatusOpened       Status = "opened"
	StatusClicked      Status = "clicked"
	StatusRead         Status = "read"
	StatusBounced      Status = "bounced"
	StatusFailed       Status = "failed"
	StatusSpam         Status = "spam"
	StatusUnsubscribed Status = "unsubscribed"
	StatusRateLimited  Status = "rate_limited"
	StatusBlocked      Status = "blocked"
	StatusUnknown      Status = "unknown"
)

// Terminal reports whether the status is an absorbing failure state.
// Once an attempt lands here no later event may move it elsewhere.
func (s Status) Terminal() bool {
	switch s {
	case StatusBounced, StatusFailed, StatusSpam, StatusUnsubscribed, StatusRateLimited, StatusBlocked:
		return true
	}
	return false
}

// Succeeded reports whether the status indicates the message reached
// the recipient (or further: was opened, clicked or read).
func (s Status) Succeeded() bool {
	switch s {
	case StatusDelivered, StatusOpened, StatusClicked, StatusRead:
		return true
	}
	return false
}

// rank orders the non-terminal lifecycle so that late-arriving events
// cannot regress an attempt. Opened, Clicked and Read share the top
// rank; they are sibling outcomes of a delivered message.
func (s Status) rank() int {
	switch s {
	case StatusPending, StatusUnknown:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusOpened, StatusClicked, StatusRead:
		return 3
	default:
		return 0
	}
}

// Advances reports whether moving from s to the target status is a
// forward step. Terminal states absorb from any non-terminal state and
// never change afterwards. Sibling top-rank statuses (Opened, Clicked,
// Read) may replace each other since each carries new information.
func (s Status) Advances(to Status) bool {
	if s == to {
		return false
	}
	if s.Terminal() {
		return false
	}
	if to.Terminal() {
		return true
	}
	if s.rank() == 3 && to.rank() == 3 {
		return true
	}
	return to.rank() > s.rank()
}

// MapRawStatus maps a raw provider status value to exactly one
// canonical status. The mapping is total: unrecognized values map to
// StatusUnknown rather than erroring, so a provider adding new
// vocabulary never breaks reconciliation.
func MapRawStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "accepted", "scheduled", "pending", "sending":
		return StatusPending
	case "sent":
		return StatusSent
	case "delivered", "received", "partiallydelivered", "partially_delivered":
		return StatusDelivered
	case "opened", "open":
		return StatusOpened
	case "clicked", "click":
		return StatusClicked
	case "read":
		return StatusRead
	case "bounced", "bounce", "hardbounce", "softbounce":
		return StatusBounced
	case "failed", "undelivered", "error":
		return StatusFailed
	case "spam", "spamcomplaint", "spam_complaint":
		return StatusSpam
	case "unsubscribed", "subscriptionchange":
		return StatusUnsubscribed
	case "ratelimited", "rate_limited", "throttled":
		return StatusRateLimited
	case "blocked", "blacklisted", "suppressed":
		return StatusBlocked
	default:
		return StatusUnknown
	}
}
