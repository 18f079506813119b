package notification

// Status is the coarse notification lifecycle state. Fine-grained
// per-attempt delivery states live in the delivery package.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRead      Status = "read"
)

// CanTransition reports whether moving from s to the target status is a
// legal lifecycle step. Transitions only flow forward:
// Pending/Scheduled -> Sent|Failed|Cancelled -> Read, with Read
// reachable only from Sent.
func (s Status) CanTransition(to Status) bool {
	if s == to {
		return false
	}
	switch s {
	case StatusPending, StatusScheduled:
		switch to {
		case StatusSent, StatusFailed, StatusCancelled:
			return true
		case StatusScheduled:
			return s == StatusPending
		}
		return false
	case StatusSent:
		return to == StatusRead
	default:
		// Failed, Cancelled and Read are terminal.
		return false
	}
}

// Terminal reports whether no further coarse transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusCancelled || s == StatusRead
}
