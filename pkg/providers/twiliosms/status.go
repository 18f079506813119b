package twiliosms

import (
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
)

// MapMessageStatus maps Twilio's message status vocabulary to the
// canonical delivery status. The mapping is total: values Twilio adds
// later map to Unknown instead of breaking reconciliation.
func MapMessageStatus(raw string) delivery.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "accepted", "scheduled", "sending":
		return delivery.StatusPending
	case "sent":
		return delivery.StatusSent
	case "delivered", "received", "receiving":
		return delivery.StatusDelivered
	case "read":
		return delivery.StatusRead
	case "undelivered", "failed", "canceled":
		return delivery.StatusFailed
	default:
		return delivery.StatusUnknown
	}
}
