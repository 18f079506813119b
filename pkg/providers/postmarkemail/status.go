package postmarkemail

import (
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
)

// MapEventType maps Postmark's status vocabulary, covering both the
// webhook record types (Delivery, Bounce, SpamComplaint, Open, Click,
// SubscriptionChange) and the outbound message event types (Delivered,
// Bounced, Opened, LinkClicked, Transient), to the canonical delivery
// status. The mapping is total.
func MapEventType(raw string) delivery.Status {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "_", "")

	switch normalized {
	case "queued", "transient", "processing":
		return delivery.StatusPending
	case "sent", "processed":
		return delivery.StatusSent
	case "delivery", "delivered":
		return delivery.StatusDelivered
	case "open", "opened":
		return delivery.StatusOpened
	case "click", "clicked", "linkclicked":
		return delivery.StatusClicked
	case "bounce", "bounced", "hardbounce", "softbounce":
		return delivery.StatusBounced
	case "spamcomplaint", "spam":
		return delivery.StatusSpam
	case "subscriptionchange", "subscriptionchanged", "unsubscribe", "unsubscribed":
		return delivery.StatusUnsubscribed
	default:
		return delivery.StatusUnknown
	}
}
