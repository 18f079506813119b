package delivery

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// emailRegex matches the practical email syntax accepted by most
// gateways. Full RFC 5322 validation is left to the provider.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// ValidateRecipient checks a recipient identity for the given channel
// without any network call. It is total: every input yields a definite
// IsValid and the function never panics or errors.
func ValidateRecipient(channel notification.Channel, identity string) ValidationResult {
	switch channel {
	case notification.ChannelSMS:
		return validatePhone(identity)
	case notification.ChannelEmail:
		return validateEmail(identity)
	case notification.ChannelPush, notification.ChannelInApp, notification.ChannelChat:
		if strings.TrimSpace(identity) == "" {
			return ValidationResult{Reason: "recipient identity is empty"}
		}
		return ValidationResult{IsValid: true, Formatted: identity, CanReceive: true}
	default:
		return ValidationResult{Reason: "unknown channel " + string(channel)}
	}
}

// validatePhone enforces E.164 shape before consulting the number
// metadata: leading '+', digits only, 7 to 15 digits total.
func validatePhone(identity string) ValidationResult {
	if identity == "" {
		return ValidationResult{Reason: "phone number is empty"}
	}
	if identity[0] != '+' {
		return ValidationResult{Reason: "phone number must start with '+' (E.164)"}
	}
	digits := identity[1:]
	if len(digits) < 7 || len(digits) > 15 {
		return ValidationResult{Reason: "phone number must have 7-15 digits"}
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ValidationResult{Reason: "phone number may contain digits only after '+'"}
		}
	}

	parsed, err := phonenumbers.Parse(identity, "")
	if err != nil {
		return ValidationResult{Reason: "unparseable phone number"}
	}
	formatted := phonenumbers.Format(parsed, phonenumbers.E164)

	// Numbers with a valid shape but unknown metadata are still
	// accepted; reachability is ultimately the carrier's verdict.
	return ValidationResult{
		IsValid:    true,
		Formatted:  formatted,
		CanReceive: phonenumbers.IsValidNumber(parsed),
	}
}

func validateEmail(identity string) ValidationResult {
	trimmed := strings.TrimSpace(identity)
	if trimmed == "" {
		return ValidationResult{Reason: "email address is empty"}
	}
	if !emailRegex.MatchString(trimmed) {
		return ValidationResult{Reason: "malformed email address"}
	}
	return ValidationResult{
		IsValid:    true,
		Formatted:  strings.ToLower(trimmed),
		CanReceive: true,
	}
}
