package twiliosms

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Config holds Twilio gateway configuration. Credentials are optional
// so the engine can start with SMS disabled; an unconfigured provider
// reports Available() == false and is skipped by the orchestrator.
type Config struct {
	AccountSID        string        `env:"TWILIO_ACCOUNT_SID"`
	AuthToken         string        `env:"TWILIO_AUTH_TOKEN"`
	FromNumber        string        `env:"TWILIO_FROM_NUMBER"`
	StatusCallbackURL string        `env:"TWILIO_STATUS_CALLBACK_URL"`
	Timeout           time.Duration `env:"TWILIO_TIMEOUT" envDefault:"10s"`
}

// Validate checks internal consistency of the provided values. A fully
// empty credential set is valid and yields a disabled provider.
func (c Config) Validate() error {
	if !c.configured() {
		return nil
	}
	if c.AccountSID == "" {
		return fmt.Errorf("%w: AccountSID is required", delivery.ErrInvalidConfig)
	}
	if c.AuthToken == "" {
		return fmt.Errorf("%w: AuthToken is required", delivery.ErrInvalidConfig)
	}
	if c.FromNumber == "" {
		return fmt.Errorf("%w: FromNumber is required", delivery.ErrInvalidConfig)
	}
	if v := delivery.ValidateRecipient(notification.ChannelSMS, c.FromNumber); !v.IsValid {
		return fmt.Errorf("%w: FromNumber must be E.164: %s", delivery.ErrInvalidConfig, v.Reason)
	}
	return nil
}

// configured reports whether any credential field is set.
func (c Config) configured() bool {
	return c.AccountSID != "" || c.AuthToken != "" || c.FromNumber != ""
}
