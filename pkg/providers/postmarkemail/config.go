package postmarkemail

import (
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Config holds Postmark gateway configuration. Tokens are optional so
// the engine can start with email disabled; an unconfigured provider
// reports Available() == false and is skipped by the orchestrator.
type Config struct {
	ServerToken   string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken  string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail   string `env:"POSTMARK_SENDER_EMAIL"`
	ReplyToEmail  string `env:"POSTMARK_REPLY_TO_EMAIL"`
	MessageStream string `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
	TrackOpens    bool   `env:"POSTMARK_TRACK_OPENS" envDefault:"true"`
	TrackLinks    bool   `env:"POSTMARK_TRACK_LINKS" envDefault:"true"`
}

// Validate checks internal consistency of the provided values. A fully
// empty token set is valid and yields a disabled provider.
func (c Config) Validate() error {
	if !c.configured() {
		return nil
	}
	if c.ServerToken == "" {
		return fmt.Errorf("%w: ServerToken is required", delivery.ErrInvalidConfig)
	}
	if c.SenderEmail == "" {
		return fmt.Errorf("%w: SenderEmail is required", delivery.ErrInvalidConfig)
	}
	if v := delivery.ValidateRecipient(notification.ChannelEmail, c.SenderEmail); !v.IsValid {
		return fmt.Errorf("%w: SenderEmail must be a valid email address", delivery.ErrInvalidConfig)
	}
	if c.ReplyToEmail != "" {
		if v := delivery.ValidateRecipient(notification.ChannelEmail, c.ReplyToEmail); !v.IsValid {
			return fmt.Errorf("%w: ReplyToEmail must be a valid email address", delivery.ErrInvalidConfig)
		}
	}
	return nil
}

func (c Config) configured() bool {
	return c.ServerToken != "" || c.SenderEmail != ""
}
