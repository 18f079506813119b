package pushgateway

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
)

// Config holds push gateway configuration. BaseURL and APIKey are
// optional so the engine can start with push disabled; an unconfigured
// provider reports Available() == false and is skipped.
type Config struct {
	BaseURL string        `env:"PUSH_GATEWAY_URL"`
	APIKey  string        `env:"PUSH_GATEWAY_API_KEY"`
	Timeout time.Duration `env:"PUSH_GATEWAY_TIMEOUT" envDefault:"10s"`
}

// Validate checks internal consistency of the provided values. A fully
// empty config is valid and yields a disabled provider.
func (c Config) Validate() error {
	if !c.configured() {
		return nil
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: BaseURL is required", delivery.ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: BaseURL must be an http(s) URL", delivery.ErrInvalidConfig)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: APIKey is required", delivery.ErrInvalidConfig)
	}
	return nil
}

func (c Config) configured() bool {
	return c.BaseURL != "" || c.APIKey != ""
}
