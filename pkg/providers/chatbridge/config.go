package chatbridge

import "time"

// Config holds chat bridge configuration. The bridge needs no account
// credentials; the recipient identity is the destination webhook URL.
type Config struct {
	// SigningSecret enables HMAC-SHA256 request signing. Endpoints that
	// do not verify signatures can leave it empty.
	SigningSecret string        `env:"CHAT_SIGNING_SECRET"`
	Timeout       time.Duration `env:"CHAT_TIMEOUT" envDefault:"10s"`
}
