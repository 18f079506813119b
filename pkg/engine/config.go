package engine

import "time"

// Config tunes the delivery engine. All values have working defaults;
// a zero-configuration engine dispatches with bounded concurrency,
// retries transient failures three times and polls unresolved attempts
// every 30 seconds.
type Config struct {
	// MaxConcurrent caps simultaneously in-flight provider calls per
	// dispatched batch.
	MaxConcurrent int `env:"NOTIFY_MAX_CONCURRENT" envDefault:"10"`

	// RetryMaxAttempts caps total tries per (notification, channel),
	// the initial send included.
	RetryMaxAttempts int `env:"NOTIFY_RETRY_MAX_ATTEMPTS" envDefault:"3"`

	// RateLimitCooldown is the per-provider pause opened when a
	// provider reports rate limiting.
	RateLimitCooldown time.Duration `env:"NOTIFY_RATE_LIMIT_COOLDOWN" envDefault:"30s"`

	// PollInterval is how often unresolved attempts are polled for a
	// provider-side verdict.
	PollInterval time.Duration `env:"NOTIFY_POLL_INTERVAL" envDefault:"30s"`

	// PollBatch caps attempts fetched per poll sweep.
	PollBatch int `env:"NOTIFY_POLL_BATCH" envDefault:"100"`

	// WebhookSecret enables HMAC verification of provider status
	// callbacks. Empty disables verification.
	WebhookSecret string `env:"NOTIFY_WEBHOOK_SECRET"`

	// WebhookMaxAge bounds the accepted callback signature age.
	WebhookMaxAge time.Duration `env:"NOTIFY_WEBHOOK_MAX_AGE" envDefault:"5m"`
}
