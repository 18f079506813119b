// Package config loads application configuration from environment
// variables into annotated structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
// LoadEnv reads one or more .env files into the process environment,
// and Load parses the environment into any struct with `env` field
// tags. Real environment variables always take precedence over file
// values.
//
//	type PollerConfig struct {
//	    Interval time.Duration `env:"NOTIFY_POLL_INTERVAL" envDefault:"30s"`
//	    Batch    int           `env:"NOTIFY_POLL_BATCH" envDefault:"100"`
//	}
//
//	var cfg PollerConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
package config
