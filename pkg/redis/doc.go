// Package redis connects the engine to a Redis server.
//
// Multi-instance deployments share rate-limit cooldown state through
// Redis; this package provides the connection factory and health probe
// for that client.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	cooldowns, err := retry.NewRedisCooldowns(client)
//
// Connect retries with a linearly growing delay until the client
// responds to PING or cfg.ConnectTimeout expires.
package redis
