// Package engine wires the delivery pipeline together behind one
// facade: validation, bounded fan-out across channel providers, retry
// scheduling with per-provider rate-limit cooldowns, and status
// reconciliation from webhooks and polls.
//
// A minimal setup uses in-memory stores and whatever providers are
// configured:
//
//	var cfg engine.Config
//	config.MustLoad(&cfg)
//
//	eng, err := engine.New(cfg,
//	    notification.NewMemoryStore(),
//	    delivery.NewMemoryAttemptStore(),
//	    []delivery.Provider{smsProvider, emailProvider},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(eng.Run(ctx))
//
// Production deployments swap the memory stores for the PostgreSQL
// Store and the memory cooldowns for the Redis-backed ones.
package engine
