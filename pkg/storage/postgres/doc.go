// Package postgres is the durable storage backend: notifications,
// delivery attempts and their event history in PostgreSQL via pgx.
//
// Schema migrations are embedded and applied with goose at startup, so
// a deployment needs nothing beyond a reachable database. The event
// table's unique (attempt_id, raw, ts) key gives the reconciler its
// idempotence, and status advances happen under a row lock so
// concurrent webhook and poll signals cannot regress an attempt.
package postgres
