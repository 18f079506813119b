// Package logger builds context-aware slog loggers for the
// notification engine.
//
// New creates a *slog.Logger from functional options: output format,
// level, static attributes, and ContextExtractor callbacks that pull
// values out of context.Context on every record. Attribute helpers in
// attr.go keep the key vocabulary of the pipeline consistent, e.g.
// "notification_id", "provider" and "channel".
//
//	log := logger.New(
//	    logger.WithProduction("notify-worker"),
//	    logger.WithContextValue("request_id", ctxKeyRequestID),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "attempt recorded",
//	    logger.Provider("twilio"),
//	    logger.NotificationID(n.ID),
//	)
//
// Engine components accept the resulting logger through their WithX
// logger options and fall back to slog.Default when none is supplied.
package logger
