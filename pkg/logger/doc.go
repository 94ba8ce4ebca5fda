// Package logger builds *slog.Logger instances for authgate services.
//
// New assembles a text or JSON handler depending on the selected options and
// wraps it with a decorator that pulls request scoped values (request id,
// environment, ...) out of context.Context on every record.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "authgate"),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "login succeeded",
//	    logger.Component("authsession"),
//	    logger.AccountID(user.ID),
//	)
//
// Attribute helpers return an empty slog.Attr for nil input, so
//
//	log.Warn("logout failed", logger.Error(err))
//
// needs no extra nil check.
package logger
