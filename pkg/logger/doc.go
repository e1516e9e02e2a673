// Package logger builds *slog.Logger instances with functional options,
// consistent attribute helpers, and values injected from context.Context.
//
// New creates a text or JSON handler based on the configured Format and wraps
// it with a context handler, which runs every registered ContextExtractor on
// each record. FromConfig does the same from a Config loaded from environment
// variables (APP_ENV, LOG_SERVICE, LOG_LEVEL, LOG_FORMAT).
//
// Attribute helpers such as UserID, Feature, Plan and Error keep key names
// identical across the service. Error returns an empty attribute for a nil
// error, so it can be passed unconditionally:
//
//	log := logger.New(
//	    logger.WithEnvironment("development", "featurelimits"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "usage tracked",
//	    logger.UserID(userID),
//	    logger.Feature(limits.FeatureProductsCount),
//	    logger.Error(err),
//	)
package logger
