// Package logging configures the structured loggers used across contractd.
//
// Components accept a *slog.Logger through an option or setter and fall back
// to Nop() when none is given. Mismatch details are logged at debug level,
// so running with --log-level debug shows why a message was not routed.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//	logger.Debug("no contract matched", "destination", "orders")
//
// Open additionally tees every record, as JSON, into a file.
package logging
