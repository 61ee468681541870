// Package logging provides structured logging utilities with context propagation.
//
// Loggers write JSON by default and text on request. An optional log file is
// rotated with lumberjack, which keeps long running watch daemons from
// filling the disk.
//
// Example usage:
//
//	logger, closer, err := logging.NewLoggerWithOptions(logging.Options{
//	    Level: "debug",
//	    File:  "/var/log/werss/watch.log",
//	})
//	defer closer.Close()
//
//	func handleRequest(ctx context.Context) {
//	    logging.WithRequestID(ctx, slog.Default()).Info("processing request")
//	}
package logging
