// Package observability groups the logging and tracing helpers shared by the
// WeRSS client. Prometheus collectors live next to the code they measure.
//
// Subpackages:
//   - logging: slog construction, file rotation and request ID propagation
//   - tracing: OpenTelemetry tracer and HTTP span helpers
package observability
