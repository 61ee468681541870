// Package tracing provides OpenTelemetry tracing for the WeRSS client.
//
// Outgoing backend calls get client spans through StartClientSpan and
// EndClientSpan. The daemon's control server wraps its handlers in
// Middleware to get server spans. No exporter is configured here: the
// binary installs a provider when one is wanted and tests install the sdk
// in-memory exporter.
package tracing
