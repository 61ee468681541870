package monitor

import "errors"

// Sentinel errors for monitor operations.
var (
	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("monitor: missing required dependency")

	// ErrSuperseded is returned by Enable when Disable, Dispose or a newer Enable
	// ran while the baseline count was being fetched. No poll loop is started.
	ErrSuperseded = errors.New("monitor: enable superseded by a newer state change")
)
