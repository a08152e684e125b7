package core

import "errors"

// Sentinel errors shared across the engine.
var (
	// ErrScanNotFound is returned when a scan id has no record.
	ErrScanNotFound = errors.New("scan not found")

	// ErrScanActive is returned when a scan over an overlapping schema scope
	// is already running.
	ErrScanActive = errors.New("a scan is already active for this scope")

	// ErrInvalidTransition is returned for a disallowed scan state change.
	ErrInvalidTransition = errors.New("invalid scan state transition")

	// ErrNodeNotFound is returned by store lookups for unknown node ids.
	// The query engine never surfaces it; absence of lineage data is a valid
	// state and yields empty results.
	ErrNodeNotFound = errors.New("lineage node not found")

	// ErrProcedureNotFound is returned by review-queue lookups for a
	// procedure that was never flagged.
	ErrProcedureNotFound = errors.New("dynamic sql procedure not found")
)
