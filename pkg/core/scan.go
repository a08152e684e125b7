package core

import (
	"math"
	"time"
)

// ScanType identifies what a lineage scan covers.
type ScanType string

// Scan type constants.
const (
	ScanTypeFull         ScanType = "full"
	ScanTypeIncremental  ScanType = "incremental"
	ScanTypeSingleObject ScanType = "single-object"
)

// Valid reports whether the scan type is a known value.
func (t ScanType) Valid() bool {
	switch t {
	case ScanTypeFull, ScanTypeIncremental, ScanTypeSingleObject:
		return true
	}
	return false
}

// ScanStatus is the phase of a lineage scan. Transitions are one-directional
// and no state may be re-entered.
type ScanStatus string

// Scan status constants.
const (
	ScanPending   ScanStatus = "pending"
	ScanParsing   ScanStatus = "parsing"
	ScanBuilding  ScanStatus = "building"
	ScanIndexing  ScanStatus = "indexing"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
	ScanCancelled ScanStatus = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanCompleted, ScanFailed, ScanCancelled:
		return true
	}
	return false
}

// scanTransitions is the closed transition table for the scan state machine.
var scanTransitions = map[ScanStatus][]ScanStatus{
	ScanPending:  {ScanParsing, ScanFailed, ScanCancelled},
	ScanParsing:  {ScanBuilding, ScanFailed, ScanCancelled},
	ScanBuilding: {ScanIndexing, ScanFailed, ScanCancelled},
	ScanIndexing: {ScanCompleted, ScanFailed, ScanCancelled},
}

// CanTransition reports whether from -> to is an allowed scan transition.
func CanTransition(from, to ScanStatus) bool {
	for _, next := range scanTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LineageScan is one scan run: a saga-style record owned exclusively by the
// scan orchestrator. All counters are monotonically non-decreasing until a
// terminal state is reached.
type LineageScan struct {
	ID     string
	Type   ScanType
	Status ScanStatus

	// SchemaFilter and ObjectFilter restrict the catalog walk; empty means
	// unrestricted.
	SchemaFilter string
	ObjectFilter string

	TotalObjects     int
	ProcessedObjects int
	CurrentObject    string

	NodesCreated    int
	EdgesCreated    int
	PIIColumnsFound int
	DynamicSQLCount int
	ErrorCount      int

	StartedAt   time.Time
	CompletedAt *time.Time

	StartedBy    string
	ErrorMessage string

	CorrelationID string
	// ParentScanID is a weak back-reference; a scan never owns its parent's
	// lifecycle.
	ParentScanID string
}

// NewLineageScan constructs a pending scan.
func NewLineageScan(id string, scanType ScanType, schemaFilter, objectFilter, startedBy, correlationID string) *LineageScan {
	return &LineageScan{
		ID:            id,
		Type:          scanType,
		Status:        ScanPending,
		SchemaFilter:  schemaFilter,
		ObjectFilter:  objectFilter,
		StartedAt:     time.Now().UTC(),
		StartedBy:     startedBy,
		CorrelationID: correlationID,
	}
}

// Transition moves the scan to the given status. Invalid transitions return
// ErrInvalidTransition and leave the scan unchanged. Terminal transitions
// stamp CompletedAt.
func (s *LineageScan) Transition(to ScanStatus) error {
	if !CanTransition(s.Status, to) {
		return ErrInvalidTransition
	}
	s.Status = to
	if to.Terminal() {
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
	return nil
}

// Fail moves the scan to Failed with the given message.
func (s *LineageScan) Fail(msg string) error {
	if err := s.Transition(ScanFailed); err != nil {
		return err
	}
	s.ErrorMessage = msg
	return nil
}

// Progress returns the completion percentage, rounded to two decimals and
// clamped at 100.
func (s *LineageScan) Progress() float64 {
	if s.TotalObjects <= 0 {
		return 0
	}
	pct := float64(s.ProcessedObjects) / float64(s.TotalObjects) * 100
	pct = math.Round(pct*100) / 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Duration returns elapsed time for the scan: to completion for terminal
// scans, to now otherwise.
func (s *LineageScan) Duration() time.Duration {
	if s.CompletedAt != nil {
		return s.CompletedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}
