// Package core defines the shared language of the datalens system.
//
// This package contains:
//   - Domain entities (LineageNode, LineageEdge, ColumnFact, LineageScan, etc.)
//   - The persistence interface (Store)
//   - Closed enumerations for node, edge, operation, and scan states
//
// The Golden Rule: pkg/core imports ONLY the stdlib.
// All other packages depend on core, not the reverse.
package core
