// Package catalog enumerates the database objects a scan analyzes. A Source
// lists procedures, views, and functions and fetches their definitions; the
// scan never executes any of the SQL it reads.
package catalog

import "context"

// ObjectType is the catalog-level kind of a scannable object.
type ObjectType string

// Object type constants.
const (
	ObjectTypeProcedure ObjectType = "procedure"
	ObjectTypeView      ObjectType = "view"
	ObjectTypeFunction  ObjectType = "function"
)

// Object identifies one scannable database object.
type Object struct {
	Schema string
	Name   string
	Type   ObjectType
}

// ID returns the canonical schema-qualified identifier.
func (o Object) ID() string {
	return o.Schema + "." + o.Name
}

// Source enumerates scannable objects and fetches their source text.
// Implementations must be safe for concurrent use: the scan worker pool
// fetches definitions in parallel.
type Source interface {
	// ListObjects returns the objects matching the filters. An empty
	// schemaFilter matches every schema; an empty objectFilter matches every
	// object. Filters compare case-insensitively.
	ListObjects(ctx context.Context, schemaFilter, objectFilter string) ([]Object, error)

	// ObjectDefinition returns the raw source text of the object.
	ObjectDefinition(ctx context.Context, obj Object) (string, error)

	Close() error
}
