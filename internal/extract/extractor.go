package extract

import (
	"log/slog"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// PIILookup answers whether a column is on the configured PII list.
// Implemented by pii.Registry.
type PIILookup interface {
	Lookup(schema, table, column string) (core.PIIType, bool)
}

// Extractor emits ColumnFact values from parsed statement streams.
type Extractor struct {
	pii    PIILookup
	logger *slog.Logger
}

// NewExtractor creates an extractor. The PII lookup may be nil, in which
// case no fact is ever PII-tagged. If logger is nil, a discard logger is used.
func NewExtractor(pii PIILookup, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{pii: pii, logger: logger}
}

// Extract derives one fact per statement, with StatementIndex set to the
// statement's ordinal position. Objects flagged as dynamic SQL produce no
// facts; they are routed to the flagger by the orchestrator instead.
func (e *Extractor) Extract(obj *ParsedObject) []*core.ColumnFact {
	if obj == nil || obj.HasDynamicSQL {
		return nil
	}

	facts := make([]*core.ColumnFact, 0, len(obj.Statements))
	for i, stmt := range obj.Statements {
		if !stmt.Operation.Valid() {
			e.logger.Warn("skipping statement with unknown operation",
				"object", obj.Schema+"."+obj.Name, "statement", i, "operation", string(stmt.Operation))
			continue
		}
		if stmt.Source.IsZero() && stmt.Target.IsZero() {
			continue
		}

		fact := core.NewColumnFact(obj.Schema, obj.Name, stmt.Source, stmt.Target, stmt.Operation, i)
		fact.TransformExpression = stmt.TransformExpression
		fact.LineNumber = stmt.LineNumber
		e.tagPII(fact)
		facts = append(facts, fact)
	}

	e.logger.Debug("extracted facts", "object", obj.Schema+"."+obj.Name, "facts", len(facts))
	return facts
}

// tagPII marks the fact when either referenced column is on the PII list.
// The source side wins when both match, since that is where the data
// originates.
func (e *Extractor) tagPII(fact *core.ColumnFact) {
	if e.pii == nil {
		return
	}
	for _, ref := range []core.ColumnRef{fact.Source, fact.Target} {
		if ref.Column == "" {
			continue
		}
		if piiType, ok := e.pii.Lookup(ref.Schema, ref.Table, ref.Column); ok {
			fact.TagPII(piiType)
			return
		}
	}
}
