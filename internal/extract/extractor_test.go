package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/datalens/internal/testutil"
	"github.com/leapstack-labs/datalens/pkg/core"
)

type piiList map[string]core.PIIType

func (p piiList) Lookup(schema, table, column string) (core.PIIType, bool) {
	t, ok := p[schema+"."+table+"."+column]
	return t, ok
}

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor(nil, testutil.NewTestLogger(t))

	obj := &ParsedObject{
		Schema:     "etl",
		Name:       "usp_load",
		ObjectType: core.NodeTypeProcedure,
		Statements: []ParsedStatement{
			{
				Operation: core.OpRead,
				Source:    core.ColumnRef{Schema: "dbo", Table: "Orders", Column: "Total"},
				LineNumber: 12,
			},
			{
				Operation: core.OpInsert,
				Source:    core.ColumnRef{Schema: "dbo", Table: "Orders", Column: "Total"},
				Target:    core.ColumnRef{Schema: "stage", Table: "Facts", Column: "Total"},
				TransformExpression: "SUM(Total)",
				LineNumber:          14,
			},
		},
	}

	facts := e.Extract(obj)
	require.Len(t, facts, 2)

	assert.Equal(t, 0, facts[0].StatementIndex)
	assert.Equal(t, 1, facts[1].StatementIndex)
	assert.Equal(t, 12, facts[0].LineNumber)
	assert.Equal(t, "etl", facts[0].ProcedureSchema)
	assert.Equal(t, "usp_load", facts[0].ProcedureName)
	assert.Equal(t, 1.0, facts[0].RiskWeight)
	assert.Equal(t, 2.0, facts[1].RiskWeight)
	assert.Equal(t, "SUM(Total)", facts[1].TransformExpression)
}

func TestExtractor_Extract_TagsPII(t *testing.T) {
	lookup := piiList{"hr.Employees.SSN": core.PIITypeSSN}
	e := NewExtractor(lookup, testutil.NewTestLogger(t))

	obj := &ParsedObject{
		Schema: "hr",
		Name:   "usp_sync",
		Statements: []ParsedStatement{
			{
				Operation: core.OpInsert,
				Source:    core.ColumnRef{Schema: "hr", Table: "Employees", Column: "SSN"},
				Target:    core.ColumnRef{Schema: "stage", Table: "People", Column: "SSN"},
			},
			{
				Operation: core.OpRead,
				Source:    core.ColumnRef{Schema: "dbo", Table: "Orders", Column: "Total"},
			},
		},
	}

	facts := e.Extract(obj)
	require.Len(t, facts, 2)

	assert.True(t, facts[0].IsPII)
	assert.Equal(t, core.PIITypeSSN, facts[0].PIIType)
	assert.Equal(t, 10.0, facts[0].RiskWeight, "PII tag must override the operation weight")
	assert.False(t, facts[1].IsPII)
}

func TestExtractor_Extract_DynamicSQLProducesNoFacts(t *testing.T) {
	e := NewExtractor(nil, nil)
	obj := &ParsedObject{
		Schema:        "dbo",
		Name:          "usp_dynamic",
		HasDynamicSQL: true,
		DynamicPattern: "EXEC(@sql)",
		Statements: []ParsedStatement{
			{Operation: core.OpRead, Source: core.ColumnRef{Schema: "dbo", Table: "T", Column: "c"}},
		},
	}
	assert.Empty(t, e.Extract(obj))
}

func TestExtractor_Extract_SkipsInvalidStatements(t *testing.T) {
	e := NewExtractor(nil, testutil.NewTestLogger(t))
	obj := &ParsedObject{
		Schema: "dbo",
		Name:   "usp_mixed",
		Statements: []ParsedStatement{
			{Operation: "truncate", Source: core.ColumnRef{Schema: "dbo", Table: "T", Column: "c"}},
			{Operation: core.OpRead}, // no refs at all
			{Operation: core.OpRead, Source: core.ColumnRef{Schema: "dbo", Table: "T", Column: "c"}},
		},
	}
	facts := e.Extract(obj)
	require.Len(t, facts, 1)
	assert.Equal(t, 2, facts[0].StatementIndex, "index reflects the statement's ordinal position, not the fact count")
}

func TestLoadObjects(t *testing.T) {
	stream := `[
	  {"schema": "dbo", "name": "usp_a", "objectType": "procedure",
	   "statements": [{"operation": "read", "source": {"Schema":"dbo","Table":"T","Column":"c"}}]},
	  {"schema": "dbo", "name": "usp_b", "hasDynamicSql": true, "dynamicPattern": "EXEC(@x)"}
	]`
	objects, err := LoadObjects(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "usp_a", objects[0].Name)
	assert.True(t, objects[1].HasDynamicSQL)
}

func TestStreamParser(t *testing.T) {
	p := NewStreamParser([]*ParsedObject{
		{Schema: "dbo", Name: "usp_a", Statements: []ParsedStatement{{Operation: core.OpRead}}},
	})

	obj, err := p.Parse(context.Background(), "DBO", "USP_A", "")
	require.NoError(t, err)
	assert.Len(t, obj.Statements, 1, "lookup is case-insensitive")

	obj, err = p.Parse(context.Background(), "dbo", "unknown", "")
	require.NoError(t, err)
	assert.Empty(t, obj.Statements, "unknown objects yield an empty stream, not an error")
}
