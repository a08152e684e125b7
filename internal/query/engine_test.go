package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/datalens/internal/graph"
	"github.com/leapstack-labs/datalens/pkg/core"
)

// lineageFixture builds: dbo.t1.a -reads-> etl.p -writes-> dbo.t2.b -reads-> rep.v
func lineageFixture(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()

	a := core.NewColumnNode("dbo", "t1", "a")
	b := core.NewColumnNode("dbo", "t2", "b")
	p := core.NewProcedureNode("etl", "p")
	v := core.NewViewNode("rep", "v")
	for _, n := range []*core.LineageNode{a, b, p, v} {
		require.True(t, g.UpsertNode(n))
	}

	require.True(t, g.UpsertEdge(core.NewLineageEdge("dbo.t1.a", "etl.p", core.OpRead, false, "etl.p")))
	require.True(t, g.UpsertEdge(core.NewLineageEdge("etl.p", "dbo.t2.b", core.OpInsert, false, "etl.p")))
	require.True(t, g.UpsertEdge(core.NewLineageEdge("dbo.t2.b", "rep.v", core.OpRead, false, "rep.v")))
	return g
}

func TestDependents(t *testing.T) {
	e := NewEngine(lineageFixture(t), 0, nil)

	groups := e.Dependents("dbo.t2.b", 5)
	require.Len(t, groups, 2)

	require.Len(t, groups[0].Nodes, 1)
	assert.Equal(t, 1, groups[0].Depth)
	assert.Equal(t, "etl.p", groups[0].Nodes[0].NodeID)
	assert.Equal(t, core.EdgeTypeWrites, groups[0].Nodes[0].Relationship)
	assert.Equal(t, core.NodeTypeProcedure, groups[0].Nodes[0].ObjectType)

	require.Len(t, groups[1].Nodes, 1)
	assert.Equal(t, 2, groups[1].Depth)
	assert.Equal(t, "dbo.t1.a", groups[1].Nodes[0].NodeID)
	assert.Equal(t, core.EdgeTypeReads, groups[1].Nodes[0].Relationship)
}

func TestDependencies(t *testing.T) {
	e := NewEngine(lineageFixture(t), 0, nil)

	groups := e.Dependencies("dbo.t2.b", 5)
	require.Len(t, groups, 1)
	assert.Equal(t, "rep.v", groups[0].Nodes[0].NodeID)
	assert.Equal(t, core.EdgeTypeReads, groups[0].Nodes[0].Relationship)
}

func TestTraversalDepthLimit(t *testing.T) {
	e := NewEngine(lineageFixture(t), 0, nil)

	groups := e.Dependents("dbo.t2.b", 1)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Depth)
}

func TestTraversalUnknownNode(t *testing.T) {
	e := NewEngine(lineageFixture(t), 0, nil)
	assert.Empty(t, e.Dependents("dbo.missing.x", 3))
	assert.Empty(t, e.Dependencies("dbo.missing.x", 3))
	assert.Empty(t, e.PIIFlowPaths("dbo.missing.x"))
}

func TestTraversalCycleSafety(t *testing.T) {
	g := lineageFixture(t)
	// Close a loop back to the starting column.
	require.True(t, g.UpsertEdge(core.NewLineageEdge("rep.v", "dbo.t1.a", core.OpInsert, false, "rep.v")))

	e := NewEngine(g, 0, nil)
	groups := e.Dependencies("dbo.t1.a", 10)

	total := 0
	for _, grp := range groups {
		total += len(grp.Nodes)
		for _, n := range grp.Nodes {
			assert.NotEqual(t, "dbo.t1.a", n.NodeID, "starting node must not reappear")
		}
	}
	assert.Equal(t, 3, total)
}

func piiFixture(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()

	ssn := core.NewColumnNode("dbo", "customers", "ssn")
	ssn.IsPII = true
	ssn.PIIType = core.PIITypeSSN
	export := core.NewProcedureNode("etl", "usp_export")
	archive := core.NewColumnNode("archive", "customers", "ssn")
	audit := core.NewProcedureNode("audit", "usp_log")
	for _, n := range []*core.LineageNode{ssn, export, archive, audit} {
		require.True(t, g.UpsertNode(n))
	}

	require.True(t, g.UpsertEdge(core.NewLineageEdge("dbo.customers.ssn", "etl.usp_export", core.OpRead, true, "etl.usp_export")))
	require.True(t, g.UpsertEdge(core.NewLineageEdge("etl.usp_export", "archive.customers.ssn", core.OpInsert, true, "etl.usp_export")))
	require.True(t, g.UpsertEdge(core.NewLineageEdge("dbo.customers.ssn", "audit.usp_log", core.OpRead, true, "audit.usp_log")))
	return g
}

func TestPIIFlowPaths(t *testing.T) {
	e := NewEngine(piiFixture(t), 0, nil)

	paths := e.PIIFlowPaths("dbo.customers.ssn")
	require.Len(t, paths, 2)

	assert.Equal(t, []string{"dbo.customers.ssn", "audit.usp_log"}, paths[0].Nodes)
	assert.Equal(t, []string{"dbo.customers.ssn", "etl.usp_export", "archive.customers.ssn"}, paths[1].Nodes)
	for _, p := range paths {
		assert.Equal(t, core.PIITypeSSN, p.PIIType)
	}
}

func TestPIIFlowPathsIgnoreUntaggedEdges(t *testing.T) {
	g := piiFixture(t)
	// A plain edge out of the column must not appear in any path.
	other := core.NewProcedureNode("etl", "usp_report")
	require.True(t, g.UpsertNode(other))
	require.True(t, g.UpsertEdge(core.NewLineageEdge("dbo.customers.ssn", "etl.usp_report", core.OpRead, false, "etl.usp_report")))

	for _, p := range NewEngine(g, 0, nil).PIIFlowPaths("dbo.customers.ssn") {
		for _, id := range p.Nodes {
			assert.NotEqual(t, "etl.usp_report", id)
		}
	}
}

func TestPIIFlowPathsLengthBound(t *testing.T) {
	g := graph.New()
	// A chain of four columns, each hop PII-tagged.
	ids := []string{"s0.t.c", "s1.t.c", "s2.t.c", "s3.t.c"}
	for i, id := range ids {
		n := core.NewColumnNode("s"+string(rune('0'+i)), "t", "c")
		if i == 0 {
			n.IsPII = true
			n.PIIType = core.PIITypeEmail
		}
		require.True(t, g.UpsertNode(n))
		if i > 0 {
			require.True(t, g.UpsertEdge(core.NewLineageEdge(ids[i-1], id, core.OpInsert, true, "etl.p")))
		}
	}

	paths := NewEngine(g, 2, nil).PIIFlowPaths("s0.t.c")
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"s0.t.c", "s1.t.c"}, paths[0].Nodes, "paths stop at the configured length")
}
