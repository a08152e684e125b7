package graph

import (
	"sync"
	"testing"

	"github.com/leapstack-labs/datalens/pkg/core"
)

func TestGraph_UpsertNode(t *testing.T) {
	g := New()

	created := g.UpsertNode(core.NewTableNode("dbo", "Orders"))
	if !created {
		t.Error("first upsert must create the node")
	}
	created = g.UpsertNode(core.NewTableNode("dbo", "Orders"))
	if created {
		t.Error("second upsert must not create a duplicate")
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want 1", g.NodeCount())
	}
}

func TestGraph_UpsertNode_RefreshesPIITag(t *testing.T) {
	g := New()
	g.UpsertNode(core.NewColumnNode("dbo", "Customers", "Email"))

	tagged := core.NewColumnNode("dbo", "Customers", "Email")
	tagged.IsPII = true
	tagged.PIIType = core.PIITypeEmail
	g.UpsertNode(tagged)

	node, ok := g.Node("dbo.Customers.Email")
	if !ok {
		t.Fatal("node missing")
	}
	if !node.IsPII || node.PIIType != core.PIITypeEmail {
		t.Errorf("upsert must refresh PII tag, got IsPII=%v type=%s", node.IsPII, node.PIIType)
	}
}

func TestGraph_UpsertEdge_Idempotent(t *testing.T) {
	g := New()
	g.UpsertNode(core.NewColumnNode("dbo", "A", "x"))
	g.UpsertNode(core.NewColumnNode("dbo", "B", "y"))

	edge := core.NewLineageEdge("dbo.A.x", "dbo.B.y", core.OpInsert, false, "dbo.proc")
	if !g.UpsertEdge(edge) {
		t.Error("first upsert must create the edge")
	}
	if g.UpsertEdge(edge) {
		t.Error("re-upsert must not duplicate the edge")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}

	// Weight stays fixed even if a later fact would assign a different one.
	heavier := core.NewLineageEdge("dbo.A.x", "dbo.B.y", core.OpInsert, false, "dbo.proc")
	heavier.Weight = 99
	g.UpsertEdge(heavier)
	got := g.OutEdges("dbo.A.x")
	if len(got) != 1 || got[0].Weight != 2.0 {
		t.Errorf("existing edge weight must be left unchanged, got %+v", got)
	}
}

func TestGraph_RecomputeDegrees(t *testing.T) {
	g := New()
	g.UpsertNode(core.NewColumnNode("dbo", "A", "x"))
	g.UpsertNode(core.NewColumnNode("dbo", "B", "y"))
	g.UpsertNode(core.NewProcedureNode("dbo", "proc"))
	g.UpsertEdge(core.NewLineageEdge("dbo.A.x", "dbo.B.y", core.OpInsert, false, "dbo.proc"))
	g.UpsertEdge(core.NewLineageEdge("dbo.proc", "dbo.B.y", core.OpUpdate, false, "dbo.proc"))

	g.RecomputeDegrees([]string{"dbo.A.x", "dbo.B.y", "dbo.proc"})

	b, _ := g.Node("dbo.B.y")
	if b.InDegree != 2 || b.OutDegree != 0 {
		t.Errorf("B.y degrees = (%d,%d), want (2,0)", b.InDegree, b.OutDegree)
	}
	a, _ := g.Node("dbo.A.x")
	if a.InDegree != 0 || a.OutDegree != 1 {
		t.Errorf("A.x degrees = (%d,%d), want (0,1)", a.InDegree, a.OutDegree)
	}
}

func TestGraph_MarkPIIFlows_OneHopOnly(t *testing.T) {
	g := New()
	pii := core.NewColumnNode("hr", "Employees", "SSN")
	pii.IsPII = true
	pii.PIIType = core.PIITypeSSN
	g.UpsertNode(pii)
	g.UpsertNode(core.NewColumnNode("stage", "People", "SSN"))
	g.UpsertNode(core.NewColumnNode("mart", "Report", "SSN"))

	g.UpsertEdge(core.NewLineageEdge("hr.Employees.SSN", "stage.People.SSN", core.OpInsert, false, "hr.load"))
	g.UpsertEdge(core.NewLineageEdge("stage.People.SSN", "mart.Report.SSN", core.OpInsert, false, "stage.publish"))

	g.MarkPIIFlows()

	first := g.OutEdges("hr.Employees.SSN")
	if len(first) != 1 || !first[0].IsPIIFlow {
		t.Error("edge leaving a PII node must be marked as PII flow")
	}
	second := g.OutEdges("stage.People.SSN")
	if len(second) != 1 || second[0].IsPIIFlow {
		t.Error("propagation must not extend beyond one hop in a single pass")
	}

	target, _ := g.Node("stage.People.SSN")
	if !target.IsPIIFlow {
		t.Error("one-hop target must be flagged as part of a PII flow")
	}
	if target.IsPII {
		t.Error("flow marking must not tag the target as PII itself")
	}
}

func TestGraph_ConcurrentReadsDuringWrites(t *testing.T) {
	g := New()
	g.UpsertNode(core.NewTableNode("dbo", "Seed"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			col := core.NewColumnNode("dbo", "Seed", string(rune('a'+i%26)))
			g.UpsertNode(col)
			g.UpsertEdge(core.NewLineageEdge("dbo.Seed", col.NodeID(), core.OpRead, false, ""))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			g.Nodes()
			g.OutEdges("dbo.Seed")
			g.NodeCount()
		}
	}()
	wg.Wait()
}
