package core

import "testing"

func TestEdgeWeight_Deterministic(t *testing.T) {
	cases := []struct {
		op      OperationType
		piiFlow bool
		want    float64
	}{
		{OpRead, false, 1.0},
		{OpInsert, false, 2.0},
		{OpMergeInsert, false, 2.0},
		{OpUpdate, false, 3.0},
		{OpMergeUpdate, false, 3.0},
		{OpDelete, false, 5.0},
		{OpDelete, true, 10.0},
		{OpRead, true, 10.0},
	}
	for _, tc := range cases {
		if got := EdgeWeight(tc.op, tc.piiFlow); got != tc.want {
			t.Errorf("EdgeWeight(%s, %v) = %v, want %v", tc.op, tc.piiFlow, got, tc.want)
		}
	}
}

func TestDefaultEdgeType(t *testing.T) {
	cases := []struct {
		op      OperationType
		piiFlow bool
		want    EdgeType
	}{
		{OpRead, false, EdgeTypeReads},
		{OpInsert, false, EdgeTypeWrites},
		{OpUpdate, false, EdgeTypeWrites},
		{OpDelete, false, EdgeTypeWrites},
		{OpMergeUpdate, false, EdgeTypeWrites},
		{OpDelete, true, EdgeTypePIIFlow},
	}
	for _, tc := range cases {
		if got := DefaultEdgeType(tc.op, tc.piiFlow); got != tc.want {
			t.Errorf("DefaultEdgeType(%s, %v) = %s, want %s", tc.op, tc.piiFlow, got, tc.want)
		}
	}
}

func TestNewLineageEdge_PIIOverride(t *testing.T) {
	edge := NewLineageEdge("hr.employees.ssn", "stage.people.ssn", OpDelete, true, "hr.usp_purge")
	if edge.Weight != 10.0 {
		t.Errorf("PII flow must override weight, got %v", edge.Weight)
	}
	if edge.Type != EdgeTypePIIFlow {
		t.Errorf("PII flow must override edge type, got %s", edge.Type)
	}
}

func TestEdgeKey_IncludesOrigin(t *testing.T) {
	a := EdgeKey("s.t.c", "s.u.c", EdgeTypeWrites, "s.proc_a")
	b := EdgeKey("s.t.c", "s.u.c", EdgeTypeWrites, "s.proc_b")
	if a == b {
		t.Error("edges from different procedures must have distinct keys")
	}

	c := EdgeKey("s.t.c", "s.u.c", EdgeTypeWrites, "")
	d := EdgeKey("s.t.c", "s.u.c", EdgeTypeWrites, "")
	if c != d {
		t.Error("structural edges with empty origin must share one key")
	}
}
