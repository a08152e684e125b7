package core

import (
	"strings"
	"testing"
)

func TestNodeID_ColumnPrefixInvariant(t *testing.T) {
	table := NewTableNode("Sales", "Orders")
	column := NewColumnNode("Sales", "Orders", "CustomerId")

	if !strings.HasPrefix(column.NodeID(), table.NodeID()+".") {
		t.Errorf("column id %q must extend table id %q", column.NodeID(), table.NodeID())
	}
	if column.TableID() != table.NodeID() {
		t.Errorf("TableID() = %q, want %q", column.TableID(), table.NodeID())
	}
}

func TestNodeID_CasePreserving(t *testing.T) {
	n := NewColumnNode("dbo", "Customers", "EmailAddress")
	if got := n.NodeID(); got != "dbo.Customers.EmailAddress" {
		t.Errorf("NodeID() = %q, want case preserved", got)
	}
}

func TestParseNodeID(t *testing.T) {
	cases := []struct {
		id             string
		schema, object string
		column         string
		ok             bool
	}{
		{"dbo.Orders", "dbo", "Orders", "", true},
		{"dbo.Orders.Total", "dbo", "Orders", "Total", true},
		{"Orders", "", "", "", false},
		{"a.b.c.d", "", "", "", false},
		{".Orders", "", "", "", false},
		{"dbo..Total", "", "", "", false},
	}
	for _, tc := range cases {
		schema, object, column, ok := ParseNodeID(tc.id)
		if ok != tc.ok || schema != tc.schema || object != tc.object || column != tc.column {
			t.Errorf("ParseNodeID(%q) = (%q,%q,%q,%v), want (%q,%q,%q,%v)",
				tc.id, schema, object, column, ok, tc.schema, tc.object, tc.column, tc.ok)
		}
	}
}
