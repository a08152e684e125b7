package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// SaveNode upserts a lineage node keyed by its derived id.
func (s *SQLiteStore) SaveNode(node *core.LineageNode) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		INSERT INTO lineage_nodes (
			id, database_name, schema_name, object_name, column_name,
			node_type, is_pii, pii_type, is_pii_flow, classification,
			risk_score, in_degree, out_degree, cluster
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			is_pii = excluded.is_pii,
			pii_type = excluded.pii_type,
			is_pii_flow = excluded.is_pii_flow,
			classification = excluded.classification,
			risk_score = excluded.risk_score,
			in_degree = excluded.in_degree,
			out_degree = excluded.out_degree,
			cluster = excluded.cluster`,
		node.NodeID(), node.Database, node.Schema, node.Object, node.Column,
		string(node.Type), node.IsPII, string(node.PIIType), node.IsPIIFlow,
		string(node.Classification), node.RiskScore,
		node.InDegree, node.OutDegree, node.Cluster)
	if err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}
	return nil
}

// SaveEdge upserts a lineage edge keyed by its identity key.
func (s *SQLiteStore) SaveEdge(edge *core.LineageEdge) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		INSERT INTO lineage_edges (
			edge_key, source_id, target_id, edge_type, operation,
			weight, is_pii_flow, origin_procedure
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (edge_key) DO UPDATE SET
			is_pii_flow = excluded.is_pii_flow`,
		edge.EdgeKey(), edge.SourceID, edge.TargetID, string(edge.Type),
		string(edge.Operation), edge.Weight, edge.IsPIIFlow, edge.OriginProcedure)
	if err != nil {
		return fmt.Errorf("failed to save edge: %w", err)
	}
	return nil
}

// GetNode fetches one node by id.
func (s *SQLiteStore) GetNode(nodeID string) (*core.LineageNode, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`
		SELECT database_name, schema_name, object_name, column_name,
			node_type, is_pii, pii_type, is_pii_flow, classification,
			risk_score, in_degree, out_degree, cluster
		FROM lineage_nodes WHERE id = ?`, nodeID)

	node, err := nodeFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return node, nil
}

// ListNodes returns all persisted nodes ordered by id.
func (s *SQLiteStore) ListNodes() ([]*core.LineageNode, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT database_name, schema_name, object_name, column_name,
			node_type, is_pii, pii_type, is_pii_flow, classification,
			risk_score, in_degree, out_degree, cluster
		FROM lineage_nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*core.LineageNode
	for rows.Next() {
		node, err := nodeFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read node rows: %w", err)
	}
	return nodes, nil
}

// ListEdges returns all persisted edges ordered by key.
func (s *SQLiteStore) ListEdges() ([]*core.LineageEdge, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT source_id, target_id, edge_type, operation,
			weight, is_pii_flow, origin_procedure
		FROM lineage_edges ORDER BY edge_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	var edges []*core.LineageEdge
	for rows.Next() {
		var edge core.LineageEdge
		var edgeType, operation string
		if err := rows.Scan(&edge.SourceID, &edge.TargetID, &edgeType,
			&operation, &edge.Weight, &edge.IsPIIFlow, &edge.OriginProcedure); err != nil {
			return nil, fmt.Errorf("failed to scan edge row: %w", err)
		}
		edge.Type = core.EdgeType(edgeType)
		edge.Operation = core.OperationType(operation)
		edges = append(edges, &edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edge rows: %w", err)
	}
	return edges, nil
}

// ResetGraph removes all persisted nodes and edges. Only a full-rebuild
// scan uses this.
func (s *SQLiteStore) ResetGraph() error {
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"lineage_edges", "lineage_nodes", "column_risk_scores"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph reset: %w", err)
	}
	return nil
}

func nodeFromRow(row rowScanner) (*core.LineageNode, error) {
	var node core.LineageNode
	var nodeType, piiType, classification string

	err := row.Scan(&node.Database, &node.Schema, &node.Object, &node.Column,
		&nodeType, &node.IsPII, &piiType, &node.IsPIIFlow, &classification,
		&node.RiskScore, &node.InDegree, &node.OutDegree, &node.Cluster)
	if err != nil {
		return nil, err
	}

	node.Type = core.NodeType(nodeType)
	node.PIIType = core.PIIType(piiType)
	node.Classification = core.DataClassification(classification)
	return &node, nil
}
