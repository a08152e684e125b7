package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// SaveRiskScore upserts the risk score for a column node.
func (s *SQLiteStore) SaveRiskScore(score *core.ColumnRiskScore) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		INSERT INTO column_risk_scores (
			node_id, direct_dependent_count, transitive_dependent_count,
			read_ops, write_ops, delete_ops,
			affected_procedures, affected_views, pii_exposure_count,
			risk_score, impact_level, last_calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (node_id) DO UPDATE SET
			direct_dependent_count = excluded.direct_dependent_count,
			transitive_dependent_count = excluded.transitive_dependent_count,
			read_ops = excluded.read_ops,
			write_ops = excluded.write_ops,
			delete_ops = excluded.delete_ops,
			affected_procedures = excluded.affected_procedures,
			affected_views = excluded.affected_views,
			pii_exposure_count = excluded.pii_exposure_count,
			risk_score = excluded.risk_score,
			impact_level = excluded.impact_level,
			last_calculated_at = excluded.last_calculated_at`,
		score.NodeID, score.DirectDependentCount, score.TransitiveDependentCount,
		score.ReadOps, score.WriteOps, score.DeleteOps,
		score.AffectedProcedures, score.AffectedViews, score.PIIExposureCount,
		score.RiskScore, string(score.Impact), score.LastCalculatedAt)
	if err != nil {
		return fmt.Errorf("failed to save risk score: %w", err)
	}
	return nil
}

// GetRiskScore fetches the persisted risk score for a column node.
func (s *SQLiteStore) GetRiskScore(nodeID string) (*core.ColumnRiskScore, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var score core.ColumnRiskScore
	var impact string
	err := s.db.QueryRow(`
		SELECT node_id, direct_dependent_count, transitive_dependent_count,
			read_ops, write_ops, delete_ops,
			affected_procedures, affected_views, pii_exposure_count,
			risk_score, impact_level, last_calculated_at
		FROM column_risk_scores WHERE node_id = ?`, nodeID).
		Scan(&score.NodeID, &score.DirectDependentCount, &score.TransitiveDependentCount,
			&score.ReadOps, &score.WriteOps, &score.DeleteOps,
			&score.AffectedProcedures, &score.AffectedViews, &score.PIIExposureCount,
			&score.RiskScore, &impact, &score.LastCalculatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk score: %w", err)
	}

	score.Impact = core.ImpactLevel(impact)
	return &score, nil
}
