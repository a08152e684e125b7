package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// UpsertDynamicSQL records a flagged procedure. Re-flagging an already known
// procedure refreshes the detection fields only; review fields and the first
// detection time are preserved.
func (s *SQLiteStore) UpsertDynamicSQL(proc *core.DynamicSQLProcedure) error {
	if err := s.ready(); err != nil {
		return err
	}

	targets, err := json.Marshal(proc.KnownTargets)
	if err != nil {
		return fmt.Errorf("failed to encode known targets: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO dynamic_sql_procedures (
			schema_name, procedure_name, sql_type, detected_pattern,
			line_number, risk_level, manually_reviewed, reviewed_by,
			review_notes, known_targets, first_detected_at, last_detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (schema_name, procedure_name) DO UPDATE SET
			sql_type = excluded.sql_type,
			detected_pattern = excluded.detected_pattern,
			line_number = excluded.line_number,
			risk_level = excluded.risk_level,
			last_detected_at = excluded.last_detected_at`,
		proc.Schema, proc.ProcedureName, string(proc.Type), proc.DetectedPattern,
		proc.LineNumber, string(proc.Risk), proc.ManuallyReviewed, proc.ReviewedBy,
		proc.ReviewNotes, string(targets), proc.FirstDetectedAt, proc.LastDetectedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert dynamic sql procedure: %w", err)
	}
	return nil
}

// GetDynamicSQL fetches one flagged procedure.
func (s *SQLiteStore) GetDynamicSQL(schema, procedure string) (*core.DynamicSQLProcedure, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`
		SELECT schema_name, procedure_name, sql_type, detected_pattern,
			line_number, risk_level, manually_reviewed, reviewed_by,
			review_notes, known_targets, first_detected_at, last_detected_at
		FROM dynamic_sql_procedures
		WHERE schema_name = ? AND procedure_name = ?`, schema, procedure)

	proc, err := dynamicSQLFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrProcedureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dynamic sql procedure: %w", err)
	}
	return proc, nil
}

// ListDynamicSQL returns the review queue, most recently detected first.
func (s *SQLiteStore) ListDynamicSQL(unreviewedOnly bool) ([]*core.DynamicSQLProcedure, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `
		SELECT schema_name, procedure_name, sql_type, detected_pattern,
			line_number, risk_level, manually_reviewed, reviewed_by,
			review_notes, known_targets, first_detected_at, last_detected_at
		FROM dynamic_sql_procedures`
	if unreviewedOnly {
		query += " WHERE manually_reviewed = 0"
	}
	query += " ORDER BY last_detected_at DESC, schema_name, procedure_name"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dynamic sql procedures: %w", err)
	}
	defer rows.Close()

	var procs []*core.DynamicSQLProcedure
	for rows.Next() {
		proc, err := dynamicSQLFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dynamic sql row: %w", err)
		}
		procs = append(procs, proc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dynamic sql rows: %w", err)
	}
	return procs, nil
}

// MarkDynamicSQLReviewed records a human review. The reviewed flag is
// permanent; later scans never clear it.
func (s *SQLiteStore) MarkDynamicSQLReviewed(schema, procedure, reviewer, notes string, knownTargets []string) error {
	if err := s.ready(); err != nil {
		return err
	}

	targets, err := json.Marshal(knownTargets)
	if err != nil {
		return fmt.Errorf("failed to encode known targets: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE dynamic_sql_procedures
		SET manually_reviewed = 1, reviewed_by = ?, review_notes = ?, known_targets = ?
		WHERE schema_name = ? AND procedure_name = ?`,
		reviewer, notes, string(targets), schema, procedure)
	if err != nil {
		return fmt.Errorf("failed to mark dynamic sql reviewed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrProcedureNotFound
	}
	return nil
}

func dynamicSQLFromRow(row rowScanner) (*core.DynamicSQLProcedure, error) {
	var proc core.DynamicSQLProcedure
	var sqlType, risk, targets string

	err := row.Scan(&proc.Schema, &proc.ProcedureName, &sqlType, &proc.DetectedPattern,
		&proc.LineNumber, &risk, &proc.ManuallyReviewed, &proc.ReviewedBy,
		&proc.ReviewNotes, &targets, &proc.FirstDetectedAt, &proc.LastDetectedAt)
	if err != nil {
		return nil, err
	}

	proc.Type = core.DynamicSQLType(sqlType)
	proc.Risk = core.RiskLevel(risk)
	if err := json.Unmarshal([]byte(targets), &proc.KnownTargets); err != nil {
		return nil, fmt.Errorf("failed to decode known targets: %w", err)
	}
	return &proc, nil
}
