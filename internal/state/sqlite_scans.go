package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// NewScanID returns a fresh scan identifier.
func NewScanID() string {
	return generateID()
}

// CreateScan inserts a new scan record.
func (s *SQLiteStore) CreateScan(scan *core.LineageScan) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.logger.Debug("creating scan",
		slog.String("id", scan.ID),
		slog.String("type", string(scan.Type)))

	_, err := s.db.Exec(`
		INSERT INTO lineage_scans (
			id, scan_type, status, schema_filter, object_filter,
			total_objects, processed_objects, current_object,
			nodes_created, edges_created, pii_columns_found,
			dynamic_sql_count, error_count,
			started_at, completed_at, started_by, error_message,
			correlation_id, parent_scan_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, string(scan.Type), string(scan.Status),
		scan.SchemaFilter, scan.ObjectFilter,
		scan.TotalObjects, scan.ProcessedObjects, scan.CurrentObject,
		scan.NodesCreated, scan.EdgesCreated, scan.PIIColumnsFound,
		scan.DynamicSQLCount, scan.ErrorCount,
		scan.StartedAt, scan.CompletedAt, scan.StartedBy, scan.ErrorMessage,
		scan.CorrelationID, scan.ParentScanID)
	if err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	return nil
}

// GetScan retrieves a scan by ID.
func (s *SQLiteStore) GetScan(id string) (*core.LineageScan, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`
		SELECT id, scan_type, status, schema_filter, object_filter,
			total_objects, processed_objects, current_object,
			nodes_created, edges_created, pii_columns_found,
			dynamic_sql_count, error_count,
			started_at, completed_at, started_by, error_message,
			correlation_id, parent_scan_id
		FROM lineage_scans WHERE id = ?`, id)

	scan, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return scan, nil
}

// UpdateScanStatus moves a persisted scan to a new status, stamping the
// completion time on terminal states.
func (s *SQLiteStore) UpdateScanStatus(id string, status core.ScanStatus, errMsg string) error {
	if err := s.ready(); err != nil {
		return err
	}

	var completedAt *time.Time
	if status.Terminal() {
		now := time.Now().UTC()
		completedAt = &now
	}

	res, err := s.db.Exec(`
		UPDATE lineage_scans
		SET status = ?, error_message = ?, completed_at = COALESCE(?, completed_at)
		WHERE id = ?`,
		string(status), errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update scan status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrScanNotFound
	}
	return nil
}

// UpdateScanProgress writes the scan's counters and current object back.
// Status is not touched; use UpdateScanStatus for phase changes.
func (s *SQLiteStore) UpdateScanProgress(scan *core.LineageScan) error {
	if err := s.ready(); err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE lineage_scans
		SET total_objects = ?, processed_objects = ?, current_object = ?,
			nodes_created = ?, edges_created = ?, pii_columns_found = ?,
			dynamic_sql_count = ?, error_count = ?
		WHERE id = ?`,
		scan.TotalObjects, scan.ProcessedObjects, scan.CurrentObject,
		scan.NodesCreated, scan.EdgesCreated, scan.PIIColumnsFound,
		scan.DynamicSQLCount, scan.ErrorCount, scan.ID)
	if err != nil {
		return fmt.Errorf("failed to update scan progress: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrScanNotFound
	}
	return nil
}

// ListScans returns the most recent scans, newest first.
func (s *SQLiteStore) ListScans(limit int) ([]*core.LineageScan, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, scan_type, status, schema_filter, object_filter,
			total_objects, processed_objects, current_object,
			nodes_created, edges_created, pii_columns_found,
			dynamic_sql_count, error_count,
			started_at, completed_at, started_by, error_message,
			correlation_id, parent_scan_id
		FROM lineage_scans
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var scans []*core.LineageScan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scan rows: %w", err)
	}
	return scans, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*core.LineageScan, error) {
	var scan core.LineageScan
	var scanType, status string
	var completedAt sql.NullTime

	err := row.Scan(&scan.ID, &scanType, &status,
		&scan.SchemaFilter, &scan.ObjectFilter,
		&scan.TotalObjects, &scan.ProcessedObjects, &scan.CurrentObject,
		&scan.NodesCreated, &scan.EdgesCreated, &scan.PIIColumnsFound,
		&scan.DynamicSQLCount, &scan.ErrorCount,
		&scan.StartedAt, &completedAt, &scan.StartedBy, &scan.ErrorMessage,
		&scan.CorrelationID, &scan.ParentScanID)
	if err != nil {
		return nil, err
	}

	scan.Type = core.ScanType(scanType)
	scan.Status = core.ScanStatus(status)
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		scan.CompletedAt = &t
	}
	return &scan, nil
}
