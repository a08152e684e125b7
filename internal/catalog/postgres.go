package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresSource reads the object catalog from a PostgreSQL database through
// information_schema. Only metadata queries are issued.
type PostgresSource struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenPostgres connects to the database described by the DSN and verifies
// the connection. If logger is nil, a discard logger is used.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresSource, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresSource{db: db, logger: logger}, nil
}

// NewPostgresSource wraps an existing connection. The caller keeps ownership
// of the handle unless Close is called.
func NewPostgresSource(db *sql.DB, logger *slog.Logger) *PostgresSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresSource{db: db, logger: logger}
}

const listRoutinesQuery = `
	SELECT routine_schema, routine_name, routine_type
	FROM information_schema.routines
	WHERE routine_schema NOT IN ('pg_catalog', 'information_schema')
	ORDER BY routine_schema, routine_name
`

const listViewsQuery = `
	SELECT table_schema, table_name
	FROM information_schema.views
	WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
	ORDER BY table_schema, table_name
`

// ListObjects enumerates routines and views visible to the connection.
func (s *PostgresSource) ListObjects(ctx context.Context, schemaFilter, objectFilter string) ([]Object, error) {
	var objects []Object

	rows, err := s.db.QueryContext(ctx, listRoutinesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var schema, name, routineType string
		if err := rows.Scan(&schema, &name, &routineType); err != nil {
			return nil, fmt.Errorf("failed to scan routine row: %w", err)
		}
		objType := ObjectTypeProcedure
		if strings.EqualFold(routineType, "FUNCTION") {
			objType = ObjectTypeFunction
		}
		objects = append(objects, Object{Schema: schema, Name: name, Type: objType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read routine rows: %w", err)
	}

	viewRows, err := s.db.QueryContext(ctx, listViewsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer viewRows.Close()
	for viewRows.Next() {
		var schema, name string
		if err := viewRows.Scan(&schema, &name); err != nil {
			return nil, fmt.Errorf("failed to scan view row: %w", err)
		}
		objects = append(objects, Object{Schema: schema, Name: name, Type: ObjectTypeView})
	}
	if err := viewRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read view rows: %w", err)
	}

	objects = FilterObjects(objects, schemaFilter, objectFilter)
	sort.Slice(objects, func(i, j int) bool { return objects[i].ID() < objects[j].ID() })
	s.logger.Debug("catalog listed", slog.Int("objects", len(objects)))
	return objects, nil
}

const routineDefinitionQuery = `
	SELECT routine_definition
	FROM information_schema.routines
	WHERE routine_schema = $1 AND routine_name = $2
`

const viewDefinitionQuery = `
	SELECT view_definition
	FROM information_schema.views
	WHERE table_schema = $1 AND table_name = $2
`

// ObjectDefinition fetches the source text of a routine or view.
func (s *PostgresSource) ObjectDefinition(ctx context.Context, obj Object) (string, error) {
	query := routineDefinitionQuery
	if obj.Type == ObjectTypeView {
		query = viewDefinitionQuery
	}

	var definition sql.NullString
	err := s.db.QueryRowContext(ctx, query, obj.Schema, obj.Name).Scan(&definition)
	if err != nil {
		return "", fmt.Errorf("failed to fetch definition of %s: %w", obj.ID(), err)
	}
	return definition.String, nil
}

// Close releases the underlying connection pool.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

// FilterObjects applies the case-insensitive schema and object filters.
func FilterObjects(objects []Object, schemaFilter, objectFilter string) []Object {
	if schemaFilter == "" && objectFilter == "" {
		return objects
	}
	filtered := objects[:0]
	for _, obj := range objects {
		if schemaFilter != "" && !strings.EqualFold(obj.Schema, schemaFilter) {
			continue
		}
		if objectFilter != "" && !strings.EqualFold(obj.Name, objectFilter) {
			continue
		}
		filtered = append(filtered, obj)
	}
	return filtered
}
