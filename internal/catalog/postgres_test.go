package catalog

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSource(t *testing.T) (*PostgresSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresSource(db, nil), mock
}

func TestPostgresListObjects(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.routines")).
		WillReturnRows(sqlmock.NewRows([]string{"routine_schema", "routine_name", "routine_type"}).
			AddRow("etl", "usp_load_orders", "PROCEDURE").
			AddRow("etl", "fn_total", "FUNCTION"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.views")).
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name"}).
			AddRow("rep", "vw_orders"))

	objects, err := source.ListObjects(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, objects, 3)

	assert.Equal(t, Object{Schema: "etl", Name: "fn_total", Type: ObjectTypeFunction}, objects[0])
	assert.Equal(t, Object{Schema: "etl", Name: "usp_load_orders", Type: ObjectTypeProcedure}, objects[1])
	assert.Equal(t, Object{Schema: "rep", Name: "vw_orders", Type: ObjectTypeView}, objects[2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListObjectsSchemaFilter(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.routines")).
		WillReturnRows(sqlmock.NewRows([]string{"routine_schema", "routine_name", "routine_type"}).
			AddRow("etl", "usp_load", "PROCEDURE").
			AddRow("audit", "usp_log", "PROCEDURE"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.views")).
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name"}))

	objects, err := source.ListObjects(context.Background(), "ETL", "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "etl.usp_load", objects[0].ID())
}

func TestPostgresListObjectsQueryError(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.routines")).
		WillReturnError(assert.AnError)

	_, err := source.ListObjects(context.Background(), "", "")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPostgresObjectDefinition(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.routines")).
		WithArgs("etl", "usp_load").
		WillReturnRows(sqlmock.NewRows([]string{"routine_definition"}).
			AddRow("BEGIN INSERT INTO t SELECT 1; END"))

	def, err := source.ObjectDefinition(context.Background(), Object{Schema: "etl", Name: "usp_load", Type: ObjectTypeProcedure})
	require.NoError(t, err)
	assert.Contains(t, def, "INSERT INTO t")

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.views")).
		WithArgs("rep", "vw_orders").
		WillReturnRows(sqlmock.NewRows([]string{"view_definition"}).
			AddRow("SELECT * FROM dbo.orders"))

	def, err = source.ObjectDefinition(context.Background(), Object{Schema: "rep", Name: "vw_orders", Type: ObjectTypeView})
	require.NoError(t, err)
	assert.Contains(t, def, "dbo.orders")
	assert.NoError(t, mock.ExpectationsWereMet())
}
