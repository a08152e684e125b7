package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/datalens/internal/catalog"
	"github.com/leapstack-labs/datalens/internal/config"
	"github.com/leapstack-labs/datalens/internal/extract"
	"github.com/leapstack-labs/datalens/pkg/core"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.StatePath = ":memory:"
	cfg.Catalog.Driver = "file"

	piiPath := filepath.Join(t.TempDir(), "pii.yaml")
	require.NoError(t, os.WriteFile(piiPath, []byte(`
columns:
  - column: dbo.customers.ssn
    type: ssn
`), 0o644))
	cfg.PII.ListPath = piiPath
	return cfg
}

func testCatalog(t *testing.T) (catalog.Source, extract.Parser) {
	t.Helper()

	source := catalog.NewStaticSource()
	source.Add(catalog.Object{Schema: "etl", Name: "usp_export", Type: catalog.ObjectTypeProcedure},
		"INSERT INTO archive.customers (ssn) SELECT ssn FROM dbo.customers")
	source.Add(catalog.Object{Schema: "etl", Name: "usp_dynamic", Type: catalog.ObjectTypeProcedure},
		"EXEC('DROP TABLE scratch')")

	parser := extract.NewStreamParser([]*extract.ParsedObject{{
		Schema:     "etl",
		Name:       "usp_export",
		ObjectType: core.NodeTypeProcedure,
		Statements: []extract.ParsedStatement{
			{
				Operation: core.OpInsert,
				Source:    core.ColumnRef{Schema: "dbo", Table: "customers", Column: "ssn"},
				Target:    core.ColumnRef{Schema: "archive", Table: "customers", Column: "ssn"},
			},
		},
	}})
	return source, parser
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	source, parser := testCatalog(t)
	eng, err := NewWithCatalog(context.Background(), cfg, source, parser, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func runScan(t *testing.T, eng *Engine) *core.LineageScan {
	t.Helper()
	id, err := eng.StartScan(context.Background(), core.ScanTypeFull, "", "", "tester")
	require.NoError(t, err)
	eng.WaitForScan(id)
	status, err := eng.ScanStatus(id)
	require.NoError(t, err)
	return status
}

func TestEngineEndToEnd(t *testing.T) {
	eng := newTestEngine(t, testConfig(t))

	status := runScan(t, eng)
	require.Equal(t, core.ScanCompleted, status.Status)
	assert.Equal(t, 1, status.PIIColumnsFound)
	assert.Equal(t, 1, status.DynamicSQLCount)

	// The PII column flows through the export procedure.
	paths := eng.PIIFlowPaths("dbo.customers.ssn")
	require.NotEmpty(t, paths)
	assert.Equal(t, core.PIITypeSSN, paths[0].PIIType)

	// Column-to-column lineage flows source to target.
	deps := eng.Dependencies("dbo.customers.ssn", 0)
	require.NotEmpty(t, deps)
	assert.Equal(t, "archive.customers.ssn", deps[0].Nodes[0].NodeID)

	dependents := eng.Dependents("archive.customers.ssn", 0)
	require.NotEmpty(t, dependents)
	assert.Equal(t, "dbo.customers.ssn", dependents[0].Nodes[0].NodeID)

	score, err := eng.RiskScore("dbo.customers.ssn")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score.RiskScore, 10.0, "PII exposure dominates the score")

	queue, err := eng.ReviewQueue(true)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, core.RiskCritical, queue[0].Risk)

	require.NoError(t, eng.ReviewDynamicSQL("etl", "usp_dynamic", "dba", "drops scratch only", []string{"scratch"}))
	queue, err = eng.ReviewQueue(true)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestEngineGraphSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.StatePath = filepath.Join(t.TempDir(), "state.db")

	source, parser := testCatalog(t)
	eng, err := NewWithCatalog(context.Background(), cfg, source, parser, nil)
	require.NoError(t, err)
	status := runScan(t, eng)
	require.Equal(t, core.ScanCompleted, status.Status)
	require.NoError(t, eng.Close())

	source2, parser2 := testCatalog(t)
	reopened, err := NewWithCatalog(context.Background(), cfg, source2, parser2, nil)
	require.NoError(t, err)
	defer reopened.Close()

	// The graph is queryable before any new scan runs.
	node, ok := reopened.Node("dbo.customers.ssn")
	require.True(t, ok)
	assert.True(t, node.IsPII)

	paths := reopened.PIIFlowPaths("dbo.customers.ssn")
	assert.NotEmpty(t, paths)

	score, err := reopened.RiskScore("dbo.customers.ssn")
	require.NoError(t, err)
	assert.Greater(t, score.RiskScore, 0.0)

	scans, err := reopened.ListScans(5)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, status.ID, scans[0].ID)
}

func TestEngineRiskScoreUnknownColumn(t *testing.T) {
	eng := newTestEngine(t, testConfig(t))
	_, err := eng.RiskScore("dbo.missing.col")
	assert.ErrorIs(t, err, core.ErrNodeNotFound)
}

func TestEngineFileDriverFromObjectsDump(t *testing.T) {
	dir := t.TempDir()
	objectsPath := filepath.Join(dir, "objects.json")
	require.NoError(t, os.WriteFile(objectsPath, []byte(`[
		{
			"schema": "etl",
			"name": "usp_copy",
			"objectType": "procedure",
			"statements": [
				{"operation": "read", "source": {"Schema": "dbo", "Table": "t", "Column": "c"}}
			],
			"body": "INSERT INTO x SELECT c FROM dbo.t"
		}
	]`), 0o644))

	cfg := testConfig(t)
	cfg.Catalog.ObjectsFile = objectsPath

	eng, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer eng.Close()

	status := runScan(t, eng)
	require.Equal(t, core.ScanCompleted, status.Status)
	assert.True(t, func() bool { _, ok := eng.Node("dbo.t.c"); return ok }())
}
