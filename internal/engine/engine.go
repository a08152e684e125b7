// Package engine wires the lineage components into one facade: catalog,
// extraction, graph, risk scoring, scan orchestration, persistence, and
// queries behind a single API surface.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/datalens/internal/catalog"
	"github.com/leapstack-labs/datalens/internal/config"
	"github.com/leapstack-labs/datalens/internal/extract"
	"github.com/leapstack-labs/datalens/internal/graph"
	"github.com/leapstack-labs/datalens/internal/pii"
	"github.com/leapstack-labs/datalens/internal/query"
	"github.com/leapstack-labs/datalens/internal/risk"
	"github.com/leapstack-labs/datalens/internal/scan"
	"github.com/leapstack-labs/datalens/internal/state"
	"github.com/leapstack-labs/datalens/pkg/core"
)

// Engine is the top-level lineage engine.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	store    core.Store
	source   catalog.Source
	registry *pii.Registry
	graph    *graph.Graph
	scorer   *risk.Scorer

	orchestrator *scan.Orchestrator
	queries      *query.Engine

	watchCancel context.CancelFunc
}

// New builds an engine from configuration, opening the state store and the
// configured catalog source. If logger is nil, a discard logger is used.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	source, parser, err := buildCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	eng, err := NewWithCatalog(ctx, cfg, source, parser, logger)
	if err != nil {
		_ = source.Close()
		return nil, err
	}
	return eng, nil
}

// NewWithCatalog builds an engine around an injected catalog source and
// parser. The engine takes ownership of the source.
func NewWithCatalog(ctx context.Context, cfg *config.Config, source catalog.Source, parser extract.Parser, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := pii.NewRegistry(logger)
	if err := registry.Load(cfg.PII.ListPath); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load pii list: %w", err)
	}

	g := graph.New()
	if err := reloadGraph(g, store); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to reload graph: %w", err)
	}

	scorer := risk.NewScorer(g, cfg.Scan.TransitiveDepth, logger)

	eng := &Engine{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		source:   source,
		registry: registry,
		graph:    g,
		scorer:   scorer,
		queries:  query.NewEngine(g, cfg.Query.MaxPathLength, logger),
		orchestrator: scan.NewOrchestrator(scan.Options{
			Store:     store,
			Source:    source,
			Parser:    parser,
			Extractor: extract.NewExtractor(registry, logger),
			Graph:     g,
			Builder:   graph.NewBuilder(g, registry, logger),
			Scorer:    scorer,
			Workers:   cfg.Scan.Workers,
			Logger:    logger,
		}),
	}

	if cfg.PII.Watch {
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		eng.watchCancel = cancel
		if err := registry.Watch(watchCtx); err != nil {
			logger.Warn("pii list watch unavailable", slog.Any("error", err))
			cancel()
			eng.watchCancel = nil
		}
	}

	logger.Info("engine ready",
		slog.Int("nodes", g.NodeCount()),
		slog.Int("edges", g.EdgeCount()),
		slog.Int("pii_columns", registry.Len()))
	return eng, nil
}

// buildCatalog constructs the source and parser the config names. The file
// driver serves both from a parsed-objects dump; the postgres driver reads
// the live catalog and takes statement streams from the optional dump.
func buildCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.Source, extract.Parser, error) {
	var objects []*extract.ParsedObject
	if cfg.Catalog.ObjectsFile != "" {
		f, err := os.Open(cfg.Catalog.ObjectsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open objects file: %w", err)
		}
		defer f.Close()
		objects, err = extract.LoadObjects(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load objects file: %w", err)
		}
	}
	parser := extract.NewStreamParser(objects)

	switch cfg.Catalog.Driver {
	case "file":
		source := catalog.NewStaticSource()
		for _, obj := range objects {
			source.Add(catalog.Object{
				Schema: obj.Schema,
				Name:   obj.Name,
				Type:   objectTypeFor(obj.ObjectType),
			}, obj.Body)
		}
		return source, parser, nil
	case "postgres":
		source, err := catalog.OpenPostgres(ctx, cfg.Catalog.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return source, parser, nil
	default:
		return nil, nil, fmt.Errorf("invalid catalog driver %q", cfg.Catalog.Driver)
	}
}

func objectTypeFor(t core.NodeType) catalog.ObjectType {
	switch t {
	case core.NodeTypeView:
		return catalog.ObjectTypeView
	case core.NodeTypeFunction:
		return catalog.ObjectTypeFunction
	default:
		return catalog.ObjectTypeProcedure
	}
}

// reloadGraph restores the in-memory graph from the persisted snapshot.
func reloadGraph(g *graph.Graph, store core.Store) error {
	nodes, err := store.ListNodes()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		g.UpsertNode(node)
		ids = append(ids, node.NodeID())
	}

	edges, err := store.ListEdges()
	if err != nil {
		return err
	}
	for _, edge := range edges {
		g.UpsertEdge(edge)
	}

	g.RecomputeDegrees(ids)
	return nil
}

// StartScan begins a scan asynchronously and returns its id.
func (e *Engine) StartScan(ctx context.Context, scanType core.ScanType, schemaFilter, objectFilter, startedBy string) (string, error) {
	s, err := e.orchestrator.Start(ctx, scanType, schemaFilter, objectFilter, startedBy)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

// ScanStatus returns the persisted record of a scan.
func (e *Engine) ScanStatus(scanID string) (*core.LineageScan, error) {
	return e.orchestrator.Status(scanID)
}

// CancelScan requests cooperative cancellation of a running scan.
func (e *Engine) CancelScan(scanID string) error {
	return e.orchestrator.Cancel(scanID)
}

// WaitForScan blocks until the scan has finished.
func (e *Engine) WaitForScan(scanID string) {
	e.orchestrator.Wait(scanID)
}

// ListScans returns recent scans, newest first.
func (e *Engine) ListScans(limit int) ([]*core.LineageScan, error) {
	return e.store.ListScans(limit)
}

// Dependents returns everything with a lineage path into the node, grouped
// by hop depth.
func (e *Engine) Dependents(nodeID string, maxDepth int) []query.DepthGroup {
	if maxDepth <= 0 {
		maxDepth = e.cfg.Query.MaxDepth
	}
	return e.queries.Dependents(nodeID, maxDepth)
}

// Dependencies returns everything the node has a lineage path to, grouped
// by hop depth.
func (e *Engine) Dependencies(nodeID string, maxDepth int) []query.DepthGroup {
	if maxDepth <= 0 {
		maxDepth = e.cfg.Query.MaxDepth
	}
	return e.queries.Dependencies(nodeID, maxDepth)
}

// PIIFlowPaths enumerates PII flow paths starting at the node.
func (e *Engine) PIIFlowPaths(nodeID string) []query.PIIFlowPath {
	return e.queries.PIIFlowPaths(nodeID)
}

// RiskScore returns the column's risk score: the persisted value when a
// scan has computed one, otherwise a live computation from the graph.
func (e *Engine) RiskScore(nodeID string) (*core.ColumnRiskScore, error) {
	if score, err := e.store.GetRiskScore(nodeID); err == nil {
		return score, nil
	}
	return e.scorer.ScoreColumn(nodeID)
}

// Node returns the graph node with the given id.
func (e *Engine) Node(nodeID string) (core.LineageNode, bool) {
	return e.graph.Node(nodeID)
}

// ReviewQueue lists flagged dynamic-SQL procedures.
func (e *Engine) ReviewQueue(unreviewedOnly bool) ([]*core.DynamicSQLProcedure, error) {
	return e.store.ListDynamicSQL(unreviewedOnly)
}

// ReviewDynamicSQL records a human review of a flagged procedure.
func (e *Engine) ReviewDynamicSQL(schema, procedure, reviewer, notes string, knownTargets []string) error {
	return e.store.MarkDynamicSQLReviewed(schema, procedure, reviewer, notes, knownTargets)
}

// Close stops running scans and releases the store and catalog source.
func (e *Engine) Close() error {
	e.orchestrator.Shutdown()
	if e.watchCancel != nil {
		e.watchCancel()
	}
	var firstErr error
	if err := e.source.Close(); err != nil {
		firstErr = err
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
