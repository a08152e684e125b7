// Package scan runs lineage scans: catalog enumeration, parallel fact
// extraction, graph building, and risk recomputation, tracked through the
// saga state machine on core.LineageScan.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/datalens/internal/catalog"
	"github.com/leapstack-labs/datalens/internal/dynamicsql"
	"github.com/leapstack-labs/datalens/internal/extract"
	"github.com/leapstack-labs/datalens/internal/graph"
	"github.com/leapstack-labs/datalens/internal/risk"
	"github.com/leapstack-labs/datalens/internal/state"
	"github.com/leapstack-labs/datalens/pkg/core"
)

// DefaultWorkers bounds the per-scan extraction pool.
const DefaultWorkers = 4

// Options wires an orchestrator's collaborators.
type Options struct {
	Store     core.Store
	Source    catalog.Source
	Parser    extract.Parser
	Extractor *extract.Extractor
	Graph     *graph.Graph
	Builder   *graph.Builder
	Scorer    *risk.Scorer
	Workers   int
	Logger    *slog.Logger
}

// Orchestrator owns all scan lifecycles. It is the single writer of the
// lineage graph; queries read the graph concurrently at any time.
type Orchestrator struct {
	store     core.Store
	source    catalog.Source
	parser    extract.Parser
	extractor *extract.Extractor
	graph     *graph.Graph
	builder   *graph.Builder
	scorer    *risk.Scorer
	workers   int
	logger    *slog.Logger

	mu     sync.Mutex
	active map[string]*activeScan
	wg     sync.WaitGroup
}

type activeScan struct {
	scan   *core.LineageScan
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOrchestrator creates an orchestrator. Workers defaults to
// DefaultWorkers; a nil logger discards.
func NewOrchestrator(opts Options) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		store:     opts.Store,
		source:    opts.Source,
		parser:    opts.Parser,
		extractor: opts.Extractor,
		graph:     opts.Graph,
		builder:   opts.Builder,
		scorer:    opts.Scorer,
		workers:   workers,
		logger:    logger,
	}
}

// Start begins a scan asynchronously and returns its pending record. A scan
// whose schema scope overlaps an active scan is rejected with ErrScanActive;
// scans over disjoint schema filters run concurrently.
func (o *Orchestrator) Start(ctx context.Context, scanType core.ScanType, schemaFilter, objectFilter, startedBy string) (*core.LineageScan, error) {
	if !scanType.Valid() {
		return nil, fmt.Errorf("invalid scan type %q", scanType)
	}

	scan := core.NewLineageScan(state.NewScanID(), scanType, schemaFilter, objectFilter, startedBy, state.NewScanID())

	o.mu.Lock()
	for _, a := range o.active {
		if scopesOverlap(a.scan.SchemaFilter, schemaFilter) {
			o.mu.Unlock()
			return nil, fmt.Errorf("schema scope %q held by scan %s: %w", a.scan.SchemaFilter, a.scan.ID, core.ErrScanActive)
		}
	}
	if o.active == nil {
		o.active = make(map[string]*activeScan)
	}

	if err := o.store.CreateScan(scan); err != nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	handle := &activeScan{scan: scan, cancel: cancel, done: make(chan struct{})}
	o.active[scan.ID] = handle
	o.wg.Add(1)
	o.mu.Unlock()

	o.logger.Info("scan started",
		slog.String("scan_id", scan.ID),
		slog.String("type", string(scanType)),
		slog.String("schema_filter", schemaFilter))

	// The run goroutine keeps mutating the live record; hand the caller a
	// detached copy and let Status serve fresh state.
	snapshot := *scan

	go func() {
		defer o.wg.Done()
		defer close(handle.done)
		defer cancel()
		o.run(runCtx, scan)
		o.mu.Lock()
		delete(o.active, scan.ID)
		o.mu.Unlock()
	}()

	return &snapshot, nil
}

// scopesOverlap reports whether two schema filters can touch the same
// objects. An empty filter spans every schema.
func scopesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return strings.EqualFold(a, b)
}

// Cancel requests cooperative cancellation of a running scan. The scan stops
// at the next object boundary; in-flight writes are never aborted.
func (o *Orchestrator) Cancel(scanID string) error {
	o.mu.Lock()
	handle, ok := o.active[scanID]
	o.mu.Unlock()
	if ok {
		handle.cancel()
		return nil
	}

	scan, err := o.store.GetScan(scanID)
	if err != nil {
		return err
	}
	if scan.Status.Terminal() {
		return core.ErrInvalidTransition
	}
	// Not running in this process (e.g. left over from a crash); mark it
	// cancelled directly.
	return o.store.UpdateScanStatus(scanID, core.ScanCancelled, "")
}

// Status returns the persisted scan record.
func (o *Orchestrator) Status(scanID string) (*core.LineageScan, error) {
	return o.store.GetScan(scanID)
}

// Wait blocks until the scan's goroutine has finished. Scans unknown to this
// process return immediately.
func (o *Orchestrator) Wait(scanID string) {
	o.mu.Lock()
	handle, ok := o.active[scanID]
	o.mu.Unlock()
	if ok {
		<-handle.done
	}
}

// Shutdown cancels all running scans and waits for them to stop.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	for _, handle := range o.active {
		handle.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// objectResult is the per-object outcome of the parsing phase.
type objectResult struct {
	object  catalog.Object
	facts   []*core.ColumnFact
	dynamic *core.DynamicSQLProcedure
}

func (o *Orchestrator) run(ctx context.Context, scan *core.LineageScan) {
	fail := func(msg string, err error) {
		o.logger.Error("scan failed", slog.String("scan_id", scan.ID), slog.Any("error", err))
		if terr := scan.Fail(fmt.Sprintf("%s: %v", msg, err)); terr != nil {
			return
		}
		_ = o.store.UpdateScanProgress(scan)
		_ = o.store.UpdateScanStatus(scan.ID, core.ScanFailed, scan.ErrorMessage)
	}
	cancelScan := func() {
		o.logger.Info("scan cancelled", slog.String("scan_id", scan.ID))
		if terr := scan.Transition(core.ScanCancelled); terr != nil {
			return
		}
		_ = o.store.UpdateScanProgress(scan)
		_ = o.store.UpdateScanStatus(scan.ID, core.ScanCancelled, "")
	}

	objects, err := o.source.ListObjects(ctx, scan.SchemaFilter, scan.ObjectFilter)
	if err != nil {
		if ctx.Err() != nil {
			cancelScan()
			return
		}
		fail("catalog enumeration failed", err)
		return
	}

	scan.TotalObjects = len(objects)
	if err := scan.Transition(core.ScanParsing); err != nil {
		fail("state machine violation", err)
		return
	}
	_ = o.store.UpdateScanProgress(scan)
	_ = o.store.UpdateScanStatus(scan.ID, core.ScanParsing, "")

	results, cancelled := o.parsePhase(ctx, scan, objects)
	if cancelled {
		cancelScan()
		return
	}

	if err := scan.Transition(core.ScanBuilding); err != nil {
		fail("state machine violation", err)
		return
	}
	_ = o.store.UpdateScanStatus(scan.ID, core.ScanBuilding, "")

	if cancelled := o.buildPhase(ctx, scan, results); cancelled {
		cancelScan()
		return
	}

	if err := scan.Transition(core.ScanIndexing); err != nil {
		fail("state machine violation", err)
		return
	}
	_ = o.store.UpdateScanStatus(scan.ID, core.ScanIndexing, "")

	if err := o.indexPhase(scan); err != nil {
		fail("indexing failed", err)
		return
	}

	if err := scan.Transition(core.ScanCompleted); err != nil {
		fail("state machine violation", err)
		return
	}
	_ = o.store.UpdateScanProgress(scan)
	_ = o.store.UpdateScanStatus(scan.ID, core.ScanCompleted, "")

	o.logger.Info("scan completed",
		slog.String("scan_id", scan.ID),
		slog.Int("objects", scan.ProcessedObjects),
		slog.Int("nodes_created", scan.NodesCreated),
		slog.Int("edges_created", scan.EdgesCreated),
		slog.Int("errors", scan.ErrorCount))
}

// parsePhase fetches and parses object definitions on a bounded worker
// pool. Per-object failures count and skip; cancellation is honored between
// objects only.
func (o *Orchestrator) parsePhase(ctx context.Context, scan *core.LineageScan, objects []catalog.Object) ([]objectResult, bool) {
	var mu sync.Mutex
	results := make([]objectResult, 0, len(objects))

	g := &errgroup.Group{}
	g.SetLimit(o.workers)

	for _, obj := range objects {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			result, err := o.processObject(ctx, obj)

			mu.Lock()
			defer mu.Unlock()
			scan.ProcessedObjects++
			scan.CurrentObject = obj.ID()
			if err != nil {
				scan.ErrorCount++
				o.logger.Warn("object skipped",
					slog.String("scan_id", scan.ID),
					slog.String("object", obj.ID()),
					slog.Any("error", err))
			} else {
				if result.dynamic != nil {
					scan.DynamicSQLCount++
				}
				results = append(results, result)
			}
			_ = o.store.UpdateScanProgress(scan)
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err() != nil
}

func (o *Orchestrator) processObject(ctx context.Context, obj catalog.Object) (objectResult, error) {
	definition, err := o.source.ObjectDefinition(ctx, obj)
	if err != nil {
		return objectResult{}, fmt.Errorf("failed to fetch definition: %w", err)
	}

	if proc := dynamicsql.Flag(obj.Schema, obj.Name, definition); proc != nil {
		return objectResult{object: obj, dynamic: proc}, nil
	}

	parsed, err := o.parser.Parse(ctx, obj.Schema, obj.Name, definition)
	if err != nil {
		return objectResult{}, fmt.Errorf("failed to parse: %w", err)
	}
	if parsed != nil && parsed.HasDynamicSQL {
		return objectResult{object: obj, dynamic: dynamicsql.Flag(obj.Schema, obj.Name, parsed.Body)}, nil
	}

	return objectResult{object: obj, facts: o.extractor.Extract(parsed)}, nil
}

// buildPhase applies extracted facts to the graph sequentially and records
// flagged dynamic-SQL procedures.
func (o *Orchestrator) buildPhase(ctx context.Context, scan *core.LineageScan, results []objectResult) bool {
	if scan.Type == core.ScanTypeFull && scan.SchemaFilter == "" && scan.ObjectFilter == "" {
		o.graph.Reset()
		if err := o.store.ResetGraph(); err != nil {
			o.logger.Warn("graph reset failed", slog.Any("error", err))
		}
	}

	for _, result := range results {
		if ctx.Err() != nil {
			return true
		}

		if result.dynamic != nil {
			// The procedure still gets a node so impact queries can find
			// it, but no edges: its effects are unknown until reviewed.
			node := nodeForObject(result.object)
			o.graph.UpsertNode(node)
			if err := o.upsertDynamic(result.dynamic); err != nil {
				scan.ErrorCount++
				o.logger.Warn("dynamic sql record failed",
					slog.String("object", result.object.ID()),
					slog.Any("error", err))
			}
			continue
		}

		stats := o.builder.Apply(result.facts)
		scan.NodesCreated += stats.NodesCreated
		scan.EdgesCreated += stats.EdgesCreated
		scan.PIIColumnsFound += stats.PIIColumnsFound
	}
	_ = o.store.UpdateScanProgress(scan)
	return false
}

// upsertDynamic records a flagged procedure, preserving an earlier review.
func (o *Orchestrator) upsertDynamic(proc *core.DynamicSQLProcedure) error {
	if existing, err := o.store.GetDynamicSQL(proc.Schema, proc.ProcedureName); err == nil {
		existing.Refresh(proc.DetectedPattern, proc.LineNumber)
		existing.Type = proc.Type
		existing.Risk = proc.Risk
		return o.store.UpsertDynamicSQL(existing)
	}
	return o.store.UpsertDynamicSQL(proc)
}

func nodeForObject(obj catalog.Object) *core.LineageNode {
	switch obj.Type {
	case catalog.ObjectTypeView:
		return core.NewViewNode(obj.Schema, obj.Name)
	case catalog.ObjectTypeFunction:
		return core.NewFunctionNode(obj.Schema, obj.Name)
	default:
		return core.NewProcedureNode(obj.Schema, obj.Name)
	}
}

// indexPhase recomputes risk scores from the committed graph and persists
// the graph snapshot.
func (o *Orchestrator) indexPhase(scan *core.LineageScan) error {
	for _, score := range o.scorer.ScoreAll() {
		if err := o.store.SaveRiskScore(score); err != nil {
			return fmt.Errorf("failed to persist risk score for %s: %w", score.NodeID, err)
		}
	}

	for _, node := range o.graph.Nodes() {
		if err := o.store.SaveNode(&node); err != nil {
			return fmt.Errorf("failed to persist node %s: %w", node.NodeID(), err)
		}
	}
	for _, edge := range o.graph.Edges() {
		if err := o.store.SaveEdge(&edge); err != nil {
			return fmt.Errorf("failed to persist edge %s: %w", edge.EdgeKey(), err)
		}
	}

	o.logger.Debug("graph snapshot persisted",
		slog.String("scan_id", scan.ID),
		slog.Int("nodes", o.graph.NodeCount()),
		slog.Int("edges", o.graph.EdgeCount()))
	return nil
}
