// Package engine implements the selection engine: the outer loop that
// scores candidates against the cost oracle, accepts the best one per
// round, rebalances storage when needed, and terminates on one of
// three normal conditions.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"indexadvisor/internal/candidate"
	"indexadvisor/internal/metrics"
	"indexadvisor/internal/oracle"
	"indexadvisor/internal/schema"
	"indexadvisor/internal/script"
	"indexadvisor/internal/workload"
	"indexadvisor/pkg/errors"
	"indexadvisor/pkg/logging"
)

// Config holds the selection engine's tuning knobs.
type Config struct {
	MinCostFactor     float64
	MaxIndexWidth     int
	MemoryBudgetBytes int64
}

// pendingCandidate is the in-progress winner of the current round: a
// simulated index kept alive until either replaced by a better
// candidate or accepted into Config.
type pendingCandidate struct {
	identifier schema.IndexIdentifier
	oid        int64
	size       int64
	numUses    int64
}

// Engine owns the mutable in-memory world for one advisor run: the
// schema model, the candidate set, accepted configuration, and the
// eviction queue.
type Engine struct {
	oracle  oracle.Oracle
	logger  logging.Logger
	metrics *metrics.Recorder
	writer  *script.Writer
	cfg     Config

	tables          map[string]*schema.Table
	queries         map[int]*schema.Query
	existingIndexes map[string]*schema.Index
	evictionQ       *evictionQueue
	candidates      *candidate.Set
	config          []*schema.Index

	cost       float64
	maxStorage int64
	nextQid    int

	acceptedBytes int64
	evictedBytes  int64
}

func New(o oracle.Oracle, logger logging.Logger, rec *metrics.Recorder, writer *script.Writer, cfg Config) *Engine {
	return &Engine{
		oracle:          o,
		logger:          logger,
		metrics:         rec,
		writer:          writer,
		cfg:             cfg,
		tables:          make(map[string]*schema.Table),
		queries:         make(map[int]*schema.Query),
		existingIndexes: make(map[string]*schema.Index),
		candidates:      candidate.NewSet(),
	}
}

// Config exposes the accepted index configuration in acceptance
// order.
func (e *Engine) Config() []*schema.Index { return e.config }

// Cost returns the current workload cost estimate.
func (e *Engine) Cost() float64 { return e.cost }

// StorageInvariantHolds checks the storage-budget invariant against
// the accumulated accepted/evicted byte ledger, independent of the
// live max_storage field's intra-run bookkeeping.
func (e *Engine) StorageInvariantHolds(initialBudget int64) bool {
	return initialBudget-e.acceptedBytes+e.evictedBytes >= 0
}

// Setup fetches schema and existing-index metadata from the oracle,
// parses the retained workload statements, seeds the candidate set,
// and computes the initial per-query costs.
func (e *Engine) Setup(ctx context.Context, statements []workload.RawStatement) error {
	start := time.Now()
	tableInfos, err := e.oracle.GetTableInfo(ctx)
	if e.metrics != nil {
		e.metrics.ObserveOracleCall("get_table_info", time.Since(start), err)
	}
	if err != nil {
		return errors.NewOracleError("get_table_info", err)
	}
	for _, info := range tableInfos {
		e.tables[info.Name] = schema.NewTable(info.Name, info.Columns)
	}

	start = time.Now()
	indexInfos, err := e.oracle.GetIndexInfo(ctx)
	if e.metrics != nil {
		e.metrics.ObserveOracleCall("get_index_info", time.Since(start), err)
	}
	if err != nil {
		return errors.NewOracleError("get_index_info", err)
	}
	existingKeys := make(map[string]struct{})
	var realIndexes []*schema.Index
	for _, info := range indexInfos {
		idx := schema.NewRealIndex(info.Name, info.Table, info.Columns, info.NumUses, info.SizeBytes)
		e.existingIndexes[idx.Identifier.Key()] = idx
		existingKeys[idx.Identifier.Key()] = struct{}{}
		realIndexes = append(realIndexes, idx)
	}
	e.evictionQ = newEvictionQueue(realIndexes)

	parser := workload.NewParser(e.tables)
	for _, raw := range statements {
		id := e.nextID()
		q, err := parser.Parse(id, raw.Text)
		if err != nil {
			parseErr := errors.NewParserError("dropping unparseable statement", err.Error())
			e.logger.Warn(parseErr.Error(), logging.Int("query_id", id))
			continue
		}
		e.registerQuery(q)
	}

	e.candidates = candidate.SeedFromTables(e.tables, e.cfg.MaxIndexWidth, existingKeys)

	var total float64
	for _, q := range e.sortedQueries() {
		cost, err := e.callOracleCost(ctx, q.Text)
		if err != nil {
			return errors.NewOracleError("get_cost", err)
		}
		q.BestCost = cost
		total += cost
	}
	e.cost = total
	e.maxStorage = e.cfg.MemoryBudgetBytes

	if err := e.oracle.RefreshStats(ctx); err != nil {
		return errors.NewOracleError("refresh_stats", err)
	}
	return nil
}

func (e *Engine) registerQuery(q *schema.Query) {
	e.queries[q.ID] = q
	for _, ref := range q.Attrs.IndexableColumns() {
		tbl, ok := e.tables[ref.Table]
		if !ok {
			e.logger.Warn("skipping reference to unknown table",
				logging.Int("query_id", q.ID), logging.String("column", ref.String()))
			continue
		}
		col, ok := tbl.Columns[ref.Column]
		if !ok {
			e.logger.Warn("skipping reference to unknown column",
				logging.Int("query_id", q.ID), logging.String("column", ref.String()))
			continue
		}
		col.AddReferencingQuery(q.ID)
		tbl.MarkReferenced(ref.Column)
	}
}

func (e *Engine) nextID() int {
	e.nextQid++
	return e.nextQid
}

func (e *Engine) sortedQueries() []*schema.Query {
	ids := make([]int, 0, len(e.queries))
	for id := range e.queries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*schema.Query, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.queries[id])
	}
	return out
}

// Run executes the outer loop until one of the three normal
// termination conditions or a fatal error.
func (e *Engine) Run(ctx context.Context) (reason string, err error) {
	for {
		var next *pendingCandidate
		improvement := 0.0

		scanned := e.candidates.Ordered()
		for _, id := range scanned {
			if err := e.evaluate(ctx, id, &next, &improvement); err != nil {
				return "", err
			}
		}

		winner := ""
		if next != nil {
			winner = next.identifier.Key()
		}
		e.logger.Info("selection round scanned",
			logging.Int("candidates_scanned", len(scanned)),
			logging.String("winner", winner),
			logging.Float64("improvement", improvement),
			logging.Float64("cost", e.cost))

		if next == nil {
			return "no remaining cost improvement", nil
		}

		terminateIter := false
		if next.size > e.maxStorage {
			ok, err := e.rebalance(ctx, next)
			if err != nil {
				return "", err
			}
			if !ok {
				return "no remaining storage space", nil
			}
			terminateIter = true
		}

		idx := &schema.Index{
			Identifier: next.identifier,
			Size:       next.size,
			NumUses:    next.numUses,
			OID:        next.oid,
			HasOID:     true,
		}
		e.config = append(e.config, idx)
		if err := e.updateCosts(ctx, next); err != nil {
			return "", err
		}
		if err := e.writer.WriteCreate(idx); err != nil {
			return "", fmt.Errorf("write action script: %w", err)
		}
		e.candidates.Remove(next.identifier)
		e.acceptedBytes += next.size
		if e.metrics != nil {
			e.metrics.IndexAccepted()
			e.metrics.SetRetainedBytes(e.acceptedBytes - e.evictedBytes)
		}

		if tbl, ok := e.tables[next.identifier.Table]; ok && len(next.identifier.Columns) < e.cfg.MaxIndexWidth {
			accepted := make(map[string]struct{}, len(e.config))
			for _, a := range e.config {
				accepted[a.Identifier.Key()] = struct{}{}
			}
			for _, ext := range candidate.PrefixExtend(tbl, next.identifier, e.cfg.MaxIndexWidth) {
				if _, done := accepted[ext.Key()]; done {
					continue
				}
				e.candidates.Add(ext)
			}
		}
		if e.metrics != nil {
			e.metrics.RoundCompleted()
		}

		if terminateIter {
			return "rebalance occurred; deferring re-evaluation", nil
		}
	}
}

func (e *Engine) callOracleCost(ctx context.Context, statement string) (cost float64, err error) {
	start := time.Now()
	cost, err = e.oracle.GetCost(ctx, statement)
	if e.metrics != nil {
		e.metrics.ObserveOracleCall("get_cost", time.Since(start), err)
	}
	return cost, err
}

func sortedQueryIDs(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}
