package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"indexadvisor/internal/schema"
	"indexadvisor/pkg/errors"
)

// evaluate scores one candidate: simulate it, compute its
// improvement-per-byte across every query that references one of its
// columns, and accept it as the round's current winner if it beats
// both the improvement threshold and the running round's best so far.
// Rejected or displaced candidates are unsimulated immediately so at
// most one simulation per identifier is ever live.
func (e *Engine) evaluate(ctx context.Context, id schema.IndexIdentifier, next **pendingCandidate, improvement *float64) error {
	ddl := id.CreateStatement(id.GeneratedName())

	start := time.Now()
	oid, err := e.oracle.SimulateIndex(ctx, ddl)
	if e.metrics != nil {
		e.metrics.ObserveOracleCall("simulate_index", time.Since(start), err)
	}
	if err != nil {
		return errors.NewOracleError("simulate_index", err)
	}

	start = time.Now()
	size, err := e.oracle.SizeSimulatedIndex(ctx, oid)
	if e.metrics != nil {
		e.metrics.ObserveOracleCall("size_simulated_index", time.Since(start), err)
	}
	if err != nil {
		return errors.NewOracleError("size_simulated_index", err)
	}

	tbl, ok := e.tables[id.Table]
	if !ok {
		return errors.NewInvariantError("candidate references unknown table", id.Table)
	}

	var numUses int64
	var delta float64
	evaluated := make(map[int]struct{})
	for _, colName := range id.Columns {
		col, ok := tbl.Columns[colName]
		if !ok {
			return errors.NewInvariantError("candidate references unknown column", id.Table+"."+colName)
		}
		for _, qid := range sortedQueryIDs(col.QueryIDs()) {
			numUses++
			if _, done := evaluated[qid]; done {
				continue
			}
			evaluated[qid] = struct{}{}
			q := e.queries[qid]
			newCost, err := e.callOracleCost(ctx, q.Text)
			if err != nil {
				return errors.NewOracleError("get_cost", err)
			}
			delta += newCost - q.BestCost
		}
	}

	var improvementC float64
	if size > 0 {
		improvementC = delta / float64(size)
	}

	accepts := improvementC < *improvement && math.Abs(delta) >= e.cfg.MinCostFactor*e.cost

	if !accepts {
		if err := e.dropSimulated(ctx, oid); err != nil {
			return err
		}
		return nil
	}

	if delta >= 0 || math.Abs(delta) >= e.cost {
		return errors.NewInvariantError("accepted candidate violates delta invariant",
			fmt.Sprintf("delta=%f cost=%f", delta, e.cost))
	}

	if *next != nil {
		if err := e.dropSimulated(ctx, (*next).oid); err != nil {
			return err
		}
	}
	*next = &pendingCandidate{identifier: id, oid: oid, size: size, numUses: numUses}
	*improvement = improvementC
	return nil
}

func (e *Engine) dropSimulated(ctx context.Context, oid int64) error {
	start := time.Now()
	err := e.oracle.DropSimulatedIndex(ctx, oid)
	if e.metrics != nil {
		e.metrics.ObserveOracleCall("drop_simulated_index", time.Since(start), err)
	}
	if err != nil {
		return errors.NewOracleError("drop_simulated_index", err)
	}
	return nil
}

// rebalance tries to free enough of max_storage to fit proposed by
// evicting existing real indexes in ascending uses-per-byte order.
// Eviction decisions are tentative while walking the queue: a local
// budget tracks the net effect of provisionally freeing each
// candidate's bytes, and only a successful walk commits anything
// (DROP statements written, indexes removed from the eviction queue).
// The live e.maxStorage field is left untouched here; it is adjusted
// only by updateCosts, which is the single place the net storage
// accounting is ultimately settled.
func (e *Engine) rebalance(ctx context.Context, proposed *pendingCandidate) (bool, error) {
	tentative := e.maxStorage
	var toEvict []*schema.Index

	for _, existing := range e.evictionQ.Ordered() {
		if tentative >= proposed.size {
			break
		}
		better, err := e.isBetter(ctx, proposed, existing)
		if err != nil {
			return false, err
		}
		if !better {
			continue
		}
		toEvict = append(toEvict, existing)
		tentative += existing.Size
	}

	if tentative < proposed.size {
		if err := e.dropSimulated(ctx, proposed.oid); err != nil {
			return false, err
		}
		return false, nil
	}

	for _, existing := range toEvict {
		if err := e.writer.WriteDrop(existing); err != nil {
			return false, fmt.Errorf("write action script: %w", err)
		}
		// The physical DROP only happens when the action script is
		// later replayed, but the oracle's cost estimates must treat
		// this index as gone from here on. isBetter's own hide was
		// undone when it returned; make it permanent now that the
		// eviction is committed.
		if err := e.hideEvictedPermanently(ctx, existing); err != nil {
			return false, err
		}
		delete(e.existingIndexes, existing.Identifier.Key())
		e.evictionQ.Remove(existing.Identifier.Key())
		e.evictedBytes += existing.Size
		if e.metrics != nil {
			e.metrics.IndexEvicted()
		}
	}
	return true, nil
}

func (e *Engine) hideEvictedPermanently(ctx context.Context, existing *schema.Index) error {
	start := time.Now()
	err := e.oracle.SimulateDrop(ctx, existing.Name)
	if e.metrics != nil {
		e.metrics.ObserveOracleCall("simulate_drop", time.Since(start), err)
	}
	if err != nil {
		return errors.NewOracleError("simulate_drop", err)
	}
	return nil
}

// isBetter compares a proposed candidate (already simulated, kept
// alive from evaluate) against an existing real index considered for
// eviction. Only existing is simulate-dropped here: re-simulating
// proposed would create a second live simulation of an identifier
// already simulated, violating the no-double-simulation invariant.
// The cost delta is computed without any write-back to
// Query.BestCost; it is a pure comparison.
func (e *Engine) isBetter(ctx context.Context, proposed *pendingCandidate, existing *schema.Index) (bool, error) {
	start := time.Now()
	err := e.oracle.SimulateDrop(ctx, existing.Name)
	if e.metrics != nil {
		e.metrics.ObserveOracleCall("simulate_drop", time.Since(start), err)
	}
	if err != nil {
		return false, errors.NewOracleError("simulate_drop", err)
	}
	defer func() {
		start := time.Now()
		undoErr := e.oracle.UndoSimulateDrop(ctx, existing.Name)
		if e.metrics != nil {
			e.metrics.ObserveOracleCall("undo_simulate_drop", time.Since(start), undoErr)
		}
	}()

	tbl, ok := e.tables[proposed.identifier.Table]
	if !ok {
		return false, errors.NewInvariantError("candidate references unknown table", proposed.identifier.Table)
	}

	var delta float64
	evaluated := make(map[int]struct{})
	for _, colName := range proposed.identifier.Columns {
		col, ok := tbl.Columns[colName]
		if !ok {
			continue
		}
		for _, qid := range sortedQueryIDs(col.QueryIDs()) {
			if _, done := evaluated[qid]; done {
				continue
			}
			evaluated[qid] = struct{}{}
			q := e.queries[qid]
			cost, err := e.callOracleCost(ctx, q.Text)
			if err != nil {
				return false, errors.NewOracleError("get_cost", err)
			}
			delta += cost - q.BestCost
		}
	}
	return delta < 0, nil
}

// updateCosts folds an accepted candidate into the running cost and
// storage state: every query referencing one of its columns gets its
// best-known cost refreshed, and the candidate's bytes are charged
// against max_storage.
func (e *Engine) updateCosts(ctx context.Context, accepted *pendingCandidate) error {
	tbl, ok := e.tables[accepted.identifier.Table]
	if !ok {
		return errors.NewInvariantError("accepted candidate references unknown table", accepted.identifier.Table)
	}

	var delta float64
	evaluated := make(map[int]struct{})
	for _, colName := range accepted.identifier.Columns {
		col, ok := tbl.Columns[colName]
		if !ok {
			continue
		}
		for _, qid := range sortedQueryIDs(col.QueryIDs()) {
			if _, done := evaluated[qid]; done {
				continue
			}
			evaluated[qid] = struct{}{}
			q := e.queries[qid]
			newCost, err := e.callOracleCost(ctx, q.Text)
			if err != nil {
				return errors.NewOracleError("get_cost", err)
			}
			delta += newCost - q.BestCost
			q.BestCost = newCost
		}
	}
	e.cost += delta
	e.maxStorage -= accepted.size
	return nil
}
