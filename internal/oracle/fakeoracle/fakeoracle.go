// Package fakeoracle provides a deterministic, in-memory Oracle double
// for exercising the selection engine without a live database: canned
// costs and sizes keyed by which indexes are currently visible to the
// planner.
package fakeoracle

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"indexadvisor/internal/oracle"
)

// CostFunc computes the planner cost of statement given the set of
// currently active index keys (schema.IndexIdentifier.Key() format:
// "table(col1,col2)"): real indexes not hidden, plus any simulated
// index.
type CostFunc func(statement string, active map[string]bool) float64

// SizeFunc computes the simulated size in bytes of a candidate index
// from its CREATE INDEX DDL text.
type SizeFunc func(createStatement string) int64

type simulatedIndex struct {
	key  string
	size int64
}

// Oracle is a test double implementing internal/oracle.Oracle.
type Oracle struct {
	Tables      []oracle.TableInfo
	RealIndexes []oracle.IndexInfo
	CostFn      CostFunc
	SizeFn      SizeFunc

	hidden  map[string]bool
	sims    map[int64]simulatedIndex
	nextOID int64

	// Calls records every operation invoked, in order, for assertions
	// in tests that care about call sequencing (e.g. drop-before-create
	// ordering, or that a rejected candidate was unsimulated).
	Calls []string
}

func New(tables []oracle.TableInfo, realIndexes []oracle.IndexInfo) *Oracle {
	return &Oracle{
		Tables:      tables,
		RealIndexes: realIndexes,
		hidden:      make(map[string]bool),
		sims:        make(map[int64]simulatedIndex),
		CostFn:      func(string, map[string]bool) float64 { return 0 },
		SizeFn:      func(string) int64 { return 0 },
	}
}

func (o *Oracle) GetTableInfo(ctx context.Context) ([]oracle.TableInfo, error) {
	o.Calls = append(o.Calls, "get_table_info")
	return o.Tables, nil
}

func (o *Oracle) GetIndexInfo(ctx context.Context) ([]oracle.IndexInfo, error) {
	o.Calls = append(o.Calls, "get_index_info")
	return o.RealIndexes, nil
}

func (o *Oracle) GetCost(ctx context.Context, statement string) (float64, error) {
	o.Calls = append(o.Calls, "get_cost:"+statement)
	return o.CostFn(statement, o.activeKeys()), nil
}

func (o *Oracle) SimulateIndex(ctx context.Context, createStatement string) (int64, error) {
	table, columns, err := parseCreateStatement(createStatement)
	if err != nil {
		return 0, err
	}
	key := indexKey(table, columns)
	o.nextOID++
	oid := o.nextOID
	o.sims[oid] = simulatedIndex{key: key, size: o.SizeFn(createStatement)}
	o.Calls = append(o.Calls, "simulate_index:"+key)
	return oid, nil
}

func (o *Oracle) SizeSimulatedIndex(ctx context.Context, oid int64) (int64, error) {
	o.Calls = append(o.Calls, "size_simulated_index")
	sim, ok := o.sims[oid]
	if !ok {
		return 0, fmt.Errorf("fakeoracle: unknown simulated index oid %d", oid)
	}
	return sim.size, nil
}

func (o *Oracle) DropSimulatedIndex(ctx context.Context, oid int64) error {
	o.Calls = append(o.Calls, "drop_simulated_index")
	delete(o.sims, oid)
	return nil
}

func (o *Oracle) SimulateDrop(ctx context.Context, indexName string) error {
	o.Calls = append(o.Calls, "simulate_drop:"+indexName)
	o.hidden[indexName] = true
	return nil
}

func (o *Oracle) UndoSimulateDrop(ctx context.Context, indexName string) error {
	o.Calls = append(o.Calls, "undo_simulate_drop:"+indexName)
	delete(o.hidden, indexName)
	return nil
}

func (o *Oracle) RefreshStats(ctx context.Context) error {
	o.Calls = append(o.Calls, "refresh_stats")
	return nil
}

// SimulatedCount reports how many hypothetical indexes are currently
// live, for asserting the no-double-simulation property in tests.
func (o *Oracle) SimulatedCount() int { return len(o.sims) }

func (o *Oracle) activeKeys() map[string]bool {
	active := make(map[string]bool)
	for _, idx := range o.RealIndexes {
		if !o.hidden[idx.Name] {
			active[indexKey(idx.Table, idx.Columns)] = true
		}
	}
	for _, sim := range o.sims {
		active[sim.key] = true
	}
	return active
}

func indexKey(table string, columns []string) string {
	return table + "(" + strings.Join(columns, ",") + ")"
}

var createStatementPattern = regexp.MustCompile(`(?i)ON\s+([a-zA-Z_][\w]*)\s*\(([^)]*)\)`)

func parseCreateStatement(ddl string) (table string, columns []string, err error) {
	m := createStatementPattern.FindStringSubmatch(ddl)
	if m == nil {
		return "", nil, fmt.Errorf("fakeoracle: cannot parse create statement: %s", ddl)
	}
	table = m[1]
	for _, c := range strings.Split(m[2], ",") {
		columns = append(columns, strings.TrimSpace(c))
	}
	return table, columns, nil
}
