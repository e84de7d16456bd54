// Package pgoracle implements internal/oracle.Oracle against a real
// PostgreSQL database, using the hypopg extension for zero-data
// hypothetical indexes. The oracle issues raw catalog SQL and
// EXPLAIN directly over a pgx pool; an ORM has nothing to map here.
package pgoracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"indexadvisor/internal/oracle"
	"indexadvisor/pkg/logging"
)

// Oracle is a pgx-backed cost oracle. It assumes the target database
// has the hypopg extension installed (CREATE EXTENSION IF NOT EXISTS
// hypopg;). Nothing in this module installs it: the connection is
// treated as a pre-arranged collaborator.
type Oracle struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func New(pool *pgxpool.Pool, logger logging.Logger) *Oracle {
	return &Oracle{pool: pool, logger: logger}
}

const tableInfoQuery = `
SELECT c.relname AS table_name, a.attname AS column_name
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
JOIN pg_attribute a ON a.attrelid = c.oid
WHERE c.relkind = 'r'
  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'hypopg')
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY c.relname, a.attnum`

// GetTableInfo lists user tables with their declared column order.
func (o *Oracle) GetTableInfo(ctx context.Context) ([]oracle.TableInfo, error) {
	o.logger.Debug("oracle: get_table_info")

	rows, err := o.pool.Query(ctx, tableInfoQuery)
	if err != nil {
		return nil, fmt.Errorf("get_table_info: %w", err)
	}
	defer rows.Close()

	order := make([]string, 0)
	byTable := make(map[string]*oracle.TableInfo)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("get_table_info: scan: %w", err)
		}
		info, ok := byTable[table]
		if !ok {
			info = &oracle.TableInfo{Name: table}
			byTable[table] = info
			order = append(order, table)
		}
		info.Columns = append(info.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get_table_info: %w", err)
	}

	out := make([]oracle.TableInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *byTable[name])
	}
	return out, nil
}

const indexInfoQuery = `
SELECT
	ic.relname AS index_name,
	tc.relname AS table_name,
	array_agg(a.attname ORDER BY k.ord) AS columns,
	COALESCE(s.idx_scan, 0) AS num_uses,
	pg_relation_size(ic.oid) AS size_bytes
FROM pg_index ix
JOIN pg_class ic ON ic.oid = ix.indexrelid
JOIN pg_class tc ON tc.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = tc.relnamespace
JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
JOIN pg_attribute a ON a.attrelid = tc.oid AND a.attnum = k.attnum
LEFT JOIN pg_stat_user_indexes s ON s.indexrelid = ic.oid
WHERE n.nspname NOT IN ('pg_catalog', 'information_schema', 'hypopg')
  AND NOT ix.indisprimary
GROUP BY ic.relname, tc.relname, s.idx_scan, ic.oid
ORDER BY tc.relname, ic.relname`

// GetIndexInfo lists the existing real (non-primary-key) indexes.
func (o *Oracle) GetIndexInfo(ctx context.Context) ([]oracle.IndexInfo, error) {
	o.logger.Debug("oracle: get_index_info")

	rows, err := o.pool.Query(ctx, indexInfoQuery)
	if err != nil {
		return nil, fmt.Errorf("get_index_info: %w", err)
	}
	defer rows.Close()

	var out []oracle.IndexInfo
	for rows.Next() {
		var info oracle.IndexInfo
		if err := rows.Scan(&info.Name, &info.Table, &info.Columns, &info.NumUses, &info.SizeBytes); err != nil {
			return nil, fmt.Errorf("get_index_info: scan: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get_index_info: %w", err)
	}
	return out, nil
}

// GetCost asks the planner for a statement's estimated cost via
// EXPLAIN (FORMAT JSON). Side-effect-free: EXPLAIN without ANALYZE
// never executes the statement.
func (o *Oracle) GetCost(ctx context.Context, statement string) (float64, error) {
	o.logger.Debug("oracle: get_cost", logging.String("statement", statement))

	var raw string
	err := o.pool.QueryRow(ctx, "EXPLAIN (FORMAT JSON) "+statement).Scan(&raw)
	if err != nil {
		return 0, fmt.Errorf("get_cost: %w: %s", err, statement)
	}

	var plans []struct {
		Plan struct {
			TotalCost float64 `json:"Total Cost"`
		} `json:"Plan"`
	}
	if err := json.Unmarshal([]byte(raw), &plans); err != nil {
		return 0, fmt.Errorf("get_cost: parse plan: %w", err)
	}
	if len(plans) == 0 {
		return 0, fmt.Errorf("get_cost: empty plan for statement: %s", statement)
	}
	return plans[0].Plan.TotalCost, nil
}

// SimulateIndex creates a hypothetical index via hypopg and returns
// its indexrelid.
func (o *Oracle) SimulateIndex(ctx context.Context, createStatement string) (int64, error) {
	o.logger.Debug("oracle: simulate_index", logging.String("ddl", createStatement))

	var oid int64
	err := o.pool.QueryRow(ctx, "SELECT indexrelid FROM hypopg_create_index($1)", createStatement).Scan(&oid)
	if err != nil {
		return 0, fmt.Errorf("simulate_index: %w: %s", err, createStatement)
	}
	return oid, nil
}

// SizeSimulatedIndex returns hypopg's estimated size for a simulated
// index.
func (o *Oracle) SizeSimulatedIndex(ctx context.Context, oid int64) (int64, error) {
	o.logger.Debug("oracle: size_simulated_index", logging.Int64("oid", oid))

	var size int64
	err := o.pool.QueryRow(ctx, "SELECT hypopg_relation_size($1)", oid).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("size_simulated_index(%d): %w", oid, err)
	}
	return size, nil
}

// DropSimulatedIndex releases a hypothetical index. Idempotent:
// hypopg_drop_index on an already-dropped oid returns false, not an
// error.
func (o *Oracle) DropSimulatedIndex(ctx context.Context, oid int64) error {
	o.logger.Debug("oracle: drop_simulated_index", logging.Int64("oid", oid))

	var dropped bool
	err := o.pool.QueryRow(ctx, "SELECT hypopg_drop_index($1)", oid).Scan(&dropped)
	if err != nil {
		return fmt.Errorf("drop_simulated_index(%d): %w", oid, err)
	}
	return nil
}

// SimulateDrop hides a real index from the planner without touching
// its data, via hypopg_hide_index.
func (o *Oracle) SimulateDrop(ctx context.Context, indexName string) error {
	o.logger.Debug("oracle: simulate_drop", logging.String("index", indexName))

	_, err := o.pool.Exec(ctx,
		"SELECT hypopg_hide_index(c.oid) FROM pg_class c WHERE c.relname = $1", indexName)
	if err != nil {
		return fmt.Errorf("simulate_drop(%s): %w", indexName, err)
	}
	return nil
}

// UndoSimulateDrop reverses SimulateDrop.
func (o *Oracle) UndoSimulateDrop(ctx context.Context, indexName string) error {
	o.logger.Debug("oracle: undo_simulate_drop", logging.String("index", indexName))

	_, err := o.pool.Exec(ctx,
		"SELECT hypopg_unhide_index(c.oid) FROM pg_class c WHERE c.relname = $1", indexName)
	if err != nil {
		return fmt.Errorf("undo_simulate_drop(%s): %w", indexName, err)
	}
	return nil
}

// RefreshStats asks Postgres to refresh planner statistics.
func (o *Oracle) RefreshStats(ctx context.Context) error {
	o.logger.Debug("oracle: refresh_stats")

	if _, err := o.pool.Exec(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("refresh_stats: %w", err)
	}
	return nil
}
