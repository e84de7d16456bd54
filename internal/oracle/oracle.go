// Package oracle defines the cost-oracle abstraction the selection
// engine treats as a black box: table/index metadata, planner cost
// estimates, and hypothetical-index simulation. The engine depends
// only on this interface; internal/oracle/pgoracle and
// internal/oracle/fakeoracle provide the real and test implementations.
package oracle

import "context"

// TableInfo is a user table and its declared column order.
type TableInfo struct {
	Name    string
	Columns []string
}

// IndexInfo is a pre-existing real index as reported by the target
// database.
type IndexInfo struct {
	Name      string
	Table     string
	Columns   []string
	NumUses   int64
	SizeBytes int64
}

// Oracle is the required capability set the selection engine needs
// from a target database. Every operation is a blocking round-trip;
// there is no internal parallelism and callers must not hold more
// than one simulation of a given identifier at a time.
type Oracle interface {
	// GetTableInfo returns the user tables and their declared column
	// order.
	GetTableInfo(ctx context.Context) ([]TableInfo, error)

	// GetIndexInfo returns the existing real indexes.
	GetIndexInfo(ctx context.Context) ([]IndexInfo, error)

	// GetCost returns the planner's cost estimate for a statement. It
	// must be side-effect-free with respect to data.
	GetCost(ctx context.Context, statement string) (float64, error)

	// SimulateIndex creates a hypothetical (data-less) index from DDL
	// text and returns an opaque handle.
	SimulateIndex(ctx context.Context, createStatement string) (oid int64, err error)

	// SizeSimulatedIndex returns the planner's estimated size in bytes
	// for a simulated index.
	SizeSimulatedIndex(ctx context.Context, oid int64) (sizeBytes int64, err error)

	// DropSimulatedIndex releases a simulated index. Idempotent.
	DropSimulatedIndex(ctx context.Context, oid int64) error

	// SimulateDrop hides a real index from the planner without
	// touching its data.
	SimulateDrop(ctx context.Context, indexName string) error

	// UndoSimulateDrop reverses SimulateDrop.
	UndoSimulateDrop(ctx context.Context, indexName string) error

	// RefreshStats asks the target database to refresh planner
	// statistics. Invoked once, after setup.
	RefreshStats(ctx context.Context) error
}
