package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexadvisor/internal/oracle"
	"indexadvisor/internal/oracle/fakeoracle"
	"indexadvisor/internal/script"
	"indexadvisor/internal/workload"
	"indexadvisor/pkg/logging"
)

func newTestEngine(o oracle.Oracle, cfg Config) (*Engine, *strings.Builder) {
	var buf strings.Builder
	w := script.NewWithWriter(&buf)
	return New(o, logging.Nop(), nil, w, cfg), &buf
}

// E1: a single candidate that clearly improves the workload is
// accepted in its own round, and the engine stops once no candidate
// remains to evaluate.
func TestRunAcceptsSingleImprovingCandidate(t *testing.T) {
	tables := []oracle.TableInfo{{Name: "orders", Columns: []string{"id", "customer_id"}}}
	o := fakeoracle.New(tables, nil)
	o.CostFn = func(stmt string, active map[string]bool) float64 {
		if active["orders(customer_id)"] {
			return 5
		}
		return 100
	}
	o.SizeFn = func(string) int64 { return 1000 }

	e, buf := newTestEngine(o, Config{MinCostFactor: 0.01, MaxIndexWidth: 1, MemoryBudgetBytes: 1 << 20})
	ctx := context.Background()
	statements := []workload.RawStatement{{SessionID: "s1", Text: "SELECT id FROM orders WHERE customer_id = 5"}}

	require.NoError(t, e.Setup(ctx, statements))
	reason, err := e.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "no remaining cost improvement", reason)
	require.Len(t, e.Config(), 1)
	assert.Equal(t, "orders(customer_id)", e.Config()[0].Identifier.Key())
	assert.Contains(t, buf.String(), "CREATE INDEX tune_orders__customer_id ON orders (customer_id);")
	assert.Equal(t, 1, o.SimulatedCount(), "accepted index stays live; rejected ones don't, and setup parsed only one column, so the accepted one is the only live simulation")
}

// E2: a candidate whose cost delta falls below MIN_COST_FACTOR*cost is
// rejected even though its improvement ratio is negative.
func TestRunRejectsCandidateBelowThreshold(t *testing.T) {
	tables := []oracle.TableInfo{{Name: "orders", Columns: []string{"id", "customer_id"}}}
	o := fakeoracle.New(tables, nil)
	o.CostFn = func(stmt string, active map[string]bool) float64 {
		if active["orders(customer_id)"] {
			return 99.5
		}
		return 100
	}
	o.SizeFn = func(string) int64 { return 1000 }

	e, _ := newTestEngine(o, Config{MinCostFactor: 0.5, MaxIndexWidth: 1, MemoryBudgetBytes: 1 << 20})
	ctx := context.Background()
	statements := []workload.RawStatement{{SessionID: "s1", Text: "SELECT id FROM orders WHERE customer_id = 5"}}

	require.NoError(t, e.Setup(ctx, statements))
	reason, err := e.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "no remaining cost improvement", reason)
	assert.Empty(t, e.Config())
	assert.Equal(t, 0, o.SimulatedCount(), "rejected candidate must be unsimulated")
}

// E4: a candidate that exceeds max_storage triggers a successful
// rebalance; the lower-value existing index is dropped before the
// winning candidate is created, and the run then stops.
func TestRunRebalanceEvictsLowValueIndexBeforeAccepting(t *testing.T) {
	tables := []oracle.TableInfo{{Name: "orders", Columns: []string{"id", "customer_id", "region"}}}
	existing := []oracle.IndexInfo{{Name: "orders_region_idx", Table: "orders", Columns: []string{"region"}, NumUses: 1, SizeBytes: 100}}
	o := fakeoracle.New(tables, existing)
	o.CostFn = func(stmt string, active map[string]bool) float64 {
		if strings.Contains(stmt, "customer_id") {
			if active["orders(customer_id)"] {
				return 5
			}
			return 100
		}
		return 10
	}
	o.SizeFn = func(string) int64 { return 150 }

	e, buf := newTestEngine(o, Config{MinCostFactor: 0.01, MaxIndexWidth: 1, MemoryBudgetBytes: 100})
	ctx := context.Background()
	statements := []workload.RawStatement{{SessionID: "s1", Text: "SELECT id FROM orders WHERE customer_id = 5"}}

	require.NoError(t, e.Setup(ctx, statements))
	reason, err := e.Run(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, "no remaining storage space", reason)
	require.Len(t, e.Config(), 1)
	assert.Equal(t, "orders(customer_id)", e.Config()[0].Identifier.Key())

	out := buf.String()
	dropPos := strings.Index(out, "DROP INDEX orders_region_idx;")
	createPos := strings.Index(out, "CREATE INDEX tune_orders__customer_id")
	require.NotEqual(t, -1, dropPos)
	require.NotEqual(t, -1, createPos)
	assert.Less(t, dropPos, createPos, "DROP must precede its enabling CREATE")

	assert.True(t, e.StorageInvariantHolds(100))
}

// E5: rebalance cannot free enough storage even after evicting every
// existing index; the run terminates normally, not as an error.
func TestRunRebalanceFailureTerminatesNormally(t *testing.T) {
	tables := []oracle.TableInfo{{Name: "orders", Columns: []string{"id", "customer_id", "region"}}}
	existing := []oracle.IndexInfo{{Name: "orders_region_idx", Table: "orders", Columns: []string{"region"}, NumUses: 1, SizeBytes: 10}}
	o := fakeoracle.New(tables, existing)
	o.CostFn = func(stmt string, active map[string]bool) float64 {
		if strings.Contains(stmt, "customer_id") {
			if active["orders(customer_id)"] {
				return 5
			}
			return 100
		}
		return 10
	}
	o.SizeFn = func(string) int64 { return 10000 }

	e, _ := newTestEngine(o, Config{MinCostFactor: 0.01, MaxIndexWidth: 1, MemoryBudgetBytes: 50})
	ctx := context.Background()
	statements := []workload.RawStatement{{SessionID: "s1", Text: "SELECT id FROM orders WHERE customer_id = 5"}}

	require.NoError(t, e.Setup(ctx, statements))
	reason, err := e.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "no remaining storage space", reason)
	assert.Empty(t, e.Config())
	assert.Equal(t, 0, o.SimulatedCount(), "a failed rebalance must unsimulate the proposed candidate")
}
