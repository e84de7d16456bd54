package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryAttrsIndexableColumnsDedupesAndUnions(t *testing.T) {
	a := QueryAttrs{
		Filters: []ColumnRef{{Table: "t", Column: "a"}, {Table: "t", Column: "b"}},
		Groups:  []ColumnRef{{Table: "t", Column: "b"}},
		Orders:  []ColumnRef{{Table: "t", Column: "c"}},
		Sets:    []ColumnRef{{Table: "t", Column: "d"}},
		Selects: []ColumnRef{{Table: "t", Column: "e"}},
	}

	got := a.IndexableColumns()
	assert.Equal(t, []ColumnRef{
		{Table: "t", Column: "a"},
		{Table: "t", Column: "b"},
		{Table: "t", Column: "c"},
	}, got)
}

func TestTableCanonicalOrderFollowsDeclaredOrder(t *testing.T) {
	tbl := NewTable("t", []string{"a", "b", "c"})
	tbl.MarkReferenced("c")
	tbl.MarkReferenced("a")

	assert.Equal(t, []string{"a", "c"}, tbl.ReferencedColumnNames())
	assert.Equal(t, []string{"a", "c"}, tbl.CanonicalOrder([]string{"c", "a"}))
	assert.Equal(t, 1, tbl.ColumnPosition("b"))
	assert.Equal(t, -1, tbl.ColumnPosition("z"))
}

func TestIndexIdentifierKeyAndGeneratedName(t *testing.T) {
	id := IndexIdentifier{Table: "orders", Columns: []string{"customer_id", "status"}}
	assert.Equal(t, "orders(customer_id,status)", id.Key())
	assert.Equal(t, "tune_orders__customer_id_status", id.GeneratedName())
	assert.Equal(t, "CREATE INDEX tune_orders__customer_id_status ON orders (customer_id, status);",
		id.CreateStatement(id.GeneratedName()))
}

func TestIndexUsesPerByte(t *testing.T) {
	idx := NewRealIndex("idx_a", "t", []string{"a"}, 40, 100)
	assert.InDelta(t, 0.4, idx.UsesPerByte(), 1e-9)

	zero := NewRealIndex("idx_b", "t", []string{"b"}, 0, 0)
	assert.Equal(t, float64(0), zero.UsesPerByte())
}

func TestValidateSameTableRejectsForeignColumn(t *testing.T) {
	tables := map[string]*Table{"t": NewTable("t", []string{"a", "b"})}

	require.NoError(t, ValidateSameTable(tables, IndexIdentifier{Table: "t", Columns: []string{"a", "b"}}))

	err := ValidateSameTable(tables, IndexIdentifier{Table: "t", Columns: []string{"a", "zzz"}})
	require.Error(t, err)

	err = ValidateSameTable(tables, IndexIdentifier{Table: "missing", Columns: []string{"a"}})
	require.Error(t, err)
}
