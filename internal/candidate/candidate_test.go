package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"indexadvisor/internal/schema"
)

func TestSeedFromTablesBoundsByMaxWidthAndExcludesExisting(t *testing.T) {
	tbl := schema.NewTable("orders", []string{"id", "customer_id", "status"})
	tbl.MarkReferenced("customer_id")
	tbl.MarkReferenced("status")
	tables := map[string]*schema.Table{"orders": tbl}

	existing := map[string]struct{}{
		schema.IndexIdentifier{Table: "orders", Columns: []string{"customer_id"}}.Key(): {},
	}

	set := SeedFromTables(tables, 2, existing)
	keys := make(map[string]bool)
	for _, id := range set.Ordered() {
		keys[id.Key()] = true
	}

	assert.False(t, keys["orders(customer_id)"], "existing index must be excluded")
	assert.True(t, keys["orders(status)"])
	assert.True(t, keys["orders(customer_id,status)"])
	assert.Equal(t, 2, set.Len())
}

func TestSetAddIsIdempotent(t *testing.T) {
	set := NewSet()
	id := schema.IndexIdentifier{Table: "t", Columns: []string{"a"}}
	assert.True(t, set.Add(id))
	assert.False(t, set.Add(id))
	assert.Equal(t, 1, set.Len())
}

func TestPrefixExtendStopsAtMaxWidth(t *testing.T) {
	tbl := schema.NewTable("t", []string{"a", "b", "c"})
	tbl.MarkReferenced("a")
	tbl.MarkReferenced("b")
	tbl.MarkReferenced("c")

	accepted := schema.IndexIdentifier{Table: "t", Columns: []string{"a"}}
	extended := PrefixExtend(tbl, accepted, 2)
	var keys []string
	for _, id := range extended {
		keys = append(keys, id.Key())
	}
	assert.ElementsMatch(t, []string{"t(a,b)", "t(a,c)"}, keys)

	assert.Nil(t, PrefixExtend(tbl, schema.IndexIdentifier{Table: "t", Columns: []string{"a", "b"}}, 2))
}
