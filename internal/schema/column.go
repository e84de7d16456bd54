// Package schema holds the value types the selection engine operates
// over: columns, tables, queries and indexes, plus the canonical
// identifier that names a candidate or real index.
package schema

// ColumnRef is a qualified reference to a column, as it appears inside
// a parsed query's filter/join/group/order/select/set clauses.
type ColumnRef struct {
	Table  string
	Column string
}

func (c ColumnRef) String() string {
	return c.Table + "." + c.Column
}

// Column is a single column of a Table. ReferencingQueries is the set
// of query IDs that list this column among their indexable columns; it
// is populated once during setup and never mutated afterward.
type Column struct {
	Name               string
	Table              string
	ReferencingQueries map[int]struct{}
}

func NewColumn(table, name string) *Column {
	return &Column{
		Name:               name,
		Table:              table,
		ReferencingQueries: make(map[int]struct{}),
	}
}

// AddReferencingQuery records that query qid uses this column as an
// indexable predicate. Idempotent.
func (c *Column) AddReferencingQuery(qid int) {
	c.ReferencingQueries[qid] = struct{}{}
}

// Referenced reports whether any query references this column.
func (c *Column) Referenced() bool {
	return len(c.ReferencingQueries) > 0
}

// QueryIDs returns the referencing query IDs in no particular order.
func (c *Column) QueryIDs() []int {
	ids := make([]int, 0, len(c.ReferencingQueries))
	for id := range c.ReferencingQueries {
		ids = append(ids, id)
	}
	return ids
}
