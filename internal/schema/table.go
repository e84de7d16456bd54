package schema

// Table holds the declared columns of a user table, in the engine's
// own in-memory schema model. ColumnOrder is the database's declared
// column order, used to canonicalize index-candidate tuples: the
// canonical order within a tuple is the table's declared column
// order, not discovery order.
type Table struct {
	Name              string
	Columns           map[string]*Column
	ColumnOrder       []string
	ReferencedColumns map[string]*Column
}

func NewTable(name string, orderedColumns []string) *Table {
	t := &Table{
		Name:              name,
		Columns:           make(map[string]*Column, len(orderedColumns)),
		ColumnOrder:       append([]string(nil), orderedColumns...),
		ReferencedColumns: make(map[string]*Column),
	}
	for _, c := range orderedColumns {
		t.Columns[c] = NewColumn(name, c)
	}
	return t
}

// MarkReferenced adds the named column to ReferencedColumns. It is a
// no-op if the column doesn't exist on this table (a parser anomaly
// that the caller is responsible for warning about).
func (t *Table) MarkReferenced(name string) {
	if col, ok := t.Columns[name]; ok {
		t.ReferencedColumns[name] = col
	}
}

// ReferencedColumnNames returns the referenced columns of this table
// in the table's declared column order.
func (t *Table) ReferencedColumnNames() []string {
	out := make([]string, 0, len(t.ReferencedColumns))
	for _, name := range t.ColumnOrder {
		if _, ok := t.ReferencedColumns[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// CanonicalOrder reorders cols (assumed to be a subset of this
// table's columns) into the table's declared column order.
func (t *Table) CanonicalOrder(cols []string) []string {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(cols))
	for _, name := range t.ColumnOrder {
		if _, ok := set[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// ColumnPosition returns the declared-order index of a column, or -1
// if it isn't a column of this table.
func (t *Table) ColumnPosition(name string) int {
	for i, c := range t.ColumnOrder {
		if c == name {
			return i
		}
	}
	return -1
}
