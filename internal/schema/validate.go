package schema

import "fmt"

// ValidateSameTable enforces the index invariant: every column in an
// index identifier belongs to the table named in the identifier, and
// that table is known to the schema. A violation is not a recoverable
// error; callers should treat a non-nil return as fatal.
func ValidateSameTable(tables map[string]*Table, id IndexIdentifier) error {
	table, ok := tables[id.Table]
	if !ok {
		return fmt.Errorf("schema invariant violated: unknown table %q in index identifier %s", id.Table, id.Key())
	}
	for _, col := range id.Columns {
		if _, ok := table.Columns[col]; !ok {
			return fmt.Errorf("schema invariant violated: column %q is not a column of table %q (index %s)", col, id.Table, id.Key())
		}
	}
	return nil
}
