package candidate

import "indexadvisor/internal/schema"

// SeedFromTables builds the initial candidate set: every non-empty
// ordered tuple of length at most maxWidth drawn from each table's
// referenced columns, in the table's declared column order, excluding
// any tuple that collides with an existing real index.
func SeedFromTables(tables map[string]*schema.Table, maxWidth int, existing map[string]struct{}) *Set {
	set := NewSet()
	for _, tbl := range tables {
		referenced := tbl.ReferencedColumnNames()
		for _, combo := range combinations(referenced, maxWidth) {
			id := schema.IndexIdentifier{Table: tbl.Name, Columns: combo}
			if _, ok := existing[id.Key()]; ok {
				continue
			}
			set.Add(id)
		}
	}
	return set
}

// PrefixExtend returns the new candidate identifiers produced by
// extending accepted with one more column from tbl's referenced
// columns not already present in accepted. Returns nil once accepted
// is already at maxWidth.
func PrefixExtend(tbl *schema.Table, accepted schema.IndexIdentifier, maxWidth int) []schema.IndexIdentifier {
	if len(accepted.Columns) >= maxWidth {
		return nil
	}
	inTuple := make(map[string]struct{}, len(accepted.Columns))
	for _, c := range accepted.Columns {
		inTuple[c] = struct{}{}
	}

	var out []schema.IndexIdentifier
	for _, c := range tbl.ReferencedColumnNames() {
		if _, ok := inTuple[c]; ok {
			continue
		}
		extended := make([]string, len(accepted.Columns)+1)
		copy(extended, accepted.Columns)
		extended[len(accepted.Columns)] = c
		out = append(out, schema.IndexIdentifier{Table: accepted.Table, Columns: extended})
	}
	return out
}

// combinations returns every non-empty combination (not permutation)
// of cols up to length maxWidth, preserving cols' relative order
// within each combination.
func combinations(cols []string, maxWidth int) [][]string {
	var out [][]string
	n := len(cols)

	var walk func(start int, cur []string)
	walk = func(start int, cur []string) {
		if len(cur) > 0 {
			snapshot := make([]string, len(cur))
			copy(snapshot, cur)
			out = append(out, snapshot)
		}
		if len(cur) == maxWidth {
			return
		}
		for i := start; i < n; i++ {
			next := make([]string, len(cur)+1)
			copy(next, cur)
			next[len(cur)] = cols[i]
			walk(i+1, next)
		}
	}
	walk(0, nil)
	return out
}
