package schema

import (
	"fmt"
	"strings"
)

// IndexIdentifier canonicalizes (table, ordered column tuple), the
// only thing index equality and hashing are defined on.
type IndexIdentifier struct {
	Table   string
	Columns []string
}

// Key returns a stable string usable as a map key for this
// identifier. Two identifiers are equal iff their Key()s are equal.
func (id IndexIdentifier) Key() string {
	return id.Table + "(" + strings.Join(id.Columns, ",") + ")"
}

// Index is either a real (pre-existing) index, with Name set, or a
// scoring-round candidate, with Name empty. OID is the oracle's handle
// while the index is simulated; HasOID reports whether it is
// currently live.
type Index struct {
	Identifier IndexIdentifier
	Name       string
	OID        int64
	HasOID     bool
	Size       int64
	NumUses    int64
}

func NewRealIndex(name, table string, columns []string, numUses, size int64) *Index {
	return &Index{
		Identifier: IndexIdentifier{Table: table, Columns: append([]string(nil), columns...)},
		Name:       name,
		NumUses:    numUses,
		Size:       size,
	}
}

// IsReal reports whether this Index represents a pre-existing index.
func (idx *Index) IsReal() bool {
	return idx.Name != ""
}

// UsesPerByte is the eviction-queue ranking key: ascending num_uses /
// size means less valuable per byte.
func (idx *Index) UsesPerByte() float64 {
	if idx.Size == 0 {
		return 0
	}
	return float64(idx.NumUses) / float64(idx.Size)
}

// GeneratedName is the deterministic name assigned to an accepted
// candidate: tune_<table>__<col1>_<col2>...
func (id IndexIdentifier) GeneratedName() string {
	return fmt.Sprintf("tune_%s__%s", id.Table, strings.Join(id.Columns, "_"))
}

// CreateStatement renders the CREATE INDEX DDL for a named index over
// this identifier.
func (id IndexIdentifier) CreateStatement(name string) string {
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s);", name, id.Table, strings.Join(id.Columns, ", "))
}

// DropStatement renders the DROP INDEX DDL for a real index.
func (idx *Index) DropStatement() string {
	return fmt.Sprintf("DROP INDEX %s;", idx.Name)
}

// CreateStatement renders this index's own CREATE INDEX statement
// using its Name, or its generated name when Name is empty.
func (idx *Index) CreateStatement() string {
	name := idx.Name
	if name == "" {
		name = idx.Identifier.GeneratedName()
	}
	return idx.Identifier.CreateStatement(name)
}
