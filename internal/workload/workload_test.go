package workload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexadvisor/internal/schema"
)

func testTables() map[string]*schema.Table {
	return map[string]*schema.Table{
		"orders":    schema.NewTable("orders", []string{"id", "customer_id", "status", "created_at"}),
		"customers": schema.NewTable("customers", []string{"id", "name", "region"}),
	}
}

func TestParserQualifiesFilterColumns(t *testing.T) {
	p := NewParser(testTables())
	q, err := p.Parse(1, "SELECT * FROM orders o WHERE o.customer_id = 5 AND o.status = 'open'")
	require.NoError(t, err)

	assert.ElementsMatch(t, []schema.ColumnRef{
		{Table: "orders", Column: "customer_id"},
		{Table: "orders", Column: "status"},
	}, q.Attrs.Filters)
}

func TestParserResolvesUnqualifiedColumnAgainstSchema(t *testing.T) {
	p := NewParser(testTables())
	q, err := p.Parse(1, "SELECT * FROM customers WHERE region = 'west' ORDER BY name")
	require.NoError(t, err)

	assert.Equal(t, []schema.ColumnRef{{Table: "customers", Column: "region"}}, q.Attrs.Filters)
	assert.Equal(t, []schema.ColumnRef{{Table: "customers", Column: "name"}}, q.Attrs.Orders)
}

func TestParserGroupByAndUpdateSet(t *testing.T) {
	p := NewParser(testTables())
	q, err := p.Parse(1, "SELECT customer_id FROM orders GROUP BY customer_id")
	require.NoError(t, err)
	assert.Equal(t, []schema.ColumnRef{{Table: "orders", Column: "customer_id"}}, q.Attrs.Groups)

	q2, err := p.Parse(2, "UPDATE orders SET status = 'closed' WHERE id = 9")
	require.NoError(t, err)
	assert.Equal(t, []schema.ColumnRef{{Table: "orders", Column: "status"}}, q2.Attrs.Sets)
	assert.Equal(t, []schema.ColumnRef{{Table: "orders", Column: "id"}}, q2.Attrs.Filters)
}

func TestLoadCaptureLogFiltersSessionsAndStatements(t *testing.T) {
	// Session id is column 5, statement text is column 13 (see
	// sessionIDColumn/queryColumn); the rest are padding columns from
	// a real CSV-format log line_prefix. sess-busy has 12 rows (noise
	// included), so sess-tiny's single row is under 10% of it.
	csv := strings.Join([]string{
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: SELECT 1"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: SELECT 2"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: SELECT 3"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: BEGIN"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: COMMIT"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: BEGIN"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: COMMIT"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: BEGIN"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: COMMIT"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: BEGIN"`,
		`c0,c1,c2,c3,c4,sess-busy,c6,c7,c8,c9,c10,c11,c12,"statement: COMMIT"`,
		`c0,c1,c2,c3,c4,sess-tiny,c6,c7,c8,c9,c10,c11,c12,"statement: SELECT 9"`,
	}, "\n")

	stmts, err := LoadCaptureLog(strings.NewReader(csv))
	require.NoError(t, err)

	var texts []string
	for _, s := range stmts {
		texts = append(texts, s.Text)
	}
	assert.ElementsMatch(t, []string{"SELECT 1", "SELECT 2", "SELECT 3"}, texts)
}
