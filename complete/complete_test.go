package complete

import (
	"testing"

	"github.com/pondpilot/flowscope/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaFor(table string, cols ...string) *model.SchemaMetadata {
	var columns []model.ColumnSchema
	for _, c := range cols {
		columns = append(columns, model.ColumnSchema{Name: c})
	}
	return &model.SchemaMetadata{
		AllowImplied: true,
		Tables:       []model.SchemaTable{{Name: table, Columns: columns}},
	}
}

func TestDetectClauseLastKeywordWins(t *testing.T) {
	sql := "SELECT a, b FROM orders WHERE "
	tokens := tokenize(sql)
	clause := detectClause(tokens, len(sql))
	assert.Equal(t, ClauseWhere, clause)
}

func TestDetectClauseGroupByNeedsBy(t *testing.T) {
	sql := "SELECT a FROM orders GROUP "
	tokens := tokenize(sql)
	// "GROUP" alone (no "BY" yet) should not flip the clause.
	clause := detectClause(tokens, len(sql))
	assert.Equal(t, ClauseFrom, clause)

	sql2 := "SELECT a FROM orders GROUP BY "
	tokens2 := tokenize(sql2)
	clause2 := detectClause(tokens2, len(sql2))
	assert.Equal(t, ClauseGroupBy, clause2)
}

func TestCompleteTablesAndColumns(t *testing.T) {
	sql := "SELECT  FROM orders o WHERE o."
	req := Request{
		SQL:          sql,
		CursorOffset: len(sql),
		Schema:       schemaFor("orders", "id", "customer_id"),
	}
	result := Complete(req)

	require.Len(t, result.TablesInScope, 1)
	assert.Equal(t, "orders", result.TablesInScope[0].Name)
	assert.Equal(t, "o", result.TablesInScope[0].Alias)
	assert.True(t, result.TablesInScope[0].Resolved)

	var labels []string
	for _, item := range result.Items {
		if item.Kind == ItemColumn {
			labels = append(labels, item.Label)
		}
	}
	assert.ElementsMatch(t, []string{"id", "customer_id"}, labels)
}

func TestCompleteAmbiguousColumnQualified(t *testing.T) {
	sql := "SELECT  FROM orders o JOIN order_items oi ON o.id = oi.order_id WHERE "
	schema := &model.SchemaMetadata{
		AllowImplied: true,
		Tables: []model.SchemaTable{
			{Name: "orders", Columns: []model.ColumnSchema{{Name: "id"}}},
			{Name: "order_items", Columns: []model.ColumnSchema{{Name: "id"}, {Name: "order_id"}}},
		},
	}
	result := Complete(Request{SQL: sql, CursorOffset: len(sql), Schema: schema})

	var qualified []string
	for _, item := range result.Items {
		if item.Kind == ItemColumn {
			qualified = append(qualified, item.Label)
		}
	}
	assert.Contains(t, qualified, "o.id")
	assert.Contains(t, qualified, "oi.id")
	assert.Contains(t, qualified, "order_id", "unambiguous column stays unqualified")
}

func TestCompleteOffsetClamped(t *testing.T) {
	sql := "SELECT * FROM orders"
	result := Complete(Request{SQL: sql, CursorOffset: 10000})
	assert.Equal(t, ClauseFrom, result.Clause)

	resultNeg := Complete(Request{SQL: sql, CursorOffset: -5})
	assert.Equal(t, ClauseUnknown, resultNeg.Clause)
}

func TestParseTableNameAndAliasWithSchema(t *testing.T) {
	tokens := tokenize("public.orders AS o")
	name, alias, next := parseTableNameAndAlias(tokens, 0)
	assert.Equal(t, "public.orders", name)
	assert.Equal(t, "o", alias)
	assert.Equal(t, len(tokens), next)
}

func TestItemDedup(t *testing.T) {
	items := buildItems(ClauseFrom, []TableRef{
		{Name: "orders", Canonical: "orders"},
		{Name: "orders", Canonical: "orders"},
	}, nil)
	count := 0
	for _, it := range items {
		if it.Kind == ItemTable && it.Label == "orders" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
