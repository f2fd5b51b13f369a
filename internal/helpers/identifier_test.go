package helpers

import (
	"testing"

	"github.com/pondpilot/flowscope/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "orders", NormalizeIdentifier("Orders", model.CaseLower))
	assert.Equal(t, "ORDERS", NormalizeIdentifier("orders", model.CaseUpper))
	assert.Equal(t, "Orders", NormalizeIdentifier("Orders", model.CasePreserve))
	assert.Equal(t, "Orders", NormalizeIdentifier("Orders", model.CaseFoldIfUnquoted))
}

func TestNodeIDConventions(t *testing.T) {
	assert.Equal(t, "table_orders", TableNodeID("orders"))
	assert.Equal(t, "view_v_orders", ViewNodeID("v_orders"))
	assert.Equal(t, "cte_recent", CTENodeID("recent"))
	assert.Equal(t, "col_table_orders_id", ColumnNodeID("table_orders", "id"))
	assert.Equal(t, "output_0", OutputNodeID(0))
	assert.Equal(t, "cross_0_2", CrossStatementEdgeID(0, 2))
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "orders", QualifiedName("", "", "orders"))
	assert.Equal(t, "public.orders", QualifiedName("", "public", "orders"))
	assert.Equal(t, "db.public.orders", QualifiedName("db", "public", "orders"))
}

func TestFindIdentifierSpan(t *testing.T) {
	src := "SELECT a.id FROM orders a JOIN order_items oi ON a.id = oi.order_id"
	span := FindIdentifierSpan(src, "orders", 0)
	require.NotNil(t, span)
	assert.Equal(t, "orders", src[span.Start:span.End])

	// must not match the "orders" inside "order_items"/"order_id"
	span2 := FindIdentifierSpan(src, "order_id", 0)
	require.NotNil(t, span2)
	assert.Equal(t, "order_id", src[span2.Start:span2.End])
}

func TestFindIdentifierSpanNotFound(t *testing.T) {
	assert.Nil(t, FindIdentifierSpan("SELECT 1", "missing", 0))
}
