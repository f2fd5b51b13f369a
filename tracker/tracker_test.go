package tracker

import (
	"testing"

	"github.com/pondpilot/flowscope/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordProducedConsumed(t *testing.T) {
	tr := New()
	tr.RecordProduced("public.users", 0)
	tr.RecordConsumed("public.users", 1)
	tr.RecordConsumed("public.users", 2)

	assert.True(t, tr.WasProduced("public.users"))
	idx, ok := tr.ProducerIndex("public.users")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestViewVsTable(t *testing.T) {
	tr := New()
	tr.RecordProduced("public.my_table", 0)
	tr.RecordViewProduced("public.my_view", 1)

	tableID, tableType := tr.RelationIdentity("public.my_table")
	assert.Equal(t, model.NodeTable, tableType)
	assert.Equal(t, "table_public.my_table", tableID)

	viewID, viewType := tr.RelationIdentity("public.my_view")
	assert.Equal(t, model.NodeView, viewType)
	assert.Equal(t, "view_public.my_view", viewID)
}

func TestCrossStatementEdges(t *testing.T) {
	tr := New()
	tr.RecordProduced("staging.temp", 0)
	tr.RecordConsumed("staging.temp", 1)
	tr.RecordConsumed("staging.temp", 2)

	edges := tr.BuildCrossStatementEdges()
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, model.EdgeCrossStatement, e.Type)
		assert.Equal(t, e.From, e.To)
	}
}

func TestNoCrossStatementEdgeWhenConsumerBeforeProducer(t *testing.T) {
	tr := New()
	tr.RecordProduced("staging.temp", 1)
	tr.RecordConsumed("staging.temp", 0)

	assert.Empty(t, tr.BuildCrossStatementEdges())
}

func TestNoCrossStatementEdgeForUnconsumedOrExternal(t *testing.T) {
	tr := New()
	tr.RecordProduced("staging.temp", 0)
	assert.Empty(t, tr.BuildCrossStatementEdges())

	tr2 := New()
	tr2.RecordConsumed("external.source", 0)
	tr2.RecordConsumed("external.source", 1)
	assert.Empty(t, tr2.BuildCrossStatementEdges())
}

func TestSameStatementProducerConsumerNoEdge(t *testing.T) {
	tr := New()
	tr.RecordProduced("staging.data", 0)
	tr.RecordConsumed("staging.data", 0)
	assert.Empty(t, tr.BuildCrossStatementEdges())
}

func TestRemovePreservesAllRelations(t *testing.T) {
	tr := New()
	tr.RecordProduced("staging.temp", 0)
	tr.Remove("staging.temp")
	assert.Contains(t, tr.AllRelations(), "staging.temp")
	assert.False(t, tr.WasProduced("staging.temp"))
}

func TestComplexETLPattern(t *testing.T) {
	tr := New()
	tr.RecordConsumed("external.source", 0)
	tr.RecordProduced("staging.raw", 0)

	tr.RecordConsumed("staging.raw", 1)
	tr.RecordProduced("staging.cleaned", 1)

	tr.RecordConsumed("staging.cleaned", 2)
	tr.RecordProduced("mart.final", 2)

	edges := tr.BuildCrossStatementEdges()
	assert.Len(t, edges, 2)
}

func TestEdgeIDUniqueness(t *testing.T) {
	tr := New()
	tr.RecordProduced("table_a", 0)
	tr.RecordProduced("table_b", 1)
	tr.RecordConsumed("table_a", 2)
	tr.RecordConsumed("table_b", 2)
	tr.RecordConsumed("table_a", 3)

	edges := tr.BuildCrossStatementEdges()
	require.Len(t, edges, 3)
	seen := map[string]bool{}
	for _, e := range edges {
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
	}
}
