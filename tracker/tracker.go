// Package tracker implements the cross-statement dependency tracker
// (spec.md §4.2): a single value per analyzed batch that records which
// statements produce which relations (CREATE/INSERT) and which consume
// them (SELECT/JOIN/subquery), and synthesizes the CrossStatement self-loop
// edges that tie a batch's statements together in the global lineage graph.
//
// A Tracker is not safe for concurrent use; the analyzer owns exactly one
// per Analyze call and feeds it statements in order.
package tracker

import (
	"fmt"
	"sort"

	"github.com/pondpilot/flowscope/internal/helpers"
	"github.com/pondpilot/flowscope/model"
)

// Tracker accumulates producer/consumer relationships across a batch.
type Tracker struct {
	producedTables map[string]int
	producedViews  map[string]bool
	consumedTables map[string][]int
	allRelations   map[string]bool
	allCTEs        map[string]bool
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		producedTables: make(map[string]int),
		producedViews:  make(map[string]bool),
		consumedTables: make(map[string][]int),
		allRelations:   make(map[string]bool),
		allCTEs:        make(map[string]bool),
	}
}

// RecordProduced marks canonical as produced by statementIdx. If the table
// was already produced by an earlier statement, the later one wins.
func (t *Tracker) RecordProduced(canonical string, statementIdx int) {
	t.producedTables[canonical] = statementIdx
	t.allRelations[canonical] = true
}

// RecordViewProduced marks canonical as a view produced by statementIdx.
func (t *Tracker) RecordViewProduced(canonical string, statementIdx int) {
	t.producedViews[canonical] = true
	t.RecordProduced(canonical, statementIdx)
}

// RecordConsumed marks canonical as read by statementIdx. A table may be
// consumed by any number of statements.
func (t *Tracker) RecordConsumed(canonical string, statementIdx int) {
	t.consumedTables[canonical] = append(t.consumedTables[canonical], statementIdx)
	t.allRelations[canonical] = true
}

// RecordCTE records a CTE name for global bookkeeping. CTEs are tracked
// separately from tables/views: their lifetime is statement-scoped, so
// they never participate in cross-statement edges.
func (t *Tracker) RecordCTE(name string) {
	t.allCTEs[name] = true
}

// WasProduced reports whether canonical was produced by some statement
// already seen.
func (t *Tracker) WasProduced(canonical string) bool {
	_, ok := t.producedTables[canonical]
	return ok
}

// ProducerIndex returns the statement index that produced canonical, if any.
func (t *Tracker) ProducerIndex(canonical string) (int, bool) {
	idx, ok := t.producedTables[canonical]
	return idx, ok
}

// Remove un-tracks canonical as a producer (used by DROP TABLE/VIEW). It
// does not remove canonical from AllRelations: the relation was still
// referenced somewhere in the batch.
func (t *Tracker) Remove(canonical string) {
	delete(t.producedTables, canonical)
	delete(t.producedViews, canonical)
}

// RelationIdentity returns the node id and NodeType for canonical,
// defaulting to NodeTable for anything never seen as a produced view.
func (t *Tracker) RelationIdentity(canonical string) (string, model.NodeType) {
	if t.producedViews[canonical] {
		return helpers.ViewNodeID(canonical), model.NodeView
	}
	return helpers.TableNodeID(canonical), model.NodeTable
}

// RelationNodeID is a convenience wrapper around RelationIdentity.
func (t *Tracker) RelationNodeID(canonical string) string {
	id, _ := t.RelationIdentity(canonical)
	return id
}

// BuildCrossStatementEdges synthesizes the CrossStatement self-loop edges
// spec.md §4.2 describes: for every (producer, consumer) pair where
// consumer > producer, one self-loop edge on the relation's node.
//
// Results are sorted by (from, producerIdx, consumerIdx) so that output is
// deterministic across runs regardless of Go's unordered map iteration.
func (t *Tracker) BuildCrossStatementEdges() []model.Edge {
	var edges []model.Edge
	for canonical, consumers := range t.consumedTables {
		producerIdx, ok := t.producedTables[canonical]
		if !ok {
			continue
		}
		nodeID := t.RelationNodeID(canonical)
		for _, consumerIdx := range consumers {
			if consumerIdx <= producerIdx {
				continue
			}
			p, c := producerIdx, consumerIdx
			edges = append(edges, model.Edge{
				ID:                helpers.CrossStatementEdgeID(p, c),
				From:              nodeID,
				To:                nodeID,
				Type:              model.EdgeCrossStatement,
				ProducerStatement: &p,
				ConsumerStatement: &c,
			})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if *edges[i].ProducerStatement != *edges[j].ProducerStatement {
			return *edges[i].ProducerStatement < *edges[j].ProducerStatement
		}
		return *edges[i].ConsumerStatement < *edges[j].ConsumerStatement
	})
	return edges
}

// AllRelations returns every canonical relation name the tracker has seen,
// sorted for deterministic output.
func (t *Tracker) AllRelations() []string {
	out := make([]string, 0, len(t.allRelations))
	for k := range t.allRelations {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String renders a summary for debugging/log output.
func (t *Tracker) String() string {
	return fmt.Sprintf("tracker(produced=%d consumed=%d relations=%d)",
		len(t.producedTables), len(t.consumedTables), len(t.allRelations))
}
