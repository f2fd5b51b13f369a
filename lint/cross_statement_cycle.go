package lint

import (
	"fmt"
	"sort"

	"github.com/pondpilot/flowscope/model"
)

// CrossStatementCycleRule flags a cycle in the batch's cross-statement
// dependency graph: a relation that transitively produces data consumed
// by a relation that, in turn, transitively produces data it consumes.
// Table-level SQL lineage is normally a DAG; a cycle usually means two
// statements are swapping data back and forth through a staging table.
type CrossStatementCycleRule struct{}

func (CrossStatementCycleRule) Code() string { return "LINT_CROSS_STMT_CYCLE" }
func (CrossStatementCycleRule) Name() string { return "Cross-statement dependency cycle" }

func (r CrossStatementCycleRule) Check(result *model.AnalyzeResult) []Finding {
	adjacency := map[string][]string{}
	labels := map[string]string{}
	for _, n := range result.GlobalLineage.Nodes {
		labels[n.ID] = n.Label
	}
	for _, e := range result.GlobalLineage.Edges {
		if e.Type != model.EdgeCrossStatement || e.From == e.To {
			continue
		}
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	var nodeIDs []string
	for id := range adjacency {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	visited := map[string]bool{}
	var findings []Finding
	reported := map[string]bool{}

	var visit func(node string, stack []string, onStack map[string]bool)
	visit = func(node string, stack []string, onStack map[string]bool) {
		visited[node] = true
		onStack[node] = true
		stack = append(stack, node)

		for _, next := range adjacency[node] {
			if onStack[next] {
				cycleKey := cycleSignature(stack, next)
				if !reported[cycleKey] {
					reported[cycleKey] = true
					findings = append(findings, Finding{
						Code:     r.Code(),
						Severity: model.SeverityWarning,
						Message:  fmt.Sprintf("cross-statement dependency cycle detected: %s", describeCycle(stack, next, labels)),
						Hint:     "break the cycle by splitting the shared table or reordering statements",
					})
				}
				continue
			}
			if !visited[next] {
				visit(next, stack, onStack)
			}
		}

		onStack[node] = false
	}

	for _, id := range nodeIDs {
		if !visited[id] {
			visit(id, nil, map[string]bool{})
		}
	}

	return findings
}

func cycleSignature(stack []string, closingNode string) string {
	for i, n := range stack {
		if n == closingNode {
			sub := append([]string{}, stack[i:]...)
			sort.Strings(sub)
			return fmt.Sprintf("%v", sub)
		}
	}
	return closingNode
}

func describeCycle(stack []string, closingNode string, labels map[string]string) string {
	start := 0
	for i, n := range stack {
		if n == closingNode {
			start = i
			break
		}
	}
	path := stack[start:]
	out := ""
	for i, n := range path {
		if i > 0 {
			out += " -> "
		}
		if label, ok := labels[n]; ok {
			out += label
		} else {
			out += n
		}
	}
	out += " -> " + labels[closingNode]
	return out
}
