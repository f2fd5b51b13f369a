package analyzer

import "github.com/pondpilot/flowscope/model"

// FilterCTENodes removes CTE nodes (and the columns they own) from lineage
// and reconnects their incoming/outgoing edges with bypass edges, so the
// rendered graph shows tables/views connected directly through intermediate
// CTEs (spec.md §4.7). A → CTE → B becomes A → B; chained CTEs collapse
// transitively; fan-in/fan-out is preserved (A → CTE, B → CTE, CTE → C,
// CTE → D becomes A→C, A→D, B→C, B→D).
func FilterCTENodes(lineage *model.StatementLineage) {
	removable := map[string]bool{}
	for _, n := range lineage.Nodes {
		if n.Type == model.NodeCTE {
			removable[n.ID] = true
		}
	}
	if len(removable) == 0 {
		return
	}

	for _, e := range lineage.Edges {
		if e.Type == model.EdgeOwnership && removable[e.From] {
			removable[e.To] = true
		}
	}

	incoming := map[string][]string{}
	outgoing := map[string][]string{}
	incomingEdges := map[string][]model.Edge{}
	outgoingEdges := map[string][]model.Edge{}
	for _, e := range lineage.Edges {
		if e.Type == model.EdgeOwnership {
			continue
		}
		incoming[e.To] = append(incoming[e.To], e.From)
		outgoing[e.From] = append(outgoing[e.From], e.To)
		incomingEdges[e.To] = append(incomingEdges[e.To], e)
		outgoingEdges[e.From] = append(outgoingEdges[e.From], e)
	}

	bypass := map[string]model.Edge{}

	for removableID := range removable {
		sources := findEndpoints(removableID, removable, incoming, map[string]bool{})
		targets := findEndpoints(removableID, removable, outgoing, map[string]bool{})

		ins := incomingEdges[removableID]
		outs := outgoingEdges[removableID]

		for _, src := range sources {
			for _, tgt := range targets {
				if src == tgt {
					continue
				}
				if len(ins) == 0 || len(outs) == 0 {
					edge := model.Edge{ID: "edge_" + src + "_" + tgt, From: src, To: tgt, Type: model.EdgeDataFlow}
					key := edge.Key()
					if _, ok := bypass[key]; !ok {
						bypass[key] = edge
					}
					continue
				}
				for _, out := range outs {
					for _, in := range ins {
						edge := bypassEdge(src, tgt, out, in)
						key := edge.Key()
						if _, ok := bypass[key]; !ok {
							bypass[key] = edge
						}
					}
				}
			}
		}
	}

	for _, e := range lineage.Edges {
		if !removable[e.From] && !removable[e.To] {
			key := e.Key()
			if _, ok := bypass[key]; !ok {
				bypass[key] = e
			}
		}
	}

	newEdges := make([]model.Edge, 0, len(bypass))
	for _, e := range bypass {
		newEdges = append(newEdges, e)
	}

	newNodes := make([]model.Node, 0, len(lineage.Nodes))
	for _, n := range lineage.Nodes {
		if !removable[n.ID] {
			newNodes = append(newNodes, n)
		}
	}

	lineage.Nodes = newNodes
	lineage.Edges = newEdges
}

// findEndpoints walks adjacency (incoming for sources, outgoing for
// targets) from node, recursing through removable nodes until it reaches
// non-removable endpoints. visited guards against cycles among removable
// nodes.
func findEndpoints(node string, removable map[string]bool, adjacency map[string][]string, visited map[string]bool) []string {
	if visited[node] {
		return nil
	}
	visited[node] = true

	if !removable[node] {
		return []string{node}
	}

	var out []string
	for _, next := range adjacency[node] {
		out = append(out, findEndpoints(next, removable, adjacency, visited)...)
	}
	return out
}

// bypassEdge builds the bypass edge from src to tgt, cloning metadata from
// the outgoing edge (out) with the incoming edge (in) as fallback: a
// Derivation on either side wins the edge type, approximate is OR'd, and
// every other metadata field prefers out, falling back to in.
func bypassEdge(src, tgt string, out, in model.Edge) model.Edge {
	edgeType := out.Type
	if out.Type == model.EdgeDerivation || in.Type == model.EdgeDerivation {
		edgeType = model.EdgeDerivation
	}

	expression := out.Expression
	if expression == nil {
		expression = in.Expression
	}
	operation := out.Operation
	if operation == nil {
		operation = in.Operation
	}
	joinType := out.JoinType
	if joinType == nil {
		joinType = in.JoinType
	}
	joinCondition := out.JoinCondition
	if joinCondition == nil {
		joinCondition = in.JoinCondition
	}
	approximate := out.Approximate || in.Approximate

	return model.Edge{
		ID:            "edge_" + src + "_" + tgt,
		From:          src,
		To:            tgt,
		Type:          edgeType,
		Expression:    expression,
		Operation:     operation,
		JoinType:      joinType,
		JoinCondition: joinCondition,
		Approximate:   approximate,
	}
}
