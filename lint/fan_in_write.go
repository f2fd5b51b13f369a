package lint

import (
	"fmt"
	"sort"

	"github.com/pondpilot/flowscope/model"
)

// FanInWriteRule flags a table/view that more than one statement in the
// batch writes to — a common sign of an unintended overwrite chain or a
// copy-pasted INSERT target.
type FanInWriteRule struct{}

func (FanInWriteRule) Code() string { return "LINT_FAN_IN_WRITE" }
func (FanInWriteRule) Name() string { return "Table written by more than one statement" }

func (r FanInWriteRule) Check(result *model.AnalyzeResult) []Finding {
	writers := map[string]map[int]bool{}

	for idx, stmt := range result.Statements {
		written := map[string]bool{}
		for _, edge := range stmt.Edges {
			if edge.Type != model.EdgeDataFlow {
				continue
			}
			if target := findTableNode(stmt.Nodes, edge.To); target != "" {
				written[target] = true
			}
		}
		for name := range written {
			if writers[name] == nil {
				writers[name] = map[int]bool{}
			}
			writers[name][idx] = true
		}
	}

	var names []string
	for name, stmts := range writers {
		if len(stmts) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var findings []Finding
	for _, name := range names {
		stmtIdxs := sortedIntKeys(writers[name])
		findings = append(findings, Finding{
			Code:     r.Code(),
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("table %q is written by %d statements (%v)", name, len(stmtIdxs), stmtIdxs),
			Hint:     "confirm the repeated writes are intentional, not a copy-pasted target",
		})
	}
	return findings
}

func findTableNode(nodes []model.Node, id string) string {
	for _, n := range nodes {
		if n.ID != id {
			continue
		}
		if n.Type != model.NodeTable && n.Type != model.NodeView {
			return ""
		}
		if n.QualifiedName != nil {
			return *n.QualifiedName
		}
		return n.Label
	}
	return ""
}

func sortedIntKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
