// Package render converts a finished model.AnalyzeResult into the output
// formats spec.md's presentation layer supports: Mermaid flowcharts (this
// file), the wire JSON shape (json.go), and a queryable DuckDB export
// (duckdb.go). Grounded on original_source/crates/flowscope-export.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pondpilot/flowscope/model"
)

// MermaidView selects which of the five diagram styles export_mermaid
// (flowscope-export/src/mermaid.rs) produces.
type MermaidView string

const (
	MermaidAll    MermaidView = "all"
	MermaidScript MermaidView = "script"
	MermaidTable  MermaidView = "table"
	MermaidColumn MermaidView = "column"
	MermaidHybrid MermaidView = "hybrid"
)

// ExportMermaid renders result as a Mermaid diagram in the requested
// view.
func ExportMermaid(result *model.AnalyzeResult, view MermaidView) string {
	switch view {
	case MermaidScript:
		return generateScriptView(result)
	case MermaidTable:
		return generateTableView(result)
	case MermaidColumn:
		return generateColumnView(result)
	case MermaidHybrid:
		return generateHybridView(result)
	default:
		return generateAllViews(result)
	}
}

func generateAllViews(result *model.AnalyzeResult) string {
	sections := []string{
		"# Lineage Diagrams", "",
		"## Script View", "```mermaid", generateScriptView(result), "```", "",
		"## Hybrid View (Scripts + Tables)", "```mermaid", generateHybridView(result), "```", "",
		"## Table View", "```mermaid", generateTableView(result), "```", "",
		"## Column View", "```mermaid", generateColumnView(result), "```",
	}
	return strings.Join(sections, "\n")
}

func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `"`, `\"`)
	return strings.ReplaceAll(label, "\n", " ")
}

func isTableLike(nt model.NodeType) bool {
	return nt == model.NodeTable || nt == model.NodeView || nt == model.NodeCTE
}

func qualifiedOrLabel(n model.Node) string {
	if n.QualifiedName != nil {
		return *n.QualifiedName
	}
	return n.Label
}

type scriptInfo struct {
	sourceName    string
	tablesRead    map[string]bool
	tablesWritten map[string]bool
}

// extractScriptInfo groups statements by source file and, for each
// table/view node they touch, classifies it as read and/or written based
// on whether a DataFlow edge targets or originates at the node.
func extractScriptInfo(result *model.AnalyzeResult) []*scriptInfo {
	byName := map[string]*scriptInfo{}
	var order []string

	for _, stmt := range result.Statements {
		name := "default"
		if stmt.SourceName != nil {
			name = *stmt.SourceName
		}
		info, ok := byName[name]
		if !ok {
			info = &scriptInfo{sourceName: name, tablesRead: map[string]bool{}, tablesWritten: map[string]bool{}}
			byName[name] = info
			order = append(order, name)
		}

		for _, node := range stmt.Nodes {
			if !isTableLike(node.Type) {
				continue
			}
			isWritten := false
			isRead := false
			for _, edge := range stmt.Edges {
				if edge.Type != model.EdgeDataFlow {
					continue
				}
				if edge.To == node.ID {
					isWritten = true
				}
				if edge.From == node.ID {
					isRead = true
				}
			}
			tableName := qualifiedOrLabel(node)
			if isWritten {
				info.tablesWritten[tableName] = true
			}
			if isRead || !isWritten {
				info.tablesRead[tableName] = true
			}
		}
	}

	out := make([]*scriptInfo, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func generateScriptView(result *model.AnalyzeResult) string {
	scripts := extractScriptInfo(result)
	lines := []string{"flowchart LR"}

	for _, s := range scripts {
		lines = append(lines, fmt.Sprintf("    %s[\"%s\"]", sanitizeID(s.sourceName), escapeLabel(s.sourceName)))
	}

	for _, producer := range scripts {
		for _, consumer := range scripts {
			if producer.sourceName == consumer.sourceName {
				continue
			}
			var shared []string
			for _, t := range sortedKeys(producer.tablesWritten) {
				if consumer.tablesRead[t] {
					shared = append(shared, t)
				}
			}
			if len(shared) == 0 {
				continue
			}
			label := strings.Join(shared, ", ")
			if len(shared) > 3 {
				label = strings.Join(shared[:3], ", ") + "..."
			}
			lines = append(lines, fmt.Sprintf("    %s -->|\"%s\"| %s",
				sanitizeID(producer.sourceName), escapeLabel(label), sanitizeID(consumer.sourceName)))
		}
	}

	return strings.Join(lines, "\n")
}

func generateTableView(result *model.AnalyzeResult) string {
	lines := []string{"flowchart LR"}
	tableIDs := map[string]string{}
	edgeSeen := map[string]bool{}

	idFor := func(key string) string {
		if id, ok := tableIDs[key]; ok {
			return id
		}
		id := sanitizeID(key)
		tableIDs[key] = id
		return id
	}

	for _, stmt := range result.Statements {
		var tableNodes []model.Node
		for _, n := range stmt.Nodes {
			if isTableLike(n.Type) {
				tableNodes = append(tableNodes, n)
			}
		}

		for _, node := range tableNodes {
			key := qualifiedOrLabel(node)
			if _, ok := tableIDs[key]; ok {
				continue
			}
			id := idFor(key)
			escaped := escapeLabel(node.Label)
			var shape string
			switch node.Type {
			case model.NodeCTE:
				shape = fmt.Sprintf("([\"%s\"])", escaped)
			case model.NodeView:
				shape = fmt.Sprintf("[/\"%s\"/]", escaped)
			default:
				shape = fmt.Sprintf("[\"%s\"]", escaped)
			}
			lines = append(lines, fmt.Sprintf("    %s%s", id, shape))
		}

		findNode := func(id string) (model.Node, bool) {
			for _, n := range tableNodes {
				if n.ID == id {
					return n, true
				}
			}
			return model.Node{}, false
		}

		for _, edge := range stmt.Edges {
			if edge.Type != model.EdgeDataFlow && edge.Type != model.EdgeDerivation {
				continue
			}
			source, sok := findNode(edge.From)
			target, tok := findNode(edge.To)
			if !sok || !tok {
				continue
			}
			sourceKey := qualifiedOrLabel(source)
			targetKey := qualifiedOrLabel(target)
			if sourceKey == targetKey {
				continue
			}
			edgeKey := sourceKey + "->" + targetKey
			if edgeSeen[edgeKey] {
				continue
			}
			edgeSeen[edgeKey] = true
			lines = append(lines, fmt.Sprintf("    %s --> %s", idFor(sourceKey), idFor(targetKey)))
		}
	}

	return strings.Join(lines, "\n")
}

type columnMapping struct {
	sourceTable, sourceColumn string
	targetTable, targetColumn string
	edgeType                  model.EdgeType
}

func extractColumnMappings(result *model.AnalyzeResult) []columnMapping {
	var mappings []columnMapping

	for _, stmt := range result.Statements {
		var tableNodes, columnNodes []model.Node
		for _, n := range stmt.Nodes {
			switch {
			case isTableLike(n.Type):
				tableNodes = append(tableNodes, n)
			case n.Type == model.NodeColumn:
				columnNodes = append(columnNodes, n)
			}
		}

		columnToTable := map[string]string{}
		for _, edge := range stmt.Edges {
			if edge.Type != model.EdgeOwnership {
				continue
			}
			for _, t := range tableNodes {
				if t.ID == edge.From {
					columnToTable[edge.To] = qualifiedOrLabel(t)
					break
				}
			}
		}

		findColumn := func(id string) (model.Node, bool) {
			for _, c := range columnNodes {
				if c.ID == id {
					return c, true
				}
			}
			return model.Node{}, false
		}

		for _, edge := range stmt.Edges {
			if edge.Type != model.EdgeDerivation && edge.Type != model.EdgeDataFlow {
				continue
			}
			source, sok := findColumn(edge.From)
			target, tok := findColumn(edge.To)
			if !sok || !tok {
				continue
			}
			sourceTable := columnToTable[edge.From]
			if sourceTable == "" {
				sourceTable = "Output"
			}
			targetTable := columnToTable[edge.To]
			if targetTable == "" {
				targetTable = "Output"
			}
			mappings = append(mappings, columnMapping{
				sourceTable: sourceTable, sourceColumn: source.Label,
				targetTable: targetTable, targetColumn: target.Label,
				edgeType: edge.Type,
			})
		}
	}

	return mappings
}

func generateColumnView(result *model.AnalyzeResult) string {
	lines := []string{"flowchart LR"}
	nodesSeen := map[string]bool{}
	edgesSeen := map[string]bool{}

	for _, m := range extractColumnMappings(result) {
		sourceID := sanitizeID(m.sourceTable + "_" + m.sourceColumn)
		targetID := sanitizeID(m.targetTable + "_" + m.targetColumn)
		sourceLabel := m.sourceTable + "." + m.sourceColumn
		targetLabel := m.targetTable + "." + m.targetColumn

		if !nodesSeen[sourceID] {
			nodesSeen[sourceID] = true
			lines = append(lines, fmt.Sprintf("    %s[\"%s\"]", sourceID, escapeLabel(sourceLabel)))
		}
		if !nodesSeen[targetID] {
			nodesSeen[targetID] = true
			lines = append(lines, fmt.Sprintf("    %s[\"%s\"]", targetID, escapeLabel(targetLabel)))
		}

		edgeKey := sourceID + "->" + targetID
		if edgesSeen[edgeKey] {
			continue
		}
		edgesSeen[edgeKey] = true
		label := "flows"
		if m.edgeType == model.EdgeDerivation {
			label = "derived"
		}
		lines = append(lines, fmt.Sprintf("    %s -->|%s| %s", sourceID, label, targetID))
	}

	return strings.Join(lines, "\n")
}

func generateHybridView(result *model.AnalyzeResult) string {
	lines := []string{"flowchart LR"}
	scripts := extractScriptInfo(result)

	scriptIDs := map[string]string{}
	for _, s := range scripts {
		id := sanitizeID("script_" + s.sourceName)
		scriptIDs[s.sourceName] = id
		lines = append(lines, fmt.Sprintf("    %s{\"%s\"}", id, escapeLabel(s.sourceName)))
	}

	tableIDs := map[string]string{}
	for _, stmt := range result.Statements {
		for _, node := range stmt.Nodes {
			if !isTableLike(node.Type) {
				continue
			}
			key := qualifiedOrLabel(node)
			if _, ok := tableIDs[key]; ok {
				continue
			}
			id := sanitizeID("table_" + key)
			tableIDs[key] = id
			lines = append(lines, fmt.Sprintf("    %s[\"%s\"]", id, escapeLabel(node.Label)))
		}
	}

	for _, s := range scripts {
		scriptID := scriptIDs[s.sourceName]
		for _, table := range sortedKeys(s.tablesRead) {
			if tableID, ok := tableIDs[table]; ok {
				lines = append(lines, fmt.Sprintf("    %s --> %s", scriptID, tableID))
			}
		}
		for _, table := range sortedKeys(s.tablesWritten) {
			if tableID, ok := tableIDs[table]; ok {
				lines = append(lines, fmt.Sprintf("    %s --> %s", tableID, scriptID))
			}
		}
	}

	return strings.Join(lines, "\n")
}
