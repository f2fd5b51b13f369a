// Package helpers holds the small, stateless utilities the schema registry
// and analyzer packages both need: identifier normalization, node-id
// synthesis, source-span search, and expression type inference. None of
// these types carry analysis state; that lives in schema.Registry,
// tracker.Tracker and analyzer.Context.
package helpers

import (
	"fmt"
	"strings"

	"github.com/pondpilot/flowscope/model"
)

// NormalizeIdentifier folds name per the batch's case-sensitivity policy.
// "preserve" and "fold_if_unquoted" both pass the name through unchanged
// here: FlowScope's generic AST does not carry quoting information past the
// parser adapter, so "fold_if_unquoted" degrades to "preserve" the same way
// the original implementation's fallback path does when quoting is unknown.
func NormalizeIdentifier(name string, policy model.CaseSensitivity) string {
	switch policy {
	case model.CaseLower:
		return strings.ToLower(name)
	case model.CaseUpper:
		return strings.ToUpper(name)
	default:
		return name
	}
}

// TableNodeID synthesizes a stable `table_<canonical>` id.
func TableNodeID(canonical string) string { return "table_" + canonical }

// ViewNodeID synthesizes a stable `view_<canonical>` id.
func ViewNodeID(canonical string) string { return "view_" + canonical }

// CTENodeID synthesizes a stable `cte_<name>` id.
func CTENodeID(name string) string { return "cte_" + name }

// ColumnNodeID synthesizes a stable `col_<owner_id>_<normalized_name>` id.
func ColumnNodeID(ownerID, normalizedName string) string {
	return fmt.Sprintf("col_%s_%s", ownerID, normalizedName)
}

// OutputNodeID synthesizes the per-statement synthetic output node id.
func OutputNodeID(statementIdx int) string {
	return fmt.Sprintf("output_%d", statementIdx)
}

// CrossStatementEdgeID synthesizes the id of a cross-statement self-loop
// edge, mirroring the original implementation's `cross_{producer}_{consumer}`
// convention.
func CrossStatementEdgeID(producerIdx, consumerIdx int) string {
	return fmt.Sprintf("cross_%d_%d", producerIdx, consumerIdx)
}

// QualifiedName joins non-empty catalog/schema/name parts with dots, the
// canonical textual form stored on ResolvedSchemaEntry/Node.QualifiedName.
func QualifiedName(catalog, schema, name string) string {
	parts := make([]string, 0, 3)
	if catalog != "" {
		parts = append(parts, catalog)
	}
	if schema != "" {
		parts = append(parts, schema)
	}
	parts = append(parts, name)
	return strings.Join(parts, ".")
}
