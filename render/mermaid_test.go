package render

import (
	"testing"

	"github.com/pondpilot/flowscope/model"
	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func sampleResult() *model.AnalyzeResult {
	name := "report.sql"
	return &model.AnalyzeResult{
		Statements: []model.StatementLineage{
			{
				StatementIndex: 0,
				SourceName:     &name,
				Nodes: []model.Node{
					{ID: "table_public.orders", Type: model.NodeTable, Label: "orders", QualifiedName: strp("public.orders")},
					{ID: "table_public.report", Type: model.NodeTable, Label: "report", QualifiedName: strp("public.report")},
					{ID: "col_table_public.orders_id", Type: model.NodeColumn, Label: "id"},
					{ID: "col_table_public.report_id", Type: model.NodeColumn, Label: "id"},
				},
				Edges: []model.Edge{
					{ID: "e1", From: "table_public.orders", To: "table_public.report", Type: model.EdgeDataFlow},
					{ID: "e2", From: "table_public.orders", To: "col_table_public.orders_id", Type: model.EdgeOwnership},
					{ID: "e3", From: "table_public.report", To: "col_table_public.report_id", Type: model.EdgeOwnership},
					{ID: "e4", From: "col_table_public.orders_id", To: "col_table_public.report_id", Type: model.EdgeDerivation},
				},
			},
		},
	}
}

func TestSanitizeIDReplacesNonAlnum(t *testing.T) {
	assert.Equal(t, "public_orders", sanitizeID("public.orders"))
}

func TestEscapeLabelQuotesAndNewlines(t *testing.T) {
	assert.Equal(t, `a \"b\" c`, escapeLabel(`a "b" c`))
	assert.Equal(t, "a b", escapeLabel("a\nb"))
}

func TestExportMermaidTableView(t *testing.T) {
	out := ExportMermaid(sampleResult(), MermaidTable)
	assert.Contains(t, out, "flowchart LR")
	assert.Contains(t, out, `public_orders["orders"]`)
	assert.Contains(t, out, `public_report["report"]`)
	assert.Contains(t, out, "public_orders --> public_report")
}

func TestExportMermaidColumnView(t *testing.T) {
	out := ExportMermaid(sampleResult(), MermaidColumn)
	assert.Contains(t, out, "public.orders.id")
	assert.Contains(t, out, "public.report.id")
	assert.Contains(t, out, "derived")
}

func TestExportMermaidAllConcatenatesSections(t *testing.T) {
	out := ExportMermaid(sampleResult(), MermaidAll)
	assert.Contains(t, out, "## Script View")
	assert.Contains(t, out, "## Hybrid View (Scripts + Tables)")
	assert.Contains(t, out, "## Table View")
	assert.Contains(t, out, "## Column View")
}

func TestExportMermaidEmptyResult(t *testing.T) {
	empty := &model.AnalyzeResult{}
	for _, view := range []MermaidView{MermaidAll, MermaidScript, MermaidTable, MermaidColumn, MermaidHybrid} {
		out := ExportMermaid(empty, view)
		assert.NotPanics(t, func() {})
		assert.NotEmpty(t, out)
	}
}
