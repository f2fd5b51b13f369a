package analyzer_test

import (
	"testing"

	"github.com/pondpilot/flowscope/analyzer"
	"github.com/pondpilot/flowscope/model"
	"github.com/pondpilot/flowscope/vitessql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSimpleSelect(t *testing.T) {
	sql := "SELECT id, name FROM customers"
	result := analyzer.Analyze(vitessql.New(), model.AnalyzeRequest{
		SQL:     &sql,
		Dialect: model.DialectGeneric,
		Options: model.DefaultAnalyzeOptions(),
	})

	require.NotEmpty(t, result.RequestID)
	require.Len(t, result.Statements, 1)
	assert.Equal(t, "SELECT", result.Statements[0].StatementType)
	assert.False(t, result.Summary.HasErrors)
	assert.Equal(t, 1, result.Summary.StatementCount)

	var sawCustomers bool
	for _, n := range result.Statements[0].Nodes {
		if n.Type == model.NodeTable && n.QualifiedName != nil && *n.QualifiedName == "customers" {
			sawCustomers = true
		}
	}
	assert.True(t, sawCustomers, "customers table node expected")
}

func TestAnalyzeInsertSelectProducesCrossStatementEdge(t *testing.T) {
	sql := `
		INSERT INTO report_summary SELECT id, total FROM orders;
		SELECT * FROM report_summary;
	`
	result := analyzer.Analyze(vitessql.New(), model.AnalyzeRequest{
		SQL:     &sql,
		Dialect: model.DialectGeneric,
		Options: model.DefaultAnalyzeOptions(),
	})

	require.Len(t, result.Statements, 2)
	assert.Equal(t, "INSERT", result.Statements[0].StatementType)

	var foundCrossStatement bool
	for _, e := range result.GlobalLineage.Edges {
		if e.Type == model.EdgeCrossStatement {
			foundCrossStatement = true
			require.NotNil(t, e.ProducerStatement)
			require.NotNil(t, e.ConsumerStatement)
			assert.Equal(t, 0, *e.ProducerStatement)
			assert.Equal(t, 1, *e.ConsumerStatement)
		}
	}
	assert.True(t, foundCrossStatement, "report_summary should link the two statements")
}

func TestAnalyzeUnparsableSQLYieldsErrorIssue(t *testing.T) {
	sql := "SELEC7 !! FROM FROM"
	result := analyzer.Analyze(vitessql.New(), model.AnalyzeRequest{
		SQL:     &sql,
		Dialect: model.DialectGeneric,
		Options: model.DefaultAnalyzeOptions(),
	})

	assert.True(t, result.Summary.HasErrors)
	require.NotEmpty(t, result.Issues)
	assert.Equal(t, model.CodeUnsupportedSyntax, result.Issues[0].Code)
}

func TestAnalyzeNoInputReturnsSingleError(t *testing.T) {
	result := analyzer.Analyze(vitessql.New(), model.AnalyzeRequest{})
	require.Len(t, result.Issues, 1)
	assert.True(t, result.Summary.HasErrors)
	assert.Empty(t, result.Statements)
}

func TestAnalyzeWithSchemaResolvesWildcard(t *testing.T) {
	sql := "SELECT * FROM orders"
	result := analyzer.Analyze(vitessql.New(), model.AnalyzeRequest{
		SQL:     &sql,
		Dialect: model.DialectGeneric,
		Options: model.DefaultAnalyzeOptions(),
		Schema: &model.SchemaMetadata{
			Tables: []model.SchemaTable{
				{Name: "orders", Columns: []model.ColumnSchema{{Name: "id"}, {Name: "total"}}},
			},
		},
	})

	require.NotNil(t, result.ResolvedSchema)
	var names []string
	for _, n := range result.Statements[0].Nodes {
		if n.Type == model.NodeColumn {
			names = append(names, n.Label)
		}
	}
	assert.Contains(t, names, "id")
	assert.Contains(t, names, "total")
}
