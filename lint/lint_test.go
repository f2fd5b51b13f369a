package lint

import (
	"testing"

	"github.com/pondpilot/flowscope/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableNode(id, qualified string) model.Node {
	return model.Node{ID: id, Type: model.NodeTable, Label: qualified, QualifiedName: &qualified}
}

func TestConfigIsRuleEnabled(t *testing.T) {
	c := Config{Enabled: true, DisabledRules: []string{"LINT_FAN_IN_WRITE"}}
	assert.False(t, c.IsRuleEnabled("lint_fan_in_write"))
	assert.True(t, c.IsRuleEnabled("LINT_CROSS_STMT_CYCLE"))

	off := Config{Enabled: false}
	assert.False(t, off.IsRuleEnabled("LINT_CROSS_STMT_CYCLE"))
}

func TestFanInWriteRuleFlagsRepeatedWriter(t *testing.T) {
	result := &model.AnalyzeResult{
		Statements: []model.StatementLineage{
			{
				StatementIndex: 0,
				Nodes:          []model.Node{tableNode("table_staging.t", "staging.t")},
				Edges:          []model.Edge{{ID: "e1", From: "output_0", To: "table_staging.t", Type: model.EdgeDataFlow}},
			},
			{
				StatementIndex: 1,
				Nodes:          []model.Node{tableNode("table_staging.t", "staging.t")},
				Edges:          []model.Edge{{ID: "e2", From: "output_1", To: "table_staging.t", Type: model.EdgeDataFlow}},
			},
		},
	}

	findings := FanInWriteRule{}.Check(result)
	require.Len(t, findings, 1)
	assert.Equal(t, "LINT_FAN_IN_WRITE", findings[0].Code)
	assert.Contains(t, findings[0].Message, "staging.t")
}

func TestFanInWriteRuleIgnoresSingleWriter(t *testing.T) {
	result := &model.AnalyzeResult{
		Statements: []model.StatementLineage{
			{
				StatementIndex: 0,
				Nodes:          []model.Node{tableNode("table_staging.t", "staging.t")},
				Edges:          []model.Edge{{ID: "e1", From: "output_0", To: "table_staging.t", Type: model.EdgeDataFlow}},
			},
		},
	}
	assert.Empty(t, FanInWriteRule{}.Check(result))
}

func TestCrossStatementCycleRuleDetectsCycle(t *testing.T) {
	result := &model.AnalyzeResult{
		GlobalLineage: model.GlobalLineage{
			Nodes: []model.Node{
				{ID: "table_a", Label: "a"},
				{ID: "table_b", Label: "b"},
			},
			Edges: []model.Edge{
				{ID: "e1", From: "table_a", To: "table_b", Type: model.EdgeCrossStatement},
				{ID: "e2", From: "table_b", To: "table_a", Type: model.EdgeCrossStatement},
			},
		},
	}

	findings := CrossStatementCycleRule{}.Check(result)
	require.Len(t, findings, 1)
	assert.Equal(t, "LINT_CROSS_STMT_CYCLE", findings[0].Code)
}

func TestCrossStatementCycleRuleNoFalsePositiveOnDAG(t *testing.T) {
	result := &model.AnalyzeResult{
		GlobalLineage: model.GlobalLineage{
			Nodes: []model.Node{
				{ID: "table_a", Label: "a"},
				{ID: "table_b", Label: "b"},
				{ID: "table_c", Label: "c"},
			},
			Edges: []model.Edge{
				{ID: "e1", From: "table_a", To: "table_b", Type: model.EdgeCrossStatement},
				{ID: "e2", From: "table_b", To: "table_c", Type: model.EdgeCrossStatement},
			},
		},
	}
	assert.Empty(t, CrossStatementCycleRule{}.Check(result))
}

func TestWildcardWithoutSchemaRuleSurfacesIssue(t *testing.T) {
	idx := 2
	result := &model.AnalyzeResult{
		Issues: []model.Issue{
			{Code: model.CodeApproximateLineage, Severity: model.SeverityWarning, Message: "wildcard expanded without schema", StatementIndex: &idx},
			{Code: model.CodeUnknownTable, Severity: model.SeverityError, Message: "unrelated"},
		},
	}

	findings := WildcardWithoutSchemaRule{}.Check(result)
	require.Len(t, findings, 1)
	assert.Equal(t, &idx, findings[0].StatementIndex)
	assert.NotEmpty(t, findings[0].Hint)
}

func TestRunRespectsDisabledRules(t *testing.T) {
	result := &model.AnalyzeResult{
		Issues: []model.Issue{{Code: model.CodeApproximateLineage, Severity: model.SeverityWarning, Message: "m"}},
	}
	findings := Run(Config{Enabled: true, DisabledRules: []string{"LINT_WILDCARD_NO_SCHEMA"}}, result)
	assert.Empty(t, findings)

	findings2 := Run(DefaultConfig(), result)
	assert.Len(t, findings2, 1)
}
