// Package analyzer implements spec.md's core lineage analysis: per-
// statement graph construction (context.go, batch.go, select.go,
// expression.go, statement.go), CTE-bypass graph post-processing
// (transform.go), and the top-level batch driver that ties parsing,
// schema resolution, and cross-statement tracking together into one
// AnalyzeResult (this file).
package analyzer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pondpilot/flowscope/ast"
	"github.com/pondpilot/flowscope/model"
	"github.com/pondpilot/flowscope/schema"
)

// log is the package-level logger, matching the teacher auth package's
// logrus.Entry-per-subsystem convention. Callers that want their own
// sink can still set logrus's global output/formatter before calling
// Analyze; this package never constructs its own *logrus.Logger.
var log = logrus.WithField("system", "analyzer")

// Parser turns one source file's SQL text into the statements it
// contains. Concrete parsers (the vitess-backed adapter in vitessql, or a
// test double) implement this; the analyzer package never imports a
// parser directly, matching spec.md §6's "no parser is mandated" stance.
type Parser interface {
	ParseStatements(sql string, dialect model.Dialect) ([]ast.Statement, []model.Issue, error)
}

// Analyze runs the full pipeline spec.md §6 describes: parse every source
// file, analyze each statement in order against a shared schema registry
// and cross-statement tracker, optionally bypass CTE nodes per statement,
// optionally assemble the cross-statement global lineage graph, and roll
// everything up into one AnalyzeResult.
func Analyze(parser Parser, req model.AnalyzeRequest) model.AnalyzeResult {
	files := req.Files
	if req.SQL != nil {
		name := ""
		if req.SourceName != nil {
			name = *req.SourceName
		}
		files = []model.SourceFile{{Name: name, Content: *req.SQL}}
	}
	if len(files) == 0 {
		return model.FromError(model.CodeUnsupportedSyntax, "no SQL text was provided")
	}

	requestID := uuid.New().String()
	fields := logrus.Fields{"request_id": requestID, "dialect": req.Dialect, "file_count": len(files)}
	log.WithFields(fields).Debug("starting batch analysis")

	opts := req.Options
	registry := schema.New(req.Schema)
	batch := newBatch(req.Dialect, registry, opts)

	var statements []model.StatementLineage
	stmtIndex := 0

	for _, f := range files {
		var sourceName *string
		if f.Name != "" {
			name := f.Name
			sourceName = &name
		}

		parsed, parseIssues, err := parser.ParseStatements(f.Content, req.Dialect)
		for _, issue := range parseIssues {
			batch.addIssue(issue)
		}
		if err != nil {
			batch.addIssue(model.NewError(model.CodeUnsupportedSyntax,
				fmt.Sprintf("failed to parse %s: %v", displayName(f.Name), err)))
			continue
		}

		for _, stmt := range parsed {
			lineage := batch.AnalyzeStatement(stmtIndex, stmt, sourceName)
			if opts.FilterCTEs {
				FilterCTENodes(&lineage)
			}
			statements = append(statements, lineage)
			stmtIndex++
		}
	}

	result := model.AnalyzeResult{
		RequestID:  requestID,
		Statements: statements,
		Issues:     batch.issues,
	}

	if opts.IncludeGlobalLineage {
		result.GlobalLineage = buildGlobalLineage(batch)
	}

	result.Summary = buildSummary(statements, batch.issues)

	if req.Schema != nil {
		snapshot := registry.Snapshot()
		result.ResolvedSchema = &model.ResolvedSchema{Tables: snapshot}
	}

	log.WithFields(logrus.Fields{
		"request_id":       requestID,
		"statement_count":  result.Summary.StatementCount,
		"issue_count":      len(result.Issues),
		"has_errors":       result.Summary.HasErrors,
	}).Info("batch analysis complete")

	return result
}

func displayName(name string) string {
	if name == "" {
		return "<inline SQL>"
	}
	return name
}

// buildGlobalLineage assembles the cross-statement dependency graph: one
// node per relation the tracker has seen, plus the CrossStatement
// self-loop edges it has accumulated.
func buildGlobalLineage(b *Batch) model.GlobalLineage {
	var nodes []model.Node
	for _, canonical := range b.tracker.AllRelations() {
		nodeID, nodeType := b.tracker.RelationIdentity(canonical)
		nodes = append(nodes, model.Node{
			ID:            nodeID,
			Type:          nodeType,
			Label:         relationLabel(canonical),
			QualifiedName: strPtr(canonical),
		})
	}
	return model.GlobalLineage{
		Nodes: nodes,
		Edges: b.tracker.BuildCrossStatementEdges(),
	}
}

// buildSummary rolls up statement-level and issue-level stats the way
// spec.md §6's response shape expects: table/column counts are counted
// over the union of node ids across every statement, since the same
// relation/column can legitimately appear in more than one statement.
func buildSummary(statements []model.StatementLineage, issues []model.Issue) model.Summary {
	tableIDs := map[string]bool{}
	columnIDs := map[string]bool{}
	joinCount := 0
	complexity := 1

	for _, stmt := range statements {
		joinCount += stmt.JoinCount
		if stmt.ComplexityScore > complexity {
			complexity = stmt.ComplexityScore
		}
		for _, n := range stmt.Nodes {
			switch n.Type {
			case model.NodeTable, model.NodeView, model.NodeCTE:
				tableIDs[n.ID] = true
			case model.NodeColumn:
				columnIDs[n.ID] = true
			}
		}
	}

	counts := model.IssueCount{}
	for _, issue := range issues {
		switch issue.Severity {
		case model.SeverityError:
			counts.Errors++
		case model.SeverityWarning:
			counts.Warnings++
		case model.SeverityInfo:
			counts.Infos++
		}
	}

	return model.Summary{
		StatementCount:  len(statements),
		TableCount:      len(tableIDs),
		ColumnCount:     len(columnIDs),
		JoinCount:       joinCount,
		ComplexityScore: complexity,
		IssueCount:      counts,
		HasErrors:       counts.Errors > 0,
	}
}
