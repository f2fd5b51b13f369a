// Package vitessql is the concrete analyzer.Parser implementation: it
// parses SQL text with github.com/dolthub/vitess's MySQL-dialect parser
// (the same parser the teacher embeds for its own query front end) and
// translates the resulting AST into the parser-vendor-agnostic ast
// package the analyzer consumes.
//
// spec.md §6 does not mandate a parser; this package exists so
// cmd/flowscope has a real one to wire up, the way the teacher's own
// engine.go drives sqlparser.ParseOneWithOptions into its planbuilder.
package vitessql

import (
	"fmt"

	"github.com/dolthub/vitess/go/vt/sqlparser"

	"github.com/pondpilot/flowscope/ast"
	"github.com/pondpilot/flowscope/model"
)

// Adapter is a stateless analyzer.Parser backed by sqlparser.
type Adapter struct{}

// New returns a ready-to-use Adapter.
func New() *Adapter { return &Adapter{} }

// ParseStatements splits sql on statement boundaries and parses each
// piece independently, so a syntax error in one statement does not
// prevent the others from being analyzed: a parse failure on one piece
// is reported as an Issue (the statement is skipped) rather than
// aborting the whole batch.
func (a *Adapter) ParseStatements(sql string, dialect model.Dialect) ([]ast.Statement, []model.Issue, error) {
	pieces, err := sqlparser.SplitStatementToPieces(sql)
	if err != nil {
		return nil, nil, fmt.Errorf("splitting SQL into statements: %w", err)
	}

	var statements []ast.Statement
	var issues []model.Issue

	for i, piece := range pieces {
		trimmed := sqlparser.StripComments(piece)
		if isBlank(trimmed) {
			continue
		}

		parsed, perr := sqlparser.Parse(piece)
		if perr != nil {
			issues = append(issues, model.NewError(model.CodeUnsupportedSyntax,
				fmt.Sprintf("statement %d failed to parse: %v", i, perr)))
			continue
		}

		stmt, stmtIssues := convertStatement(parsed)
		issues = append(issues, stmtIssues...)
		statements = append(statements, stmt)
	}

	return statements, issues, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' && r != ';' {
			return false
		}
	}
	return true
}
