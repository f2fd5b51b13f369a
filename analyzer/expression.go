package analyzer

import (
	"fmt"
	"strings"

	"github.com/pondpilot/flowscope/ast"
	"github.com/pondpilot/flowscope/model"
)

// maxRecursionDepth caps expression/subquery recursion so a pathological
// or adversarial query degrades to a single info Issue instead of a stack
// overflow (spec.md §4.4 / §8).
const maxRecursionDepth = 100

// ExpressionWalker analyzes scalar expressions for a single statement:
// subquery discovery, column-reference extraction, aggregation
// classification, GROUP BY normalization, output-column naming, and
// filter-predicate capture.
type ExpressionWalker struct {
	batch *Batch
	ctx   *Context
}

// NewExpressionWalker returns a walker bound to batch/ctx.
func NewExpressionWalker(batch *Batch, ctx *Context) *ExpressionWalker {
	return &ExpressionWalker{batch: batch, ctx: ctx}
}

// Analyze discovers and recursively analyzes every subquery nested in
// expr. It does not validate the column references expr makes.
func (w *ExpressionWalker) Analyze(expr ast.Expr) {
	w.visitForSubqueries(expr, 0)
}

func (w *ExpressionWalker) visitForSubqueries(expr ast.Expr, depth int) {
	if expr == nil {
		return
	}
	if depth > maxRecursionDepth {
		w.batch.addIssue(model.NewInfo(model.CodeUnsupportedSyntax,
			"expression nesting exceeded the supported depth; lineage for the remainder was skipped").
			WithStatement(w.ctx.StatementIndex))
		return
	}
	switch e := expr.(type) {
	case *ast.BinaryOp:
		w.visitForSubqueries(e.Left, depth+1)
		w.visitForSubqueries(e.Right, depth+1)
	case *ast.UnaryOp:
		w.visitForSubqueries(e.Expr, depth+1)
	case *ast.Nested:
		w.visitForSubqueries(e.Expr, depth+1)
	case *ast.Case:
		w.visitForSubqueries(e.Operand, depth+1)
		for _, c := range e.Conditions {
			w.visitForSubqueries(c.Condition, depth+1)
			w.visitForSubqueries(c.Result, depth+1)
		}
		w.visitForSubqueries(e.ElseResult, depth+1)
	case *ast.Function:
		for _, a := range e.Args {
			w.visitForSubqueries(a.Expr, depth+1)
		}
	case *ast.Cast:
		w.visitForSubqueries(e.Expr, depth+1)
	case *ast.Between:
		w.visitForSubqueries(e.Expr, depth+1)
		w.visitForSubqueries(e.Low, depth+1)
		w.visitForSubqueries(e.High, depth+1)
	case *ast.Like:
		w.visitForSubqueries(e.Expr, depth+1)
		w.visitForSubqueries(e.Pattern, depth+1)
	case *ast.NullTest:
		w.visitForSubqueries(e.Expr, depth+1)
	case *ast.Tuple:
		for _, x := range e.Exprs {
			w.visitForSubqueries(x, depth+1)
		}
	case *ast.Extract:
		w.visitForSubqueries(e.Expr, depth+1)
	case *ast.InList:
		w.visitForSubqueries(e.Expr, depth+1)
		for _, x := range e.List {
			w.visitForSubqueries(x, depth+1)
		}
	case *ast.InSubquery:
		w.visitForSubqueries(e.Expr, depth+1)
		w.batch.AnalyzeQuery(w.ctx, e.Subquery, "")
	case *ast.Exists:
		w.batch.AnalyzeQuery(w.ctx, e.Subquery, "")
	case *ast.Subquery:
		w.batch.AnalyzeQuery(w.ctx, e.Query, "")
	}
}

// ExtractColumnRefs collects every column reference expr makes, excluding
// anything inside a nested Subquery (those are analyzed independently, in
// their own scope).
func ExtractColumnRefs(expr ast.Expr) []ColumnRef {
	var out []ColumnRef
	collectColumnRefs(expr, &out)
	return out
}

func collectColumnRefs(expr ast.Expr, out *[]ColumnRef) {
	switch e := expr.(type) {
	case *ast.Identifier:
		*out = append(*out, ColumnRef{Column: e.Name})
	case *ast.CompoundIdentifier:
		if len(e.Parts) >= 2 {
			*out = append(*out, ColumnRef{Table: e.Parts[len(e.Parts)-2], Column: e.Parts[len(e.Parts)-1]})
		} else if len(e.Parts) == 1 {
			*out = append(*out, ColumnRef{Column: e.Parts[0]})
		}
	case *ast.BinaryOp:
		collectColumnRefs(e.Left, out)
		collectColumnRefs(e.Right, out)
	case *ast.UnaryOp:
		collectColumnRefs(e.Expr, out)
	case *ast.Nested:
		collectColumnRefs(e.Expr, out)
	case *ast.Case:
		collectColumnRefs(e.Operand, out)
		for _, c := range e.Conditions {
			collectColumnRefs(c.Condition, out)
			collectColumnRefs(c.Result, out)
		}
		collectColumnRefs(e.ElseResult, out)
	case *ast.Function:
		for _, a := range e.Args {
			collectColumnRefs(a.Expr, out)
		}
	case *ast.Cast:
		collectColumnRefs(e.Expr, out)
	case *ast.Between:
		collectColumnRefs(e.Expr, out)
		collectColumnRefs(e.Low, out)
		collectColumnRefs(e.High, out)
	case *ast.Like:
		collectColumnRefs(e.Expr, out)
		collectColumnRefs(e.Pattern, out)
	case *ast.NullTest:
		collectColumnRefs(e.Expr, out)
	case *ast.Tuple:
		for _, x := range e.Exprs {
			collectColumnRefs(x, out)
		}
	case *ast.Extract:
		collectColumnRefs(e.Expr, out)
	case *ast.InList:
		collectColumnRefs(e.Expr, out)
		for _, x := range e.List {
			collectColumnRefs(x, out)
		}
	case *ast.InSubquery:
		collectColumnRefs(e.Expr, out)
		// subquery excluded: resolved in its own scope
	case nil, *ast.Value, *ast.Subquery, *ast.Exists:
		// no column refs
	}
}

// NormalizeGroupByExpr renders expr to its dedup/lookup key for GROUP BY
// processing: a bare column reference normalizes to just the column name
// (so `GROUP BY t.id` and a later `t.id` projection reference match),
// anything else normalizes to its textual form.
func (w *ExpressionWalker) NormalizeGroupByExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return w.batch.NormalizeIdentifier(e.Name)
	case *ast.CompoundIdentifier:
		return w.batch.NormalizeIdentifier(e.Parts[len(e.Parts)-1])
	default:
		return expr.String()
	}
}

// DeriveColumnName picks an output column's name the way the original
// implementation does: the bare identifier for a column reference, the
// lowercased function name for a function call, or a positional
// `col_<index>` fallback for anything else.
func DeriveColumnName(expr ast.Expr, index int) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.CompoundIdentifier:
		return e.Parts[len(e.Parts)-1]
	case *ast.Function:
		return strings.ToLower(e.Name)
	default:
		return fmt.Sprintf("col_%d", index)
	}
}

// IsSimpleColumnRef reports whether expr is a bare (possibly qualified)
// column reference, used to decide whether a projection item needs its
// Expression field populated at all.
func IsSimpleColumnRef(expr ast.Expr) bool {
	switch expr.(type) {
	case *ast.Identifier, *ast.CompoundIdentifier:
		return true
	default:
		return false
	}
}

// DetectAggregation classifies expr under the current SELECT's GROUP BY:
// a grouping-key match first, then a nested aggregate-function search,
// else nil (expr is neither).
func (w *ExpressionWalker) DetectAggregation(expr ast.Expr) *model.AggregationInfo {
	if w.ctx.HasGroupBy() {
		key := w.NormalizeGroupByExpr(expr)
		if w.ctx.IsGroupingColumn(key) {
			return &model.AggregationInfo{IsGroupingKey: true}
		}
	}
	if fn, distinct, ok := findAggregateFunction(expr); ok {
		name := fn
		dist := distinct
		return &model.AggregationInfo{Function: &name, Distinct: &dist}
	}
	return nil
}

var aggregateFunctionNames = map[string]bool{
	"sum": true, "count": true, "avg": true, "min": true, "max": true,
	"array_agg": true, "string_agg": true, "group_concat": true,
	"stddev": true, "variance": true, "median": true,
}

func findAggregateFunction(expr ast.Expr) (name string, distinct bool, ok bool) {
	switch e := expr.(type) {
	case *ast.Function:
		if aggregateFunctionNames[strings.ToLower(e.Name)] {
			return strings.ToLower(e.Name), e.Distinct, true
		}
		for _, a := range e.Args {
			if name, distinct, ok = findAggregateFunction(a.Expr); ok {
				return
			}
		}
	case *ast.Case:
		for _, c := range e.Conditions {
			if name, distinct, ok = findAggregateFunction(c.Result); ok {
				return
			}
		}
		if e.ElseResult != nil {
			return findAggregateFunction(e.ElseResult)
		}
	case *ast.BinaryOp:
		if name, distinct, ok = findAggregateFunction(e.Left); ok {
			return
		}
		return findAggregateFunction(e.Right)
	case *ast.UnaryOp:
		return findAggregateFunction(e.Expr)
	case *ast.Nested:
		return findAggregateFunction(e.Expr)
	case *ast.Cast:
		return findAggregateFunction(e.Expr)
	}
	return "", false, false
}

// CaptureFilterPredicates splits expr into its top-level AND-separated
// conjuncts and queues each one against every table it affects. A
// conjunct whose referenced columns resolve to no table at all (e.g. a
// predicate over only literals/functions, such as `now() > '2024-01-01'`)
// is queued against every table currently in scope instead — see
// DESIGN.md's Open Question decision on this fallback.
func (w *ExpressionWalker) CaptureFilterPredicates(expr ast.Expr, clauseType model.FilterClauseType) {
	for _, conjunct := range splitByAnd(expr) {
		refs := ExtractColumnRefs(conjunct)
		affected := map[string]bool{}
		for _, ref := range refs {
			if table, ok := w.batch.ResolveColumnTable(w.ctx, ref.Table, ref.Column); ok {
				affected[table] = true
			}
		}
		if len(affected) == 0 {
			for _, table := range w.ctx.TablesInCurrentScope() {
				affected[table] = true
			}
		}
		pred := model.FilterPredicate{Expression: conjunct.String(), ClauseType: clauseType}
		for table := range affected {
			w.ctx.AddPendingFilter(table, pred)
		}
	}
}

// splitByAnd flattens a top-level chain of AND-connected predicates into
// its individual conjuncts, left-to-right.
func splitByAnd(expr ast.Expr) []ast.Expr {
	var out []ast.Expr
	collectAndPredicates(expr, &out)
	return out
}

func collectAndPredicates(expr ast.Expr, out *[]ast.Expr) {
	if b, ok := expr.(*ast.BinaryOp); ok && b.Op == ast.OpAnd {
		collectAndPredicates(b.Left, out)
		collectAndPredicates(b.Right, out)
		return
	}
	*out = append(*out, expr)
}
