package analyzer

import (
	"fmt"

	"github.com/pondpilot/flowscope/ast"
	"github.com/pondpilot/flowscope/model"
)

// AnalyzeQuery is the entry point for any (possibly CTE-prefixed, possibly
// set-operation) query body: a subquery, a derived table, an
// INSERT/CREATE-TABLE-AS source, or the batch's own top-level statement
// query. It registers any WITH-clause CTEs in the current scope (each
// analyzed as its own nested query, via the projection-checkpoint pattern),
// then dispatches the query body.
func (b *Batch) AnalyzeQuery(ctx *Context, query *ast.Query, targetNode string) {
	if query == nil {
		return
	}
	if query.With != nil {
		for _, cte := range query.With.CTEs {
			b.analyzeCTE(ctx, cte)
		}
	}
	b.AnalyzeSetExpr(ctx, query.Body, targetNode)
}

// analyzeCTE analyzes one WITH-clause CTE as a nested query, creates its
// Cte node, and records its output columns for later `cte.col` resolution.
func (b *Batch) analyzeCTE(ctx *Context, cte ast.CTE) {
	name := b.NormalizeIdentifier(cte.Name)
	nodeID := "cte_" + name

	ctx.AddNode(model.Node{ID: nodeID, Type: model.NodeCTE, Label: cte.Name})

	checkpoint := ctx.CheckpointOutputColumns()
	b.AnalyzeQuery(ctx, cte.Query, nodeID)
	columns := ctx.TakeOutputColumnsSince(checkpoint)

	if len(cte.ColumnAliases) > 0 {
		for i := range columns {
			if i < len(cte.ColumnAliases) {
				columns[i].Name = b.NormalizeIdentifier(cte.ColumnAliases[i])
			}
		}
	}

	ctx.DefineCTE(name, nodeID, columns)
}

// AnalyzeSetExpr dispatches a query body to the appropriate handling:
// a bare SELECT, a set operation (both sides flow into the same target,
// spec.md's UNION/INTERSECT/EXCEPT lineage), a literal VALUES list (each
// row position becomes a sourceless output column the first time it is
// seen), or a parenthesized nested query.
func (b *Batch) AnalyzeSetExpr(ctx *Context, body ast.SetExpr, targetNode string) {
	switch e := body.(type) {
	case *ast.Select:
		b.AnalyzeSelect(ctx, e, targetNode)
	case *ast.SetOperation:
		b.AnalyzeSetExpr(ctx, e.Left, targetNode)
		b.AnalyzeSetExpr(ctx, e.Right, targetNode)
	case *ast.Values:
		b.analyzeValues(ctx, e, targetNode)
	case *ast.QueryExpr:
		b.AnalyzeQuery(ctx, e.Query, targetNode)
	}
}

func (b *Batch) analyzeValues(ctx *Context, values *ast.Values, targetNode string) {
	if len(values.Rows) == 0 {
		return
	}
	for i := range values.Rows[0] {
		b.addOutputColumn(ctx, outputColumnParams{
			name:   fmt.Sprintf("col_%d", i+1),
			target: targetNode,
		})
	}
}

// AnalyzeSelect analyzes a SELECT's FROM tree and, if column lineage is
// enabled, its projection/WHERE/HAVING (spec.md §4.5's top-level protocol).
func (b *Batch) AnalyzeSelect(ctx *Context, sel *ast.Select, targetNode string) {
	ctx.PushScope()
	defer ctx.PopScope()

	for _, twj := range sel.From {
		b.AnalyzeTableWithJoins(ctx, twj, targetNode)
	}

	if b.columnLineageEnabled {
		b.analyzeSelectColumns(ctx, sel, targetNode)
	}
}

func (b *Batch) analyzeSelectColumns(ctx *Context, sel *ast.Select, targetNode string) {
	ctx.ClearGrouping()
	ew := NewExpressionWalker(b, ctx)

	switch {
	case sel.GroupBy.All:
		ctx.SetGroupByAll()
	default:
		processed := map[string]bool{}
		for _, expr := range sel.GroupBy.Expressions {
			key := ew.NormalizeGroupByExpr(expr)
			if processed[key] {
				continue
			}
			processed[key] = true
			ctx.AddGroupingColumn(key)
			ew.Analyze(expr)
		}
	}

	for idx, item := range sel.Projection {
		switch it := item.(type) {
		case *ast.UnnamedExpr:
			sources := ExtractColumnRefs(it.Expr)
			name := DeriveColumnName(it.Expr, idx)
			aggregation := ew.DetectAggregation(it.Expr)
			expression := ""
			if !IsSimpleColumnRef(it.Expr) {
				expression = it.Expr.String()
			}
			b.addOutputColumn(ctx, outputColumnParams{
				name: name, sources: sources, expression: expression,
				target: targetNode, aggregation: aggregation,
			})
		case *ast.ExprWithAlias:
			sources := ExtractColumnRefs(it.Expr)
			aggregation := ew.DetectAggregation(it.Expr)
			expression := ""
			if !IsSimpleColumnRef(it.Expr) {
				expression = it.Expr.String()
			}
			b.addOutputColumn(ctx, outputColumnParams{
				name: it.Alias, sources: sources, expression: expression,
				target: targetNode, aggregation: aggregation,
			})
		case *ast.QualifiedWildcard:
			b.ExpandWildcard(ctx, it.Qualifier, targetNode)
		case *ast.Wildcard:
			b.ExpandWildcard(ctx, "", targetNode)
		}
	}

	if sel.Selection != nil {
		ew.Analyze(sel.Selection)
		ew.CaptureFilterPredicates(sel.Selection, model.FilterWhere)
	}
	if sel.Having != nil {
		ew.Analyze(sel.Having)
		ew.CaptureFilterPredicates(sel.Having, model.FilterHaving)
	}
}

// AnalyzeTableWithJoins analyzes a FROM item's main relation, then each of
// its JOINs, tagging each joined relation's node with the join type/
// condition in effect while it is analyzed (spec.md §4.5 step 2).
func (b *Batch) AnalyzeTableWithJoins(ctx *Context, twj ast.TableWithJoins, targetNode string) {
	b.AnalyzeTableFactor(ctx, twj.Relation, targetNode)

	for _, join := range twj.Joins {
		jt, cond := ConvertJoinOperator(join.Operator)
		ctx.currentJoin = JoinInfo{JoinType: jt, JoinCondition: cond}
		ctx.lastOperation = JoinOperationLabel(jt)

		b.AnalyzeTableFactor(ctx, join.Relation, targetNode)

		ctx.currentJoin = JoinInfo{}
	}
}

// AnalyzeTableFactor handles one FROM/JOIN relation reference, per the
// dispatch table in spec.md §4.5.
func (b *Batch) AnalyzeTableFactor(ctx *Context, factor ast.TableFactor, targetNode string) {
	switch f := factor.(type) {
	case *ast.Table:
		canonical := b.AddSourceTable(ctx, f.Name, targetNode)
		if f.Alias != "" && canonical != "" {
			ctx.RegisterAliasInScope(f.Alias, canonical)
		}
	case *ast.Derived:
		b.AnalyzeQuery(ctx, f.Subquery, targetNode)
		if f.Alias != "" {
			ctx.RegisterSubqueryAliasInScope(f.Alias)
		}
	case *ast.NestedJoin:
		b.AnalyzeTableWithJoins(ctx, f.TableWithJoins, targetNode)
	case *ast.TableFunction:
		switch f.Kind {
		case ast.TableFunctionGeneric:
			b.addIssue(model.NewInfo(model.CodeUnsupportedSyntax,
				"table function lineage not fully tracked").WithStatement(ctx.StatementIndex))
		case ast.TableFunctionPivot, ast.TableFunctionUnpivot:
			b.addIssue(model.NewWarning(model.CodeUnsupportedSyntax,
				"PIVOT/UNPIVOT lineage not fully supported").WithStatement(ctx.StatementIndex))
		case ast.TableFunctionUnnest, ast.TableFunctionMatchRecog, ast.TableFunctionJSONTable:
			// no lineage to invent
			b.addIssue(model.NewInfo(model.CodeUnsupportedSyntax,
				"UNNEST/MATCH_RECOGNIZE/JSON_TABLE lineage not tracked").WithStatement(ctx.StatementIndex))
		}
	}
}

// RegisterAliasesInTableWithJoins pre-registers every alias reachable from
// twj (main relation plus each join) without otherwise analyzing it, for
// statements (DELETE's multi-table form) that must resolve target aliases
// before the main analysis pass runs.
func (b *Batch) RegisterAliasesInTableWithJoins(ctx *Context, twj ast.TableWithJoins) {
	b.registerAliasesInTableFactor(ctx, twj.Relation)
	for _, join := range twj.Joins {
		b.registerAliasesInTableFactor(ctx, join.Relation)
	}
}

func (b *Batch) registerAliasesInTableFactor(ctx *Context, factor ast.TableFactor) {
	switch f := factor.(type) {
	case *ast.Table:
		if f.Alias != "" {
			canonical, _ := b.CanonicalizeTableReference(f.Name)
			ctx.RegisterAliasInScope(f.Alias, canonical)
		}
	case *ast.Derived:
		if f.Alias != "" {
			ctx.RegisterSubqueryAliasInScope(f.Alias)
		}
	case *ast.NestedJoin:
		b.RegisterAliasesInTableWithJoins(ctx, f.TableWithJoins)
	}
}

// AnalyzeDMLTarget processes an UPDATE/DELETE/MERGE target table: adds it
// as a source node, registers its alias, marks it produced in the tracker,
// and expands its known schema columns. Returns the canonical name and node
// id.
func (b *Batch) AnalyzeDMLTarget(ctx *Context, tableName, alias string) (canonical, nodeID string) {
	canonical = b.AddSourceTable(ctx, tableName, "")
	if canonical == "" {
		canonical, _ = b.CanonicalizeTableReference(tableName)
	}
	if alias != "" {
		ctx.RegisterAliasInScope(alias, canonical)
	}

	nodeID, ok := ctx.tableNodeIDs[canonical]
	if !ok {
		nodeID = b.RelationNodeID(canonical)
	}

	b.tracker.RecordProduced(canonical, ctx.StatementIndex)
	b.AddTableColumnsFromSchema(ctx, canonical, nodeID)
	return canonical, nodeID
}

// AnalyzeDMLTargetFactor analyzes factor as a DML target if it is a plain
// table reference, falling back to ordinary table-factor analysis (e.g. a
// derived table cannot be a DML target, but must still be analyzed).
// Returns the target node id, or "" if factor was not a plain table.
func (b *Batch) AnalyzeDMLTargetFactor(ctx *Context, factor ast.TableFactor) string {
	if t, ok := factor.(*ast.Table); ok {
		_, nodeID := b.AnalyzeDMLTarget(ctx, t.Name, t.Alias)
		return nodeID
	}
	b.AnalyzeTableFactor(ctx, factor, "")
	return ""
}

// AnalyzeDMLTargetFromTableWithJoins treats twj's main relation as a DML
// target if it is a plain table, falling back to full table-with-joins
// analysis otherwise. Joins on the target (if any) are not analyzed here;
// callers that need them call AnalyzeTableWithJoins separately.
func (b *Batch) AnalyzeDMLTargetFromTableWithJoins(ctx *Context, twj ast.TableWithJoins) string {
	if t, ok := twj.Relation.(*ast.Table); ok {
		_, nodeID := b.AnalyzeDMLTarget(ctx, t.Name, t.Alias)
		return nodeID
	}
	b.AnalyzeTableWithJoins(ctx, twj, "")
	return ""
}
