package vitessql

import (
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"

	"github.com/pondpilot/flowscope/ast"
)

// convertSelectStatement converts any sqlparser.SelectStatement (a bare
// SELECT, a UNION/INTERSECT/EXCEPT chain, or a parenthesized nested
// select) into a *ast.Query.
func convertSelectStatement(ss sqlparser.SelectStatement) *ast.Query {
	switch s := ss.(type) {
	case *sqlparser.Select:
		return convertSelect(s)
	case *sqlparser.Union:
		return &ast.Query{Body: &ast.SetOperation{
			Left:  convertSelectStatement(s.Left).Body,
			Op:    unionKind(s.Type),
			All:   strings.Contains(strings.ToLower(s.Type), "all"),
			Right: convertSelectStatement(s.Right).Body,
		}}
	case *sqlparser.ParenSelect:
		return convertSelectStatement(s.Select)
	default:
		return &ast.Query{Body: &ast.Select{}}
	}
}

func unionKind(t string) ast.SetOperationKind {
	switch {
	case strings.Contains(strings.ToLower(t), "intersect"):
		return ast.SetOpIntersect
	case strings.Contains(strings.ToLower(t), "except"), strings.Contains(strings.ToLower(t), "minus"):
		return ast.SetOpExcept
	default:
		return ast.SetOpUnion
	}
}

func convertSelect(s *sqlparser.Select) *ast.Query {
	sel := &ast.Select{
		Distinct: strings.Contains(strings.ToLower(s.Distinct), "distinct"),
		From:     convertTableExprs(s.From),
	}

	for _, item := range s.SelectExprs {
		if converted := convertSelectItem(item); converted != nil {
			sel.Projection = append(sel.Projection, converted)
		}
	}

	if s.Where != nil {
		sel.Selection = convertExpr(s.Where.Expr)
	}
	if s.Having != nil {
		sel.Having = convertExpr(s.Having.Expr)
	}
	if len(s.GroupBy) > 0 {
		for _, g := range s.GroupBy {
			sel.GroupBy.Expressions = append(sel.GroupBy.Expressions, convertExpr(g))
		}
	}

	query := &ast.Query{Body: sel}
	if s.With != nil {
		query.With = convertWith(s.With)
	}
	return query
}

func convertWith(w *sqlparser.With) *ast.With {
	out := &ast.With{Recursive: w.Recursive}
	for _, cte := range w.Ctes {
		entry := ast.CTE{Name: cte.ID.String()}
		if cte.Subquery != nil {
			entry.Query = convertSelectStatement(cte.Subquery.Select)
		}
		for _, col := range cte.Columns {
			entry.ColumnAliases = append(entry.ColumnAliases, col.String())
		}
		out.CTEs = append(out.CTEs, entry)
	}
	return out
}

func convertSelectItem(item sqlparser.SelectExpr) ast.SelectItem {
	switch e := item.(type) {
	case *sqlparser.StarExpr:
		if !e.TableName.IsEmpty() {
			return &ast.QualifiedWildcard{Qualifier: e.TableName.Name.String()}
		}
		return &ast.Wildcard{}
	case *sqlparser.AliasedExpr:
		expr := convertExpr(e.Expr)
		if !e.As.IsEmpty() {
			return &ast.ExprWithAlias{Expr: expr, Alias: e.As.String()}
		}
		return &ast.UnnamedExpr{Expr: expr}
	default:
		return nil
	}
}

func convertTableExprs(exprs sqlparser.TableExprs) []ast.TableWithJoins {
	var out []ast.TableWithJoins
	for _, e := range exprs {
		out = append(out, convertTableExpr(e))
	}
	return out
}

// convertTableExpr flattens one FROM-clause item into a TableWithJoins: a
// JoinTableExpr contributes its left side's relation(s) plus one more Join
// entry for its right side (vitess nests joins as a binary tree; the
// generic ast models a flat relation-plus-joins list, matching how most
// SQL dialects surface `FROM a JOIN b JOIN c` to the analyzer).
func convertTableExpr(e sqlparser.TableExpr) ast.TableWithJoins {
	switch t := e.(type) {
	case *sqlparser.JoinTableExpr:
		left := convertTableExpr(t.LeftExpr)
		right := convertTableExpr(t.RightExpr)
		left.Joins = append(left.Joins, ast.Join{
			Relation: right.Relation,
			Operator: convertJoinOperator(t),
		})
		left.Joins = append(left.Joins, right.Joins...)
		return left
	case *sqlparser.ParenTableExpr:
		return ast.TableWithJoins{Relation: &ast.NestedJoin{TableWithJoins: mergeTableExprs(t.Exprs)}}
	default:
		return ast.TableWithJoins{Relation: convertSimpleTableExpr(e)}
	}
}

func mergeTableExprs(exprs sqlparser.TableExprs) ast.TableWithJoins {
	if len(exprs) == 0 {
		return ast.TableWithJoins{}
	}
	first := convertTableExpr(exprs[0])
	for _, e := range exprs[1:] {
		next := convertTableExpr(e)
		first.Joins = append(first.Joins, ast.Join{
			Relation: next.Relation,
			Operator: ast.JoinOperator{Type: ast.JoinTypeCross, Constraint: &ast.NoConstraint{}},
		})
		first.Joins = append(first.Joins, next.Joins...)
	}
	return first
}

func convertSimpleTableExpr(e sqlparser.TableExpr) ast.TableFactor {
	aliased, ok := e.(*sqlparser.AliasedTableExpr)
	if !ok {
		return &ast.TableFunction{Kind: ast.TableFunctionGeneric}
	}
	alias := ""
	if !aliased.As.IsEmpty() {
		alias = aliased.As.String()
	}
	switch simple := aliased.Expr.(type) {
	case sqlparser.TableName:
		return &ast.Table{Name: tableNameString(simple), Alias: alias}
	case *sqlparser.Subquery:
		return &ast.Derived{Subquery: convertSelectStatement(simple.Select), Alias: alias, Lateral: aliased.Lateral}
	default:
		return &ast.TableFunction{Kind: ast.TableFunctionGeneric, Alias: alias}
	}
}

// convertJoinOperator classifies t.Join's textual join kind and converts
// its ON/USING/NATURAL condition. vitess renders join kind as free text
// ("join", "straight_join", "left join", "right join", "natural join",
// ...), so this matches on substrings rather than exact constants.
func convertJoinOperator(t *sqlparser.JoinTableExpr) ast.JoinOperator {
	kind := strings.ToLower(t.Join)
	natural := strings.Contains(kind, "natural")

	jt := ast.JoinTypeInner
	switch {
	case strings.Contains(kind, "left"):
		jt = ast.JoinTypeLeft
	case strings.Contains(kind, "right"):
		jt = ast.JoinTypeRight
	case strings.Contains(kind, "full"):
		jt = ast.JoinTypeFull
	case strings.Contains(kind, "cross"):
		jt = ast.JoinTypeCross
	}

	var constraint ast.JoinConstraint = &ast.NoConstraint{}
	switch {
	case natural:
		constraint = &ast.NaturalConstraint{}
	case t.Condition.On != nil:
		constraint = &ast.OnConstraint{Expr: convertExpr(t.Condition.On)}
	case len(t.Condition.Using) > 0:
		cols := make([]string, 0, len(t.Condition.Using))
		for _, c := range t.Condition.Using {
			cols = append(cols, c.String())
		}
		constraint = &ast.UsingConstraint{Columns: cols}
	}

	return ast.JoinOperator{Type: jt, Constraint: constraint}
}

func tableNameString(tn sqlparser.TableName) string {
	if tn.Qualifier.IsEmpty() {
		return tn.Name.String()
	}
	return tn.Qualifier.String() + "." + tn.Name.String()
}
