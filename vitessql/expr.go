package vitessql

import (
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"

	"github.com/pondpilot/flowscope/ast"
)

// convertExpr translates one sqlparser.Expr into the generic ast.Expr
// tree. Node kinds with no direct ast equivalent (character-set
// introducers, COLLATE, interval literals, ...) fall back to a Value
// carrying the node's rendered SQL text, so unrecognized syntax degrades
// to an opaque literal instead of failing the conversion outright.
func convertExpr(e sqlparser.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *sqlparser.AndExpr:
		return &ast.BinaryOp{Left: convertExpr(n.Left), Op: ast.OpAnd, Right: convertExpr(n.Right)}
	case *sqlparser.OrExpr:
		return &ast.BinaryOp{Left: convertExpr(n.Left), Op: ast.OpOr, Right: convertExpr(n.Right)}
	case *sqlparser.NotExpr:
		return &ast.UnaryOp{Op: ast.OpNot, Expr: convertExpr(n.Expr)}
	case *sqlparser.ParenExpr:
		return &ast.Nested{Expr: convertExpr(n.Expr)}
	case *sqlparser.ComparisonExpr:
		if op, ok := binaryOpFor(n.Operator); ok {
			return &ast.BinaryOp{Left: convertExpr(n.Left), Op: op, Right: convertExpr(n.Right)}
		}
		return convertSpecialComparison(n)
	case *sqlparser.RangeCond:
		return &ast.Between{
			Expr: convertExpr(n.Left), Negated: strings.Contains(strings.ToLower(n.Operator), "not"),
			Low: convertExpr(n.From), High: convertExpr(n.To),
		}
	case *sqlparser.IsExpr:
		return &ast.NullTest{Expr: convertExpr(n.Expr), Kind: nullTestKind(n.Operator)}
	case *sqlparser.ExistsExpr:
		return &ast.Exists{Subquery: convertSelectStatement(n.Subquery.Select)}
	case *sqlparser.Subquery:
		return &ast.Subquery{Query: convertSelectStatement(n.Select)}
	case *sqlparser.ColName:
		return convertColName(n)
	case *sqlparser.SQLVal:
		return convertSQLVal(n)
	case sqlparser.BoolVal:
		text := "false"
		if n {
			text = "true"
		}
		return &ast.Value{Kind: ast.ValueBoolean, Text: text}
	case *sqlparser.NullVal:
		return &ast.Value{Kind: ast.ValueNull, Text: "NULL"}
	case *sqlparser.FuncExpr:
		return convertFuncExpr(n)
	case *sqlparser.CaseExpr:
		return convertCaseExpr(n)
	case *sqlparser.ConvertExpr:
		dt := ""
		if n.Type != nil {
			dt = n.Type.Type
		}
		return &ast.Cast{Expr: convertExpr(n.Expr), DataType: dt}
	case *sqlparser.BinaryExpr:
		if op, ok := arithOpFor(n.Operator); ok {
			return &ast.BinaryOp{Left: convertExpr(n.Left), Op: op, Right: convertExpr(n.Right)}
		}
		return &ast.Value{Kind: ast.ValueString, Text: sqlparser.String(n)}
	case *sqlparser.UnaryExpr:
		if op, ok := unaryOpFor(n.Operator); ok {
			return &ast.UnaryOp{Op: op, Expr: convertExpr(n.Expr)}
		}
		return convertExpr(n.Expr)
	case sqlparser.ValTuple:
		var exprs []ast.Expr
		for _, x := range n {
			exprs = append(exprs, convertExpr(x))
		}
		return &ast.Tuple{Exprs: exprs}
	default:
		return &ast.Value{Kind: ast.ValueString, Text: sqlparser.String(e)}
	}
}

func convertSpecialComparison(n *sqlparser.ComparisonExpr) ast.Expr {
	op := strings.ToLower(n.Operator)
	negated := strings.HasPrefix(op, "not ")
	base := strings.TrimPrefix(op, "not ")

	switch base {
	case "in":
		if tuple, ok := n.Right.(sqlparser.ValTuple); ok {
			var list []ast.Expr
			for _, x := range tuple {
				list = append(list, convertExpr(x))
			}
			return &ast.InList{Expr: convertExpr(n.Left), List: list, Negated: negated}
		}
		if sub, ok := n.Right.(*sqlparser.Subquery); ok {
			return &ast.InSubquery{Expr: convertExpr(n.Left), Subquery: convertSelectStatement(sub.Select), Negated: negated}
		}
		return &ast.Value{Kind: ast.ValueString, Text: sqlparser.String(n)}
	case "like":
		return &ast.Like{Expr: convertExpr(n.Left), Pattern: convertExpr(n.Right), Negated: negated}
	default:
		return &ast.Value{Kind: ast.ValueString, Text: sqlparser.String(n)}
	}
}

func binaryOpFor(op string) (ast.BinaryOperator, bool) {
	switch op {
	case "=":
		return ast.OpEq, true
	case "<>", "!=":
		return ast.OpNotEq, true
	case "<":
		return ast.OpLt, true
	case "<=":
		return ast.OpLtEq, true
	case ">":
		return ast.OpGt, true
	case ">=":
		return ast.OpGtEq, true
	default:
		return "", false
	}
}

func arithOpFor(op string) (ast.BinaryOperator, bool) {
	switch op {
	case "+":
		return ast.OpPlus, true
	case "-":
		return ast.OpMinus, true
	case "*":
		return ast.OpMultiply, true
	case "/":
		return ast.OpDivide, true
	case "%":
		return ast.OpModulo, true
	default:
		return "", false
	}
}

func unaryOpFor(op string) (ast.UnaryOperator, bool) {
	switch op {
	case "-":
		return ast.OpMinusUnary, true
	case "+":
		return ast.OpPlusUnary, true
	default:
		return "", false
	}
}

func nullTestKind(op string) ast.NullTestKind {
	switch strings.ToLower(op) {
	case "is not null":
		return ast.IsNotNull
	case "is true":
		return ast.IsTrue
	case "is not true":
		return ast.IsNotTrue
	case "is false":
		return ast.IsFalse
	case "is not false":
		return ast.IsNotFalse
	default:
		return ast.IsNull
	}
}

func convertColName(n *sqlparser.ColName) ast.Expr {
	if n.Qualifier.IsEmpty() {
		return &ast.Identifier{Name: n.Name.String()}
	}
	parts := []string{}
	if !n.Qualifier.Qualifier.IsEmpty() {
		parts = append(parts, n.Qualifier.Qualifier.String())
	}
	parts = append(parts, n.Qualifier.Name.String(), n.Name.String())
	return &ast.CompoundIdentifier{Parts: parts}
}

func convertSQLVal(n *sqlparser.SQLVal) ast.Expr {
	switch n.Type {
	case sqlparser.StrVal:
		return &ast.Value{Kind: ast.ValueString, Text: string(n.Val)}
	case sqlparser.IntVal, sqlparser.FloatVal, sqlparser.HexNum, sqlparser.HexVal, sqlparser.BitVal:
		return &ast.Value{Kind: ast.ValueNumber, Text: string(n.Val)}
	case sqlparser.ValArg:
		return &ast.Value{Kind: ast.ValueString, Text: string(n.Val)}
	default:
		return &ast.Value{Kind: ast.ValueString, Text: string(n.Val)}
	}
}

func convertFuncExpr(n *sqlparser.FuncExpr) ast.Expr {
	fn := &ast.Function{Name: n.Name.String(), Distinct: n.Distinct}
	for _, arg := range n.Exprs {
		switch a := arg.(type) {
		case *sqlparser.StarExpr:
			fn.Star = true
		case *sqlparser.AliasedExpr:
			name := ""
			if !a.As.IsEmpty() {
				name = a.As.String()
			}
			fn.Args = append(fn.Args, ast.FunctionArg{Name: name, Expr: convertExpr(a.Expr)})
		}
	}
	return fn
}

func convertCaseExpr(n *sqlparser.CaseExpr) ast.Expr {
	c := &ast.Case{}
	if n.Expr != nil {
		c.Operand = convertExpr(n.Expr)
	}
	for _, w := range n.Whens {
		c.Conditions = append(c.Conditions, ast.CaseWhen{Condition: convertExpr(w.Cond), Result: convertExpr(w.Val)})
	}
	if n.Else != nil {
		c.ElseResult = convertExpr(n.Else)
	}
	return c
}
