package helpers

import (
	"strings"

	"github.com/pondpilot/flowscope/ast"
	"github.com/pondpilot/flowscope/model"
)

// InferredType is the coarse type lattice the expression type checker
// reasons over. It is deliberately much smaller than a real SQL type
// system: FlowScope only needs enough precision to flag the predicate
// anti-patterns spec.md §4.4 names (comparing incompatible literal kinds,
// NULL-equality, ...), not to type-check a query the way an engine would.
type InferredType string

const (
	TypeNumeric   InferredType = "numeric"
	TypeText      InferredType = "text"
	TypeBoolean   InferredType = "boolean"
	TypeNull      InferredType = "null"
	TypeDate      InferredType = "date"
	TypeTimestamp InferredType = "timestamp"
	TypeUnknown   InferredType = "unknown"
)

// IsNumericType reports whether t is the numeric type.
func IsNumericType(t InferredType) bool { return t == TypeNumeric }

// IsNullLiteral reports whether expr is the literal NULL.
func IsNullLiteral(expr ast.Expr) bool {
	v, ok := expr.(*ast.Value)
	return ok && v.Kind == ast.ValueNull
}

// InferExprType makes a best-effort guess at expr's type from its literal
// kind or, for columns and other dynamic references, returns TypeUnknown
// (comparisons against TypeUnknown are always permitted — FlowScope has no
// column-type catalog to consult, schema.ColumnSchema.DataType is advisory
// text supplied by the caller and is not threaded through here).
func InferExprType(expr ast.Expr) InferredType {
	switch e := expr.(type) {
	case *ast.Value:
		switch e.Kind {
		case ast.ValueNumber:
			return TypeNumeric
		case ast.ValueString:
			return TypeText
		case ast.ValueBoolean:
			return TypeBoolean
		case ast.ValueNull:
			return TypeNull
		case ast.ValueDate:
			return TypeDate
		case ast.ValueTimestamp:
			return TypeTimestamp
		}
		return TypeUnknown
	case *ast.Cast:
		return typeFromDataType(e.DataType)
	case *ast.Nested:
		return InferExprType(e.Expr)
	case *ast.UnaryOp:
		if e.Op == ast.OpNot {
			return TypeBoolean
		}
		return InferExprType(e.Expr)
	case *ast.BinaryOp:
		switch e.Op {
		case ast.OpAnd, ast.OpOr, ast.OpEq, ast.OpNotEq, ast.OpLt, ast.OpLtEq, ast.OpGt, ast.OpGtEq:
			return TypeBoolean
		default:
			return TypeNumeric
		}
	case *ast.Between, *ast.Like, *ast.NullTest, *ast.InList, *ast.InSubquery, *ast.Exists:
		return TypeBoolean
	default:
		return TypeUnknown
	}
}

func typeFromDataType(dataType string) InferredType {
	t := strings.ToUpper(strings.TrimSpace(dataType))
	switch {
	case strings.Contains(t, "INT"), strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"),
		strings.Contains(t, "FLOAT"), strings.Contains(t, "DOUBLE"), strings.Contains(t, "REAL"):
		return TypeNumeric
	case strings.Contains(t, "BOOL"):
		return TypeBoolean
	case strings.Contains(t, "TIMESTAMP"):
		return TypeTimestamp
	case strings.Contains(t, "DATE"):
		return TypeDate
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "STRING"):
		return TypeText
	default:
		return TypeUnknown
	}
}

// AreTypesComparable decides whether a and b may legally appear on either
// side of a comparison operator under dialect's policy. NULL and Unknown
// are always comparable against anything (we cannot disprove them).
func AreTypesComparable(a, b InferredType, dialect model.Dialect) bool {
	if a == TypeUnknown || b == TypeUnknown || a == TypeNull || b == TypeNull {
		return true
	}
	if a == b {
		return true
	}
	if IsNumericType(a) && IsNumericType(b) {
		return true
	}
	if (a == TypeDate && b == TypeTimestamp) || (a == TypeTimestamp && b == TypeDate) {
		return true
	}
	if dialect.BooleanIntegerComparable() {
		if (a == TypeBoolean && b == TypeNumeric) || (a == TypeNumeric && b == TypeBoolean) {
			return true
		}
	}
	return false
}
