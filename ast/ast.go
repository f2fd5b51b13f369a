// Package ast defines the generic, parser-vendor-agnostic SQL syntax tree
// that the analyzer package consumes. spec.md §6 is explicit that "the
// spec does not require a specific parser vendor" — only that the core
// get typed access to Statements, Queries, SetExprs, Selects, SelectItems,
// TableFactors, Expressions, JOIN operators and constraints, Assignments,
// MERGE clauses, and DDL targets. This package is that typed access layer,
// modeled on the shape the original Rust implementation's `sqlparser-rs`
// dependency exposes, translated into idiomatic Go: tagged interfaces with
// type switches rather than inheritance, since the AST is owned externally
// and is immutable once built.
//
// Concrete parsers (see the vitessql package) build these types; nothing
// in this package parses SQL text.
package ast

// Statement is any top-level SQL statement the analyzer dispatches on
// (spec.md §4.6).
type Statement interface {
	statementNode()
}

// Query is a (possibly CTE-prefixed) SELECT/set-operation/VALUES body.
type Query struct {
	With *With
	Body SetExpr
}

// With holds the CTE list introduced by a WITH clause.
type With struct {
	Recursive bool
	CTEs      []CTE
}

// CTE is one named subquery in a WITH clause.
type CTE struct {
	Name          string
	Query         *Query
	ColumnAliases []string
}

// SetExpr is the body of a Query: a bare SELECT, a set operation
// (UNION/INTERSECT/EXCEPT), a literal VALUES list, or a parenthesized
// nested Query.
type SetExpr interface {
	setExprNode()
}

// Select is a single SELECT body (spec.md §4.5).
type Select struct {
	Distinct   bool
	Projection []SelectItem
	From       []TableWithJoins
	Selection  Expr // WHERE; nil if absent
	GroupBy    GroupBy
	Having     Expr // nil if absent
}

func (*Select) setExprNode() {}

// SetOperationKind is UNION/INTERSECT/EXCEPT.
type SetOperationKind string

const (
	SetOpUnion     SetOperationKind = "union"
	SetOpIntersect SetOperationKind = "intersect"
	SetOpExcept    SetOperationKind = "except"
)

// SetOperation combines two set expressions, e.g. `a UNION b`.
type SetOperation struct {
	Left  SetExpr
	Op    SetOperationKind
	All   bool
	Right SetExpr
}

func (*SetOperation) setExprNode() {}

// Values is a literal `VALUES (...), (...)` body.
type Values struct {
	Rows [][]Expr
}

func (*Values) setExprNode() {}

// QueryExpr wraps a parenthesized nested Query as a SetExpr, e.g.
// `(SELECT ... ORDER BY ...)` used as one side of a set operation.
type QueryExpr struct {
	Query *Query
}

func (*QueryExpr) setExprNode() {}

// GroupBy is either an explicit expression list or `GROUP BY ALL`.
type GroupBy struct {
	All         bool
	Expressions []Expr
}

// SelectItem is one entry in a SELECT projection list.
type SelectItem interface {
	selectItemNode()
}

// UnnamedExpr is a projection item with no explicit alias.
type UnnamedExpr struct {
	Expr Expr
}

func (*UnnamedExpr) selectItemNode() {}

// ExprWithAlias is a projection item with an explicit `AS alias`.
type ExprWithAlias struct {
	Expr  Expr
	Alias string
}

func (*ExprWithAlias) selectItemNode() {}

// Wildcard is a bare `*` projection item.
type Wildcard struct{}

func (*Wildcard) selectItemNode() {}

// QualifiedWildcard is a `table.*` projection item.
type QualifiedWildcard struct {
	Qualifier string
}

func (*QualifiedWildcard) selectItemNode() {}

// TableWithJoins is one FROM-clause item: a primary relation plus zero or
// more JOINs against it.
type TableWithJoins struct {
	Relation TableFactor
	Joins    []Join
}

// Join is one JOIN clause attached to a TableWithJoins.
type Join struct {
	Relation TableFactor
	Operator JoinOperator
}

// JoinOperator carries the join type and its ON/USING/NATURAL constraint.
type JoinOperator struct {
	Type       JoinOperatorType
	Constraint JoinConstraint
}

// JoinOperatorType is the closed set of JOIN kinds the analyzer records.
type JoinOperatorType string

const (
	JoinTypeInner JoinOperatorType = "inner"
	JoinTypeLeft  JoinOperatorType = "left"
	JoinTypeRight JoinOperatorType = "right"
	JoinTypeFull  JoinOperatorType = "full"
	JoinTypeCross JoinOperatorType = "cross"
)

// JoinConstraint is the ON/USING/NATURAL/none condition of a JOIN.
type JoinConstraint interface {
	joinConstraintNode()
}

// OnConstraint is `JOIN ... ON <expr>`.
type OnConstraint struct{ Expr Expr }

func (*OnConstraint) joinConstraintNode() {}

// UsingConstraint is `JOIN ... USING (cols...)`.
type UsingConstraint struct{ Columns []string }

func (*UsingConstraint) joinConstraintNode() {}

// NaturalConstraint is a `NATURAL JOIN` with no explicit condition.
type NaturalConstraint struct{}

func (*NaturalConstraint) joinConstraintNode() {}

// NoConstraint is a CROSS JOIN or comma-join with no condition.
type NoConstraint struct{}

func (*NoConstraint) joinConstraintNode() {}

// TableFactor is one relation reference in a FROM/JOIN clause.
type TableFactor interface {
	tableFactorNode()
}

// Table is a plain `schema.name AS alias` reference.
type Table struct {
	Name  string // possibly qualified: catalog.schema.name
	Alias string // empty if absent
}

func (*Table) tableFactorNode() {}

// Derived is a parenthesized subquery in the FROM clause, optionally
// aliased (a "derived table").
type Derived struct {
	Subquery *Query
	Alias    string
	Lateral  bool
}

func (*Derived) tableFactorNode() {}

// NestedJoin is a parenthesized join tree used as a single FROM item.
type NestedJoin struct {
	TableWithJoins TableWithJoins
}

func (*NestedJoin) tableFactorNode() {}

// TableFunctionKind enumerates the extension syntaxes spec.md §4.5 says
// get a diagnostic rather than invented lineage.
type TableFunctionKind string

const (
	TableFunctionGeneric     TableFunctionKind = "table_function"
	TableFunctionUnnest      TableFunctionKind = "unnest"
	TableFunctionPivot       TableFunctionKind = "pivot"
	TableFunctionUnpivot     TableFunctionKind = "unpivot"
	TableFunctionMatchRecog  TableFunctionKind = "match_recognize"
	TableFunctionJSONTable   TableFunctionKind = "json_table"
)

// TableFunction is any of the extension table-producing syntaxes above.
type TableFunction struct {
	Kind  TableFunctionKind
	Alias string
}

func (*TableFunction) tableFactorNode() {}
