// Package analyzer implements the lineage analyzer core (spec.md §4): it
// walks a batch's typed ast.Statement values and produces per-statement
// model.StatementLineage graphs plus a model.GlobalLineage spanning the
// batch, accumulating model.Issue diagnostics along the way.
//
// The package is organized the way the original implementation splits it:
// a per-statement Context carrying scope/alias/output-column bookkeeping
// (this file), an expression analyzer (expression.go), a SELECT analyzer
// (select.go), a statement dispatcher (statement.go), a CTE-bypass graph
// post-processor (transform.go), and the top-level batch driver plus
// result assembly (analyzer.go).
package analyzer

import (
	"github.com/pondpilot/flowscope/model"
)

// ColumnRef is a (possibly table-qualified) reference to a source column,
// collected while walking a SELECT projection/filter expression.
type ColumnRef struct {
	Table         string // alias/table text as written; empty if unqualified
	Column        string
	ResolvedTable string // canonical table name, once resolved
}

// OutputColumn records one column a SELECT (or VALUES row) produced, so
// that an enclosing query can resolve references to it (as a CTE column,
// or via lateral column alias).
type OutputColumn struct {
	Name       string
	Sources    []ColumnRef
	Expression string
	NodeID     string
}

// JoinInfo carries the join type/condition of the join currently being
// processed, so the table node created for its right-hand relation can be
// tagged with it.
type JoinInfo struct {
	JoinType      *model.JoinType
	JoinCondition string
}

// Scope is one level of the alias-resolution stack: the aliases and
// subquery aliases introduced by a single SELECT's FROM clause, searched
// for that SELECT and anything nested inside it (spec.md §4.3's "innermost
// scope wins" rule). A Scope is not searched from sibling SELECTs at the
// same nesting depth, but Context.ResolveAlias falls back to a flat
// statement-wide alias map when no scope on the stack matches.
type Scope struct {
	Aliases         map[string]string // alias -> canonical table name
	SubqueryAliases map[string]bool
}

func newScope() *Scope {
	return &Scope{Aliases: make(map[string]string), SubqueryAliases: make(map[string]bool)}
}

// Context is the per-statement working state the analyzer threads through
// every method that contributes nodes/edges for one statement.
type Context struct {
	StatementIndex int

	scopeStack []*Scope

	// tableNodeIDs maps every canonical table/CTE name seen anywhere in
	// this statement to its node id, regardless of which scope introduced
	// it — used as a last-resort fallback when scope-based resolution
	// finds nothing (mirrors the original's "legacy/loose scoping"
	// fallback map).
	tableNodeIDs map[string]string
	tableAliases map[string]string // flat alias map, global fallback

	cteDefinitions map[string]string           // cte name -> node id
	cteColumns     map[string][]OutputColumn   // cte name -> its output columns
	outputColumns  []OutputColumn

	nodeIDs map[string]bool
	edgeIDs map[string]bool
	nodes   []model.Node
	edges   []model.Edge

	pendingFilters map[string][]model.FilterPredicate

	currentJoin    JoinInfo
	lastOperation  string

	// GROUP BY bookkeeping for the current SELECT.
	hasGroupBy      bool
	groupByAll      bool
	groupingColumns map[string]bool

	joinCount int
}

// NewContext returns an empty per-statement Context.
func NewContext(statementIndex int) *Context {
	return &Context{
		StatementIndex:  statementIndex,
		tableNodeIDs:    make(map[string]string),
		tableAliases:    make(map[string]string),
		cteDefinitions:  make(map[string]string),
		cteColumns:      make(map[string][]OutputColumn),
		nodeIDs:         make(map[string]bool),
		edgeIDs:         make(map[string]bool),
		pendingFilters:  make(map[string][]model.FilterPredicate),
		groupingColumns: make(map[string]bool),
	}
}

// PushScope enters a new SELECT's alias scope.
func (c *Context) PushScope() { c.scopeStack = append(c.scopeStack, newScope()) }

// PopScope leaves the current SELECT's alias scope.
func (c *Context) PopScope() {
	if len(c.scopeStack) > 0 {
		c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
	}
}

func (c *Context) currentScope() *Scope {
	if len(c.scopeStack) == 0 {
		c.PushScope()
	}
	return c.scopeStack[len(c.scopeStack)-1]
}

// RegisterAliasInScope binds alias to canonical in the current (innermost)
// scope, and also in the flat statement-wide alias map that ResolveAlias
// falls back to.
func (c *Context) RegisterAliasInScope(alias, canonical string) {
	c.currentScope().Aliases[alias] = canonical
	c.tableAliases[alias] = canonical
}

// RegisterSubqueryAliasInScope marks alias as a subquery alias (no
// canonical relation name) in the current scope.
func (c *Context) RegisterSubqueryAliasInScope(alias string) {
	c.currentScope().SubqueryAliases[alias] = true
}

// RegisterTableInScope records table's node id for ownership/column
// resolution, and also binds table's own name as an implicit alias of
// itself in the current scope (so `FROM orders` lets `orders.id` resolve).
func (c *Context) RegisterTableInScope(canonical, nodeID string) {
	c.tableNodeIDs[canonical] = nodeID
	c.currentScope().Aliases[canonical] = canonical
}

// ResolveAlias looks up qualifier against the scope stack innermost-first,
// falling back to the flat global alias map.
func (c *Context) ResolveAlias(qualifier string) (string, bool) {
	for i := len(c.scopeStack) - 1; i >= 0; i-- {
		if canonical, ok := c.scopeStack[i].Aliases[qualifier]; ok {
			return canonical, true
		}
	}
	if canonical, ok := c.tableAliases[qualifier]; ok {
		return canonical, true
	}
	return "", false
}

// IsSubqueryAlias reports whether qualifier was registered as a subquery
// alias in any scope on the stack.
func (c *Context) IsSubqueryAlias(qualifier string) bool {
	for i := len(c.scopeStack) - 1; i >= 0; i-- {
		if c.scopeStack[i].SubqueryAliases[qualifier] {
			return true
		}
	}
	return false
}

// TablesInCurrentScope returns the canonical table names visible in the
// innermost scope, used to disambiguate unqualified column references.
func (c *Context) TablesInCurrentScope() []string {
	if len(c.scopeStack) == 0 {
		return nil
	}
	scope := c.scopeStack[len(c.scopeStack)-1]
	seen := make(map[string]bool)
	var out []string
	for _, canonical := range scope.Aliases {
		if !seen[canonical] {
			seen[canonical] = true
			out = append(out, canonical)
		}
	}
	return out
}

// AddNode appends n to the statement's node list if its id has not already
// been added (nodes are added exactly once, the first time they are seen).
func (c *Context) AddNode(n model.Node) {
	if c.nodeIDs[n.ID] {
		return
	}
	c.nodeIDs[n.ID] = true
	c.nodes = append(c.nodes, n)
}

// AddEdge appends e to the statement's edge list if an edge with the same
// dedup key (model.Edge.Key) has not already been added.
func (c *Context) AddEdge(e model.Edge) {
	key := e.Key()
	if c.edgeIDs[key] {
		return
	}
	c.edgeIDs[key] = true
	if e.JoinType != nil {
		c.joinCount++
	}
	c.edges = append(c.edges, e)
}

// CheckpointOutputColumns returns len(c.outputColumns), to be passed to
// TakeOutputColumnsSince after recursing into a nested query. This is the
// "projection checkpoint" pattern spec.md §4.3 describes: Go has no
// generator/yield primitive, so the nested call appends to the shared
// outputColumns slice and the caller drains only the tail it produced.
func (c *Context) CheckpointOutputColumns() int { return len(c.outputColumns) }

// TakeOutputColumnsSince returns and removes the output columns appended
// since checkpoint was captured; columns recorded before it stay in place.
func (c *Context) TakeOutputColumnsSince(checkpoint int) []OutputColumn {
	if checkpoint >= len(c.outputColumns) {
		return nil
	}
	out := make([]OutputColumn, len(c.outputColumns)-checkpoint)
	copy(out, c.outputColumns[checkpoint:])
	c.outputColumns = c.outputColumns[:checkpoint]
	return out
}

// RecordOutputColumn appends col to the statement's running output-column
// list (consumed later via the checkpoint pattern above).
func (c *Context) RecordOutputColumn(col OutputColumn) {
	c.outputColumns = append(c.outputColumns, col)
}

// DefineCTE records name as resolving to nodeID, and its output column list
// for later column-level resolution (`cte.col` references).
func (c *Context) DefineCTE(name, nodeID string, columns []OutputColumn) {
	c.cteDefinitions[name] = nodeID
	c.cteColumns[name] = columns
}

// IsCTE reports whether name is a CTE defined earlier in this statement.
func (c *Context) IsCTE(name string) (string, bool) {
	id, ok := c.cteDefinitions[name]
	return id, ok
}

// ClearGrouping resets GROUP BY bookkeeping at the start of a new SELECT's
// column analysis.
func (c *Context) ClearGrouping() {
	c.hasGroupBy = false
	c.groupByAll = false
	c.groupingColumns = make(map[string]bool)
}

// AddGroupingColumn records expr as one of the current SELECT's GROUP BY
// keys.
func (c *Context) AddGroupingColumn(expr string) {
	c.hasGroupBy = true
	c.groupingColumns[expr] = true
}

// IsGroupingColumn reports whether expr matches a previously-recorded
// GROUP BY key, normalized the same way AddGroupingColumn's caller
// normalizes expr before recording it.
func (c *Context) IsGroupingColumn(expr string) bool { return c.groupingColumns[expr] }

// HasGroupBy reports whether the current SELECT has any GROUP BY clause
// (explicit list or GROUP BY ALL).
func (c *Context) HasGroupBy() bool { return c.hasGroupBy || c.groupByAll }

// SetGroupByAll marks the current SELECT as using GROUP BY ALL.
func (c *Context) SetGroupByAll() { c.groupByAll = true }

// GroupByAll reports whether the current SELECT used GROUP BY ALL.
func (c *Context) GroupByAll() bool { return c.groupByAll }

// AddPendingFilter queues pred against table, to be attached to the
// table's Node when ApplyPendingFilters runs at the end of the statement's
// analysis, after all of the statement's nodes have been added.
func (c *Context) AddPendingFilter(table string, pred model.FilterPredicate) {
	c.pendingFilters[table] = append(c.pendingFilters[table], pred)
}

// ApplyPendingFilters attaches every queued FilterPredicate to its table's
// Node, matched by QualifiedName, then clears the queue.
func (c *Context) ApplyPendingFilters() {
	for table, preds := range c.pendingFilters {
		for i := range c.nodes {
			if c.nodes[i].QualifiedName != nil && *c.nodes[i].QualifiedName == table {
				c.nodes[i].Filters = append(c.nodes[i].Filters, preds...)
				break
			}
		}
	}
	c.pendingFilters = make(map[string][]model.FilterPredicate)
}

// Nodes returns the statement's accumulated node list.
func (c *Context) Nodes() []model.Node { return c.nodes }

// Edges returns the statement's accumulated edge list.
func (c *Context) Edges() []model.Edge { return c.edges }

// JoinCount returns the number of join-bearing edges recorded, used for
// StatementLineage.JoinCount and the complexity score.
func (c *Context) JoinCount() int { return c.joinCount }

// relationLabel extracts the final, unqualified component of a canonical
// dotted name, for use as a Node's human-readable Label.
func relationLabel(canonical string) string {
	parts := []rune(canonical)
	last := 0
	for i, r := range parts {
		if r == '.' {
			last = i + 1
		}
	}
	return string(parts[last:])
}
