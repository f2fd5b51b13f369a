package analyzer

import (
	"github.com/pondpilot/flowscope/ast"
	"github.com/pondpilot/flowscope/internal/helpers"
	"github.com/pondpilot/flowscope/model"
	"github.com/pondpilot/flowscope/schema"
	"github.com/pondpilot/flowscope/tracker"
)

// Batch is the shared state spanning every statement in one Analyze call:
// the schema registry, the cross-statement tracker, the accumulated
// diagnostics, and the batch-wide options. Exactly one Batch is created per
// call to Analyze (analyzer.go), and every per-statement helper method
// below takes the statement's *Context alongside it.
type Batch struct {
	registry *schema.Registry
	tracker  *tracker.Tracker
	dialect  model.Dialect

	columnLineageEnabled bool
	includeGlobalLineage bool

	issues []model.Issue
}

func newBatch(dialect model.Dialect, reg *schema.Registry, opts model.AnalyzeOptions) *Batch {
	return &Batch{
		registry:             reg,
		tracker:              tracker.New(),
		dialect:              dialect,
		columnLineageEnabled: opts.ColumnLineage,
		includeGlobalLineage: opts.IncludeGlobalLineage,
	}
}

func (b *Batch) addIssue(issue model.Issue) { b.issues = append(b.issues, issue) }

// NormalizeIdentifier applies the batch's case-sensitivity policy.
func (b *Batch) NormalizeIdentifier(name string) string {
	return b.registry.NormalizeIdentifier(name)
}

// CanonicalizeTableReference resolves ref (dot-joined) against the
// registry's default schema/search path, returning the canonical name and
// whether it matched something already known to the registry.
func (b *Batch) CanonicalizeTableReference(ref string) (canonical string, matchedSchema bool) {
	parts := schema.ParseQualifiedName(ref)
	if entry := b.registry.Resolve(parts); entry != nil {
		return entry.Canonical, true
	}
	return b.registry.CanonicalizeTableReference(parts), false
}

// RelationIdentity delegates to the tracker: views get `view_` ids, tables
// get `table_` ids.
func (b *Batch) RelationIdentity(canonical string) (string, model.NodeType) {
	return b.tracker.RelationIdentity(canonical)
}

// RelationNodeID is a convenience wrapper around RelationIdentity.
func (b *Batch) RelationNodeID(canonical string) string {
	return b.tracker.RelationNodeID(canonical)
}

// AddSourceTable registers tableName (a name as written in SQL, possibly
// dotted) as a source relation for the current statement: resolving it
// against CTEs first, then the schema registry, creating its Node the
// first time it is seen, and wiring a DataFlow edge to targetNode if one
// is given. It returns the canonical name (for alias registration), or ""
// if none could be determined.
func (b *Batch) AddSourceTable(ctx *Context, tableName, targetNode string) string {
	if cteNodeID, ok := ctx.IsCTE(tableName); ok {
		ctx.RegisterTableInScope(tableName, cteNodeID)
		b.wireDataFlowIfTarget(ctx, cteNodeID, targetNode)
		return tableName
	}

	canonical, _ := b.CanonicalizeTableReference(tableName)
	nodeID, nodeType := b.RelationIdentity(canonical)

	var resolutionSource *model.ResolutionSource
	entry := b.registry.Resolve(schema.ParseQualifiedName(canonical))
	if entry == nil && b.registry.AllowImplied() {
		entry = b.registry.RegisterImplied(schema.ParseQualifiedName(canonical), ctx.StatementIndex)
	}
	if entry != nil {
		src := entry.Origin
		resolutionSource = &src
	} else {
		unknown := model.ResolutionUnknown
		resolutionSource = &unknown
	}

	if !ctx.nodeIDs[nodeID] {
		if resolutionSource != nil && *resolutionSource == model.ResolutionUnknown && b.registry.HadImportedTables() {
			b.addIssue(model.NewWarning(model.CodeUnresolvedReference,
				"table '"+canonical+"' could not be resolved using provided schema metadata or search path").
				WithStatement(ctx.StatementIndex))
		}

		node := model.Node{
			ID:            nodeID,
			Type:          nodeType,
			Label:         relationLabel(canonical),
			QualifiedName: strPtr(canonical),
		}
		if resolutionSource != nil {
			node = node.WithResolutionSource(*resolutionSource)
		}
		if ctx.currentJoin.JoinType != nil {
			node = node.WithJoin(*ctx.currentJoin.JoinType, ctx.currentJoin.JoinCondition)
		}
		ctx.AddNode(node)
	}

	b.tracker.RecordConsumed(canonical, ctx.StatementIndex)
	ctx.RegisterTableInScope(canonical, nodeID)
	b.wireDataFlowIfTarget(ctx, nodeID, targetNode)
	return canonical
}

func (b *Batch) wireDataFlowIfTarget(ctx *Context, sourceID, targetNode string) {
	if targetNode == "" || sourceID == "" {
		return
	}
	edge := model.Edge{From: sourceID, To: targetNode, Type: model.EdgeDataFlow}
	if ctx.lastOperation != "" {
		edge.Operation = strPtr(ctx.lastOperation)
	}
	if ctx.currentJoin.JoinType != nil {
		edge.JoinType = ctx.currentJoin.JoinType
		if ctx.currentJoin.JoinCondition != "" {
			edge.JoinCondition = strPtr(ctx.currentJoin.JoinCondition)
		}
	}
	edge.ID = edgeID(edge)
	ctx.AddEdge(edge)
}

// AddTableColumnsFromSchema expands every column the registry knows about
// for tableCanonical into Column nodes owned by tableNodeID.
func (b *Batch) AddTableColumnsFromSchema(ctx *Context, tableCanonical, tableNodeID string) {
	entry := b.registry.Resolve(schema.ParseQualifiedName(tableCanonical))
	if entry == nil {
		return
	}
	for _, col := range entry.Columns {
		colID := helpers.ColumnNodeID(tableNodeID, b.NormalizeIdentifier(col.Name))
		ctx.AddNode(model.Node{
			ID:            colID,
			Type:          model.NodeColumn,
			Label:         col.Name,
			QualifiedName: strPtr(tableCanonical + "." + col.Name),
		})
		ctx.AddEdge(model.Edge{
			ID:   edgeID(model.Edge{From: tableNodeID, To: colID, Type: model.EdgeOwnership}),
			From: tableNodeID, To: colID, Type: model.EdgeOwnership,
		})
	}
}

// ExpandWildcard handles `SELECT *` / `SELECT t.*`: it resolves which
// table(s) to expand, and for each one either emits its known schema
// columns as output columns (exact lineage) or, absent schema metadata,
// emits an ApproximateLineage info Issue and an approximate DataFlow edge
// straight from the table to targetNode (spec.md §4.5's "approximate
// lineage" fallback).
func (b *Batch) ExpandWildcard(ctx *Context, qualifier, targetNode string) {
	var tables []string
	if qualifier != "" {
		if canonical, ok := b.ResolveTableAlias(ctx, qualifier); ok {
			tables = []string{canonical}
		}
	} else {
		for canonical := range ctx.tableNodeIDs {
			tables = append(tables, canonical)
		}
	}

	for _, tableCanonical := range tables {
		entry := b.registry.Resolve(schema.ParseQualifiedName(tableCanonical))
		if entry != nil && len(entry.Columns) > 0 {
			for _, col := range entry.Columns {
				b.addOutputColumn(ctx, outputColumnParams{
					name:    col.Name,
					sources: []ColumnRef{{Table: tableCanonical, Column: col.Name, ResolvedTable: tableCanonical}},
					target:  targetNode,
				})
			}
			continue
		}

		b.addIssue(model.NewInfo(model.CodeApproximateLineage,
			"SELECT * from '"+tableCanonical+"' - column list unknown without schema metadata").
			WithStatement(ctx.StatementIndex))

		if targetNode != "" {
			if sourceID, ok := ctx.tableNodeIDs[tableCanonical]; ok {
				edge := model.Edge{From: sourceID, To: targetNode, Type: model.EdgeDataFlow, Approximate: true}
				edge.ID = edgeID(edge)
				ctx.AddEdge(edge)
			}
		}
	}
}

// ResolveTableAlias resolves qualifier to a canonical relation name:
// scope-stack aliases first, then CTE names, then (if it is a known
// subquery alias) "no canonical name", finally falling back to treating
// qualifier itself as a table reference.
func (b *Batch) ResolveTableAlias(ctx *Context, qualifier string) (string, bool) {
	if qualifier == "" {
		return "", false
	}
	if canonical, ok := ctx.ResolveAlias(qualifier); ok {
		return canonical, true
	}
	if _, ok := ctx.IsCTE(qualifier); ok {
		return qualifier, true
	}
	if ctx.IsSubqueryAlias(qualifier) {
		return "", false
	}
	canonical, _ := b.CanonicalizeTableReference(qualifier)
	return canonical, true
}

// ResolveColumnTable resolves an unqualified (or qualified) column
// reference to the canonical name of the table it belongs to, per
// spec.md §4.3's scope-based disambiguation: a qualifier resolves via
// ResolveTableAlias; an unqualified column is assigned to the sole table
// in scope, or disambiguated against CTE/schema column lists, emitting an
// UnresolvedReference warning on ambiguity or on no match with more than
// one candidate table.
func (b *Batch) ResolveColumnTable(ctx *Context, qualifier, column string) (string, bool) {
	if qualifier != "" {
		return b.ResolveTableAlias(ctx, qualifier)
	}

	tablesInScope := ctx.TablesInCurrentScope()
	if len(tablesInScope) == 0 {
		for canonical := range ctx.tableNodeIDs {
			tablesInScope = append(tablesInScope, canonical)
		}
	}
	if len(tablesInScope) == 1 {
		return tablesInScope[0], true
	}
	if len(tablesInScope) == 0 {
		return "", false
	}

	normalizedCol := b.NormalizeIdentifier(column)
	var candidates []string
	for _, tableCanonical := range tablesInScope {
		if cols, ok := ctx.cteColumns[tableCanonical]; ok {
			for _, c := range cols {
				if c.Name == normalizedCol {
					candidates = append(candidates, tableCanonical)
					break
				}
			}
			continue
		}
		if entry := b.registry.Resolve(schema.ParseQualifiedName(tableCanonical)); entry != nil {
			for _, c := range entry.Columns {
				if b.NormalizeIdentifier(c.Name) == normalizedCol {
					candidates = append(candidates, tableCanonical)
					break
				}
			}
		}
	}

	switch len(candidates) {
	case 1:
		return candidates[0], true
	case 0:
		if len(tablesInScope) == 1 {
			return tablesInScope[0], true
		}
		b.addIssue(model.NewWarning(model.CodeUnresolvedReference,
			"column '"+column+"' is ambiguous across tables in scope").WithStatement(ctx.StatementIndex))
		return "", false
	default:
		b.addIssue(model.NewWarning(model.CodeUnresolvedReference,
			"column '"+column+"' exists in multiple tables in scope; qualify the column to disambiguate").
			WithStatement(ctx.StatementIndex))
		return "", false
	}
}

type outputColumnParams struct {
	name        string
	sources     []ColumnRef
	expression  string
	target      string
	approximate bool
	aggregation *model.AggregationInfo
}

// addOutputColumn creates the output Column node, wires an Ownership edge
// from target (if given), and for each source column wires the owning
// table's Ownership edge plus a DataFlow (or Derivation, if an expression
// is present) edge into the output column.
func (b *Batch) addOutputColumn(ctx *Context, p outputColumnParams) {
	normalizedName := b.NormalizeIdentifier(p.name)
	nodeID := helpers.ColumnNodeID(p.target, normalizedName)
	if p.target == "" {
		nodeID = helpers.ColumnNodeID("stmt", normalizedName)
	}

	node := model.Node{ID: nodeID, Type: model.NodeColumn, Label: normalizedName}
	if p.expression != "" {
		node = node.WithExpression(p.expression)
	}
	if p.aggregation != nil {
		node = node.WithAggregation(*p.aggregation)
	}
	ctx.AddNode(node)

	if p.target != "" {
		ctx.AddEdge(model.Edge{
			ID: edgeID(model.Edge{From: p.target, To: nodeID, Type: model.EdgeOwnership}),
			From: p.target, To: nodeID, Type: model.EdgeOwnership,
		})
	}

	for _, source := range p.sources {
		tableCanonical, ok := b.ResolveColumnTable(ctx, source.Table, source.Column)
		if !ok {
			continue
		}

		tableNodeID, ok := ctx.tableNodeIDs[tableCanonical]
		if !ok {
			if cteID, isCTE := ctx.IsCTE(tableCanonical); isCTE {
				tableNodeID = cteID
			} else {
				tableNodeID = b.RelationNodeID(tableCanonical)
			}
		}

		normalizedSourceCol := b.NormalizeIdentifier(source.Column)
		sourceColID := helpers.ColumnNodeID(tableNodeID, normalizedSourceCol)
		if cteCols, isCTE := ctx.cteColumns[tableCanonical]; isCTE {
			for _, c := range cteCols {
				if c.Name == normalizedSourceCol {
					sourceColID = c.NodeID
					break
				}
			}
		}

		b.validateColumn(ctx, tableCanonical, source.Column)

		ctx.AddNode(model.Node{
			ID: sourceColID, Type: model.NodeColumn, Label: source.Column,
			QualifiedName: strPtr(tableCanonical + "." + source.Column),
		})
		ctx.AddEdge(model.Edge{
			ID: edgeID(model.Edge{From: tableNodeID, To: sourceColID, Type: model.EdgeOwnership}),
			From: tableNodeID, To: sourceColID, Type: model.EdgeOwnership,
		})

		flowType := model.EdgeDataFlow
		if p.expression != "" {
			flowType = model.EdgeDerivation
		}
		flowEdge := model.Edge{ID: "", From: sourceColID, To: nodeID, Type: flowType, Approximate: p.approximate}
		if p.expression != "" {
			flowEdge.Expression = strPtr(p.expression)
		}
		flowEdge.ID = edgeID(flowEdge)
		ctx.AddEdge(flowEdge)
	}

	ctx.RecordOutputColumn(OutputColumn{Name: normalizedName, Sources: p.sources, Expression: p.expression, NodeID: nodeID})
}

// validateColumn emits an UnknownColumn warning if tableCanonical has
// caller-supplied schema metadata that does not list column.
func (b *Batch) validateColumn(ctx *Context, tableCanonical, column string) {
	entry := b.registry.Resolve(schema.ParseQualifiedName(tableCanonical))
	if entry == nil || len(entry.Columns) == 0 {
		return
	}
	normalized := b.NormalizeIdentifier(column)
	for _, c := range entry.Columns {
		if b.NormalizeIdentifier(c.Name) == normalized {
			return
		}
	}
	b.addIssue(model.NewWarning(model.CodeUnknownColumn,
		"column '"+column+"' is not declared on table '"+tableCanonical+"'").WithStatement(ctx.StatementIndex))
}

// ConvertJoinOperator maps a generic ast.JoinOperatorType to model.JoinType
// and extracts its condition text, where present.
func ConvertJoinOperator(op ast.JoinOperator) (*model.JoinType, string) {
	var jt model.JoinType
	switch op.Type {
	case ast.JoinTypeInner:
		jt = model.JoinInner
	case ast.JoinTypeLeft:
		jt = model.JoinLeft
	case ast.JoinTypeRight:
		jt = model.JoinRight
	case ast.JoinTypeFull:
		jt = model.JoinFull
	case ast.JoinTypeCross:
		return joinPtr(model.JoinCross), ""
	default:
		jt = model.JoinInner
	}
	return joinPtr(jt), joinConditionText(op.Constraint)
}

func joinConditionText(c ast.JoinConstraint) string {
	switch v := c.(type) {
	case *ast.OnConstraint:
		return v.Expr.String()
	case *ast.UsingConstraint:
		out := "USING ("
		for i, col := range v.Columns {
			if i > 0 {
				out += ", "
			}
			out += col
		}
		return out + ")"
	case *ast.NaturalConstraint:
		return "NATURAL"
	default:
		return ""
	}
}

// JoinOperationLabel renders jt as the edge "operation" label the original
// implementation uses (e.g. "INNER_JOIN").
func JoinOperationLabel(jt *model.JoinType) string {
	if jt == nil {
		return ""
	}
	switch *jt {
	case model.JoinInner:
		return "INNER_JOIN"
	case model.JoinLeft:
		return "LEFT_JOIN"
	case model.JoinRight:
		return "RIGHT_JOIN"
	case model.JoinFull:
		return "FULL_JOIN"
	case model.JoinCross:
		return "CROSS_JOIN"
	case model.JoinLeftSemi:
		return "LEFT_SEMI_JOIN"
	case model.JoinRightSemi:
		return "RIGHT_SEMI_JOIN"
	case model.JoinLeftAnti:
		return "LEFT_ANTI_JOIN"
	case model.JoinRightAnti:
		return "RIGHT_ANTI_JOIN"
	case model.JoinCrossApply:
		return "CROSS_APPLY"
	case model.JoinOuterApply:
		return "OUTER_APPLY"
	case model.JoinAsOf:
		return "AS_OF_JOIN"
	default:
		return ""
	}
}

func strPtr(s string) *string        { return &s }
func joinPtr(j model.JoinType) *model.JoinType { return &j }

func edgeID(e model.Edge) string { return "edge_" + e.From + "_" + e.To }
