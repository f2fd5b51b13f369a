package analyzer

import (
	"fmt"

	"github.com/pondpilot/flowscope/ast"
	"github.com/pondpilot/flowscope/model"
)

// AnalyzeStatement dispatches stmt to its statement-specific analysis
// (spec.md §4.6), then assembles the finished StatementLineage: applying
// pending filter predicates, computing join_count/complexity_score, and
// recording the classified statement type.
func (b *Batch) AnalyzeStatement(index int, stmt ast.Statement, sourceName *string) model.StatementLineage {
	ctx := NewContext(index)

	statementType := "UNKNOWN"
	switch s := stmt.(type) {
	case *ast.QueryStatement:
		b.AnalyzeQuery(ctx, s.Query, "")
		statementType = classifyQueryType(s.Query)
	case *ast.InsertStatement:
		b.analyzeInsert(ctx, s)
		statementType = "INSERT"
	case *ast.CreateTableStatement:
		if s.Query != nil {
			b.analyzeCreateTableAs(ctx, s)
			statementType = "CREATE_TABLE_AS"
		} else {
			b.analyzeCreateTable(ctx, s)
			statementType = "CREATE_TABLE"
		}
	case *ast.CreateViewStatement:
		b.analyzeCreateView(ctx, s)
		statementType = "CREATE_VIEW"
	case *ast.UpdateStatement:
		b.analyzeUpdate(ctx, s)
		statementType = "UPDATE"
	case *ast.DeleteStatement:
		b.analyzeDelete(ctx, s)
		statementType = "DELETE"
	case *ast.MergeStatement:
		b.analyzeMerge(ctx, s)
		statementType = "MERGE"
	case *ast.DropStatement:
		b.analyzeDrop(ctx, s)
		statementType = "DROP"
	default:
		b.addIssue(model.NewWarning(model.CodeUnsupportedSyntax,
			"statement type not fully supported for lineage analysis").WithStatement(index))
	}

	ctx.ApplyPendingFilters()

	return model.StatementLineage{
		StatementIndex:  index,
		StatementType:   statementType,
		SourceName:      sourceName,
		Nodes:           ctx.Nodes(),
		Edges:           ctx.Edges(),
		JoinCount:       ctx.JoinCount(),
		ComplexityScore: complexityScore(ctx.JoinCount(), len(ctx.Nodes())),
	}
}

// classifyQueryType labels a top-level Query the way spec.md §4.6 expects:
// CTE_SELECT for any WITH-prefixed query, else a label for its body shape.
func classifyQueryType(q *ast.Query) string {
	if q == nil {
		return "SELECT"
	}
	if q.With != nil {
		return "CTE_SELECT"
	}
	return classifySetExprType(q.Body)
}

func classifySetExprType(body ast.SetExpr) string {
	switch e := body.(type) {
	case *ast.QueryExpr:
		return classifySetExprType(e.Query.Body)
	case *ast.SetOperation:
		return "SET_OPERATION"
	case *ast.Values:
		return "VALUES"
	default:
		return "SELECT"
	}
}

func (b *Batch) analyzeInsert(ctx *Context, insert *ast.InsertStatement) {
	canonical, _ := b.CanonicalizeTableReference(insert.TableName)
	nodeID, nodeType := b.RelationIdentity(canonical)

	ctx.AddNode(model.Node{
		ID:            nodeID,
		Type:          nodeType,
		Label:         relationLabel(canonical),
		QualifiedName: strPtr(canonical),
	})

	b.tracker.RecordProduced(canonical, ctx.StatementIndex)
	ctx.RegisterTableInScope(canonical, nodeID)

	if insert.Source != nil {
		b.AnalyzeQuery(ctx, insert.Source, nodeID)
	}
}

func (b *Batch) analyzeCreateTable(ctx *Context, create *ast.CreateTableStatement) {
	canonical := b.NormalizeIdentifier(create.Name)
	entry := b.registry.RegisterCreatedTable(canonical, columnDefsToSchema(create.Columns), create.Temporary, ctx.StatementIndex)

	nodeID := "table_" + entry.Canonical
	ctx.AddNode(model.Node{
		ID:            nodeID,
		Type:          model.NodeTable,
		Label:         relationLabel(entry.Canonical),
		QualifiedName: strPtr(entry.Canonical),
	})
	ctx.RegisterTableInScope(entry.Canonical, nodeID)
	b.tracker.RecordProduced(entry.Canonical, ctx.StatementIndex)
	b.AddTableColumnsFromSchema(ctx, entry.Canonical, nodeID)
}

func (b *Batch) analyzeCreateTableAs(ctx *Context, create *ast.CreateTableStatement) {
	canonical := b.NormalizeIdentifier(create.Name)
	entry := b.registry.RegisterCreatedTable(canonical, nil, create.Temporary, ctx.StatementIndex)

	nodeID := "table_" + entry.Canonical
	ctx.AddNode(model.Node{
		ID:            nodeID,
		Type:          model.NodeTable,
		Label:         relationLabel(entry.Canonical),
		QualifiedName: strPtr(entry.Canonical),
	})
	ctx.RegisterTableInScope(entry.Canonical, nodeID)
	b.tracker.RecordProduced(entry.Canonical, ctx.StatementIndex)

	checkpoint := ctx.CheckpointOutputColumns()
	b.AnalyzeQuery(ctx, create.Query, nodeID)
	entry.Columns = outputColumnsToSchema(ctx.TakeOutputColumnsSince(checkpoint))
}

func (b *Batch) analyzeCreateView(ctx *Context, create *ast.CreateViewStatement) {
	canonical := b.NormalizeIdentifier(create.Name)
	entry := b.registry.RegisterCreatedTable(canonical, nil, create.Temporary, ctx.StatementIndex)

	nodeID := "view_" + entry.Canonical
	ctx.AddNode(model.Node{
		ID:            nodeID,
		Type:          model.NodeView,
		Label:         relationLabel(entry.Canonical),
		QualifiedName: strPtr(entry.Canonical),
	})
	ctx.RegisterTableInScope(entry.Canonical, nodeID)
	b.tracker.RecordViewProduced(entry.Canonical, ctx.StatementIndex)

	checkpoint := ctx.CheckpointOutputColumns()
	b.AnalyzeQuery(ctx, create.Query, nodeID)
	entry.Columns = outputColumnsToSchema(ctx.TakeOutputColumnsSince(checkpoint))
}

// outputColumnsToSchema converts the output columns a CREATE TABLE/VIEW AS
// query produced into the new relation's declared column schema, so later
// statements in the batch can resolve references against it.
func outputColumnsToSchema(cols []OutputColumn) []model.ColumnSchema {
	if len(cols) == 0 {
		return nil
	}
	out := make([]model.ColumnSchema, 0, len(cols))
	for _, c := range cols {
		out = append(out, model.ColumnSchema{Name: c.Name})
	}
	return out
}

func columnDefsToSchema(cols []ast.ColumnDef) []model.ColumnSchema {
	if len(cols) == 0 {
		return nil
	}
	out := make([]model.ColumnSchema, 0, len(cols))
	for _, c := range cols {
		col := model.ColumnSchema{Name: c.Name, IsPrimaryKey: c.IsPrimaryKey}
		if c.DataType != "" {
			dt := c.DataType
			col.DataType = &dt
		}
		if c.ForeignKey != nil {
			fk := fmt.Sprintf("%s.%s", c.ForeignKey.Table, c.ForeignKey.Column)
			col.ForeignKey = &fk
		}
		out = append(out, col)
	}
	return out
}

func (b *Batch) analyzeUpdate(ctx *Context, update *ast.UpdateStatement) {
	targetNodeID := b.AnalyzeDMLTargetFromTableWithJoins(ctx, update.Table)

	if update.From != nil {
		b.AnalyzeTableWithJoins(ctx, *update.From, targetNodeID)
	}

	for _, join := range update.Table.Joins {
		ctx.lastOperation = "JOIN"
		b.AnalyzeTableFactor(ctx, join.Relation, targetNodeID)
	}
	ctx.lastOperation = ""

	ew := NewExpressionWalker(b, ctx)
	for _, assignment := range update.Assignments {
		ew.Analyze(assignment.Value)
	}
	if update.Selection != nil {
		ew.Analyze(update.Selection)
	}
}

func (b *Batch) analyzeDelete(ctx *Context, del *ast.DeleteStatement) {
	for _, t := range del.From {
		b.RegisterAliasesInTableWithJoins(ctx, t)
	}
	for _, t := range del.Using {
		b.RegisterAliasesInTableWithJoins(ctx, t)
	}

	var targetIDs []string
	if len(del.Tables) > 0 {
		for _, name := range del.Tables {
			targetCanonical, ok := b.ResolveTableAlias(ctx, name)
			if !ok {
				targetCanonical, _ = b.CanonicalizeTableReference(name)
			}
			_, nodeID := b.AnalyzeDMLTarget(ctx, targetCanonical, "")
			targetIDs = append(targetIDs, nodeID)
		}
	} else if len(del.From) > 0 {
		if t, ok := del.From[0].Relation.(*ast.Table); ok {
			_, nodeID := b.AnalyzeDMLTarget(ctx, t.Name, t.Alias)
			targetIDs = append(targetIDs, nodeID)
		}
	}

	analyzeSources := func(tables []ast.TableWithJoins) {
		for _, t := range tables {
			if len(targetIDs) == 0 {
				b.AnalyzeTableWithJoins(ctx, t, "")
				continue
			}
			for _, targetID := range targetIDs {
				b.AnalyzeTableWithJoins(ctx, t, targetID)
			}
		}
	}
	analyzeSources(del.From)
	analyzeSources(del.Using)

	if del.Selection != nil {
		NewExpressionWalker(b, ctx).Analyze(del.Selection)
	}
}

func (b *Batch) analyzeMerge(ctx *Context, merge *ast.MergeStatement) {
	targetID := b.AnalyzeDMLTargetFactor(ctx, merge.Target)
	b.AnalyzeTableFactor(ctx, merge.Source, targetID)

	ew := NewExpressionWalker(b, ctx)
	ew.Analyze(merge.On)

	for _, clause := range merge.Clauses {
		switch clause.Action.Kind {
		case ast.MergeActionUpdate:
			for _, assignment := range clause.Action.Assignments {
				ew.Analyze(assignment.Value)
			}
		case ast.MergeActionInsert:
			for _, row := range clause.Action.InsertRows {
				for _, value := range row {
					ew.Analyze(value)
				}
			}
		case ast.MergeActionDelete:
			// no further expressions
		}
		if clause.Predicate != nil {
			ew.Analyze(clause.Predicate)
		}
	}
}

func (b *Batch) analyzeDrop(ctx *Context, drop *ast.DropStatement) {
	if !b.registry.AllowImplied() {
		return
	}
	if drop.ObjectType != ast.DropTable && drop.ObjectType != ast.DropView {
		return
	}
	for _, name := range drop.Names {
		canonical, _ := b.CanonicalizeTableReference(name)
		b.registry.Remove([]string{canonical})
		b.tracker.Remove(canonical)
	}
}

// complexityScore is spec.md §9's "any conformant function" complexity
// formula: monotone in both join and node counts, bounded to [1, 100].
func complexityScore(joinCount, nodeCount int) int {
	score := 10 + 15*joinCount + 2*nodeCount
	if score < 1 {
		return 1
	}
	if score > 100 {
		return 100
	}
	return score
}
