package render

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/pondpilot/flowscope/model"
)

// schemaVersion tags the export format; bump it on breaking schema changes.
const schemaVersion = "1"

const tablesDDL = `
CREATE TABLE _meta (
    key TEXT PRIMARY KEY,
    value TEXT
);

CREATE TABLE statements (
    id INTEGER PRIMARY KEY,
    statement_index INTEGER NOT NULL,
    statement_type TEXT NOT NULL,
    source_name TEXT,
    span_start INTEGER,
    span_end INTEGER,
    join_count INTEGER NOT NULL DEFAULT 0,
    complexity_score INTEGER
);

CREATE TABLE nodes (
    id TEXT PRIMARY KEY,
    statement_id INTEGER REFERENCES statements(id),
    node_type TEXT NOT NULL,
    label TEXT NOT NULL,
    qualified_name TEXT,
    expression TEXT,
    span_start INTEGER,
    span_end INTEGER,
    resolution_source TEXT
);

CREATE TABLE edges (
    id INTEGER PRIMARY KEY,
    statement_id INTEGER REFERENCES statements(id),
    edge_type TEXT NOT NULL,
    from_node_id TEXT NOT NULL,
    to_node_id TEXT NOT NULL,
    expression TEXT,
    operation TEXT,
    is_approximate BOOLEAN DEFAULT FALSE
);

CREATE TABLE joins (
    id INTEGER PRIMARY KEY,
    node_id TEXT NOT NULL REFERENCES nodes(id),
    statement_id INTEGER NOT NULL,
    join_type TEXT NOT NULL,
    join_condition TEXT
);

CREATE TABLE filters (
    id INTEGER PRIMARY KEY,
    node_id TEXT NOT NULL REFERENCES nodes(id),
    statement_id INTEGER NOT NULL,
    predicate TEXT NOT NULL,
    filter_type TEXT
);

CREATE TABLE aggregations (
    node_id TEXT PRIMARY KEY REFERENCES nodes(id),
    statement_id INTEGER NOT NULL,
    is_grouping_key BOOLEAN NOT NULL,
    function TEXT,
    is_distinct BOOLEAN DEFAULT FALSE
);

CREATE TABLE issues (
    id INTEGER PRIMARY KEY,
    statement_id INTEGER,
    severity TEXT NOT NULL,
    code TEXT NOT NULL,
    message TEXT NOT NULL,
    span_start INTEGER,
    span_end INTEGER
);

CREATE TABLE schema_tables (
    id INTEGER PRIMARY KEY,
    catalog TEXT,
    schema_name TEXT,
    name TEXT NOT NULL,
    resolution_source TEXT,
    UNIQUE(catalog, schema_name, name)
);

CREATE TABLE schema_columns (
    id INTEGER PRIMARY KEY,
    table_id INTEGER NOT NULL REFERENCES schema_tables(id),
    name TEXT NOT NULL,
    data_type TEXT,
    is_primary_key BOOLEAN DEFAULT FALSE
);

CREATE TABLE global_nodes (
    id TEXT PRIMARY KEY,
    node_type TEXT NOT NULL,
    label TEXT NOT NULL,
    qualified_name TEXT,
    resolution_source TEXT
);

CREATE TABLE global_edges (
    id TEXT PRIMARY KEY,
    from_node_id TEXT NOT NULL,
    to_node_id TEXT NOT NULL,
    edge_type TEXT NOT NULL,
    producer_statement INTEGER,
    consumer_statement INTEGER
);
`

// ExportDuckDB writes result into a fresh DuckDB database file at path,
// replacing any existing file there.
func ExportDuckDB(ctx context.Context, result *model.AnalyzeResult, path string) error {
	_ = os.Remove(path)

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("open duckdb database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, tablesDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := writeMeta(ctx, tx); err != nil {
		return err
	}
	if err := writeStatements(ctx, tx, result); err != nil {
		return err
	}
	if err := writeNodes(ctx, tx, result); err != nil {
		return err
	}
	if err := writeEdges(ctx, tx, result); err != nil {
		return err
	}
	if err := writeIssues(ctx, tx, result); err != nil {
		return err
	}
	if err := writeSchemaTables(ctx, tx, result); err != nil {
		return err
	}
	if err := writeGlobalLineage(ctx, tx, result); err != nil {
		return err
	}

	return tx.Commit()
}

func writeMeta(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO _meta (key, value) VALUES (?, ?), (?, ?)`,
		"schema_version", schemaVersion,
		"exported_at", time.Now().Format(time.RFC3339),
	)
	return err
}

func writeStatements(ctx context.Context, tx *sql.Tx, result *model.AnalyzeResult) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO statements
		(id, statement_index, statement_type, source_name, span_start, span_end, join_count, complexity_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for idx, s := range result.Statements {
		start, end := spanParts(s.Span)
		if _, err := stmt.ExecContext(ctx, idx, s.StatementIndex, s.StatementType, s.SourceName,
			start, end, s.JoinCount, s.ComplexityScore); err != nil {
			return fmt.Errorf("insert statement %d: %w", idx, err)
		}
	}
	return nil
}

func writeNodes(ctx context.Context, tx *sql.Tx, result *model.AnalyzeResult) error {
	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes
		(id, statement_id, node_type, label, qualified_name, expression, span_start, span_end, resolution_source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	joinStmt, err := tx.PrepareContext(ctx, `INSERT INTO joins
		(id, node_id, statement_id, join_type, join_condition) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer joinStmt.Close()

	filterStmt, err := tx.PrepareContext(ctx, `INSERT INTO filters
		(id, node_id, statement_id, predicate, filter_type) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer filterStmt.Close()

	aggStmt, err := tx.PrepareContext(ctx, `INSERT INTO aggregations
		(node_id, statement_id, is_grouping_key, function, is_distinct) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer aggStmt.Close()

	var joinID, filterID int64
	for stmtIdx, statement := range result.Statements {
		for _, node := range statement.Nodes {
			start, end := spanParts(node.Span)
			var resolution *string
			if node.ResolutionSource != nil {
				s := string(*node.ResolutionSource)
				resolution = &s
			}
			if _, err := nodeStmt.ExecContext(ctx, node.ID, stmtIdx, string(node.Type), node.Label,
				node.QualifiedName, node.Expression, start, end, resolution); err != nil {
				return fmt.Errorf("insert node %s: %w", node.ID, err)
			}

			if node.JoinType != nil {
				if _, err := joinStmt.ExecContext(ctx, joinID, node.ID, stmtIdx,
					string(*node.JoinType), node.JoinCondition); err != nil {
					return fmt.Errorf("insert join for node %s: %w", node.ID, err)
				}
				joinID++
			}

			for _, f := range node.Filters {
				if _, err := filterStmt.ExecContext(ctx, filterID, node.ID, stmtIdx,
					f.Expression, string(f.ClauseType)); err != nil {
					return fmt.Errorf("insert filter for node %s: %w", node.ID, err)
				}
				filterID++
			}

			if node.Aggregation != nil {
				if _, err := aggStmt.ExecContext(ctx, node.ID, stmtIdx,
					node.Aggregation.IsGroupingKey, node.Aggregation.Function, node.Aggregation.Distinct); err != nil {
					return fmt.Errorf("insert aggregation for node %s: %w", node.ID, err)
				}
			}
		}
	}
	return nil
}

func writeEdges(ctx context.Context, tx *sql.Tx, result *model.AnalyzeResult) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO edges
		(id, statement_id, edge_type, from_node_id, to_node_id, expression, operation, is_approximate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var edgeID int64
	for stmtIdx, statement := range result.Statements {
		for _, edge := range statement.Edges {
			if _, err := stmt.ExecContext(ctx, edgeID, stmtIdx, string(edge.Type), edge.From, edge.To,
				edge.Expression, edge.Operation, edge.Approximate); err != nil {
				return fmt.Errorf("insert edge %s: %w", edge.ID, err)
			}
			edgeID++
		}
	}
	return nil
}

func writeIssues(ctx context.Context, tx *sql.Tx, result *model.AnalyzeResult) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO issues
		(id, statement_id, severity, code, message, span_start, span_end) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for id, issue := range result.Issues {
		start, end := spanParts(issue.Span)
		if _, err := stmt.ExecContext(ctx, id, issue.StatementIndex, string(issue.Severity),
			issue.Code, issue.Message, start, end); err != nil {
			return fmt.Errorf("insert issue %d: %w", id, err)
		}
	}
	return nil
}

func writeSchemaTables(ctx context.Context, tx *sql.Tx, result *model.AnalyzeResult) error {
	if result.ResolvedSchema == nil {
		return nil
	}

	tableStmt, err := tx.PrepareContext(ctx, `INSERT INTO schema_tables
		(id, catalog, schema_name, name, resolution_source) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tableStmt.Close()

	colStmt, err := tx.PrepareContext(ctx, `INSERT INTO schema_columns
		(id, table_id, name, data_type, is_primary_key) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer colStmt.Close()

	var colID int64
	for tableID, table := range result.ResolvedSchema.Tables {
		if _, err := tableStmt.ExecContext(ctx, tableID, table.Catalog, table.Schema,
			table.Name, string(table.Origin)); err != nil {
			return fmt.Errorf("insert schema table %s: %w", table.Name, err)
		}
		for _, col := range table.Columns {
			if _, err := colStmt.ExecContext(ctx, colID, tableID, col.Name, col.DataType, col.IsPrimaryKey); err != nil {
				return fmt.Errorf("insert schema column %s.%s: %w", table.Name, col.Name, err)
			}
			colID++
		}
	}
	return nil
}

// writeGlobalLineage has no per-statement-reference table: unlike the
// Rust export's global_node_statement_refs, the Go tracker collapses a
// global node straight to model.Node without retaining which local node
// id it came from in each statement (see tracker.RelationIdentity).
func writeGlobalLineage(ctx context.Context, tx *sql.Tx, result *model.AnalyzeResult) error {
	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO global_nodes
		(id, node_type, label, qualified_name, resolution_source) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO global_edges
		(id, from_node_id, to_node_id, edge_type, producer_statement, consumer_statement) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, node := range result.GlobalLineage.Nodes {
		var resolution *string
		if node.ResolutionSource != nil {
			s := string(*node.ResolutionSource)
			resolution = &s
		}
		if _, err := nodeStmt.ExecContext(ctx, node.ID, string(node.Type), node.Label,
			node.QualifiedName, resolution); err != nil {
			return fmt.Errorf("insert global node %s: %w", node.ID, err)
		}
	}

	for _, edge := range result.GlobalLineage.Edges {
		if _, err := edgeStmt.ExecContext(ctx, edge.ID, edge.From, edge.To, string(edge.Type),
			edge.ProducerStatement, edge.ConsumerStatement); err != nil {
			return fmt.Errorf("insert global edge %s: %w", edge.ID, err)
		}
	}
	return nil
}

func spanParts(span *model.Span) (*int, *int) {
	if span == nil {
		return nil, nil
	}
	return &span.Start, &span.End
}
