package model

// Dialect is the closed set of SQL dialects FlowScope knows about. It
// governs the lenient/strict policy knobs consulted by the select and
// expression analyzers (alias-in-GROUP-BY, lateral column aliases,
// boolean/integer comparability, ...).
type Dialect string

const (
	DialectGeneric   Dialect = "generic"
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectMSSQL     Dialect = "mssql"
	DialectSqlite    Dialect = "sqlite"
	DialectSnowflake Dialect = "snowflake"
	DialectBigQuery  Dialect = "bigquery"
	DialectDuckDB    Dialect = "duckdb"
)

// AliasInGroupBy reports whether this dialect permits a GROUP BY item to
// reference a SELECT-list alias.
func (d Dialect) AliasInGroupBy() bool {
	switch d {
	case DialectMySQL, DialectSqlite, DialectGeneric:
		return true
	default:
		return false
	}
}

// AliasInHaving reports whether this dialect permits a HAVING predicate to
// reference a SELECT-list alias.
func (d Dialect) AliasInHaving() bool {
	switch d {
	case DialectMySQL, DialectSqlite, DialectGeneric:
		return true
	default:
		return false
	}
}

// LateralColumnAlias reports whether this dialect resolves an unqualified
// reference to an earlier SELECT-list alias within the same list
// ("lateral column alias"), as opposed to warning about it.
func (d Dialect) LateralColumnAlias() bool {
	switch d {
	case DialectBigQuery, DialectDuckDB, DialectSnowflake:
		return true
	default:
		return false
	}
}

// BooleanIntegerComparable reports whether this dialect treats booleans as
// 0/1 integers for comparison purposes.
func (d Dialect) BooleanIntegerComparable() bool {
	switch d {
	case DialectMySQL, DialectMSSQL, DialectSqlite, DialectGeneric:
		return true
	default:
		return false
	}
}

// CaseSensitivity governs how SchemaRegistry.NormalizeIdentifier folds
// identifier case.
type CaseSensitivity string

const (
	CasePreserve        CaseSensitivity = "preserve"
	CaseLower           CaseSensitivity = "lower"
	CaseUpper           CaseSensitivity = "upper"
	CaseFoldIfUnquoted  CaseSensitivity = "fold_if_unquoted"
)

// ColumnSchema describes one column of a SchemaTable.
type ColumnSchema struct {
	Name         string  `json:"name"`
	DataType     *string `json:"dataType,omitempty"`
	IsPrimaryKey bool    `json:"isPrimaryKey,omitempty"`
	ForeignKey   *string `json:"foreignKey,omitempty"` // "schema.table.column"
}

// SchemaTable describes one table/view supplied by the caller.
type SchemaTable struct {
	Catalog *string        `json:"catalog,omitempty"`
	Schema  *string        `json:"schema,omitempty"`
	Name    string         `json:"name"`
	Columns []ColumnSchema `json:"columns"`
}

// SchemaMetadata is the caller-supplied schema for a batch.
type SchemaMetadata struct {
	DefaultCatalog  *string         `json:"defaultCatalog,omitempty"`
	DefaultSchema   *string         `json:"defaultSchema,omitempty"`
	SearchPath      []SearchPathEntry `json:"searchPath,omitempty"`
	CaseSensitivity CaseSensitivity `json:"caseSensitivity,omitempty"`
	AllowImplied    bool            `json:"allowImplied"`
	Tables          []SchemaTable   `json:"tables"`
}

// SearchPathEntry is one (catalog?, schema) hint in a schema's search path.
type SearchPathEntry struct {
	Catalog *string `json:"catalog,omitempty"`
	Schema  string  `json:"schema"`
}

// SourceFile is one member of AnalyzeRequest.Files: SQL text tagged with
// the file it came from, so per-statement lineage can report SourceName.
type SourceFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// AnalyzeOptions is the recognized-options bag from spec.md §6.
type AnalyzeOptions struct {
	// ColumnLineage, when false, skips projection decomposition: only
	// table/view/CTE nodes and their coarse edges are emitted.
	ColumnLineage bool
	// FilterCTEs runs the CTE-bypass post-processing pass (spec.md §4.7).
	FilterCTEs bool
	// IncludeGlobalLineage, when false, skips cross-statement edge
	// emission; per-statement results are unaffected.
	IncludeGlobalLineage bool
}

// DefaultAnalyzeOptions mirrors the defaults spec.md §6 lists:
// column_lineage=true, filter_ctes=false, include_global_lineage=true.
func DefaultAnalyzeOptions() AnalyzeOptions {
	return AnalyzeOptions{
		ColumnLineage:        true,
		FilterCTEs:           false,
		IncludeGlobalLineage: true,
	}
}

// AnalyzeRequest is the input to analyzer.Analyze.
type AnalyzeRequest struct {
	SQL        *string
	Files      []SourceFile
	Dialect    Dialect
	SourceName *string
	Options    AnalyzeOptions
	Schema     *SchemaMetadata
}
