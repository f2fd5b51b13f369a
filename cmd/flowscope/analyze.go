package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pondpilot/flowscope/analyzer"
	"github.com/pondpilot/flowscope/lint"
	"github.com/pondpilot/flowscope/model"
	"github.com/pondpilot/flowscope/render"
	"github.com/pondpilot/flowscope/vitessql"
)

var (
	analyzeSQL      string
	analyzeFile     string
	analyzeDialect  string
	analyzeSchema   string
	analyzeFormat   string
	analyzeOut      string
	analyzeColLin   bool
	analyzeFilterCT bool
	analyzeGlobal   bool
	analyzeLint     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze SQL text for table- and column-level lineage",
	Long: `Parses one SQL script and reports the lineage, lint findings, and
resolved schema analyzer.Analyze produces.

Examples:
  flowscope analyze --file report.sql --format json
  flowscope analyze --sql "insert into t select * from s" --format mermaid-hybrid
  flowscope analyze --file batch.sql --schema schema.json --out result.duckdb --format duckdb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loader.Current()

		sql, sourceName, err := readSQL(analyzeSQL, analyzeFile)
		if err != nil {
			return err
		}

		schemaMeta, err := loadSchema(analyzeSchema)
		if err != nil {
			return err
		}

		dialect := model.Dialect(analyzeDialect)
		if !cmd.Flags().Changed("dialect") {
			dialect = cfg.Dialect
		}

		opts := model.AnalyzeOptions{
			ColumnLineage:        analyzeColLin,
			FilterCTEs:           analyzeFilterCT,
			IncludeGlobalLineage: analyzeGlobal,
		}
		if !cmd.Flags().Changed("column-lineage") {
			opts.ColumnLineage = cfg.ColumnLineage
		}
		if !cmd.Flags().Changed("filter-ctes") {
			opts.FilterCTEs = cfg.FilterCTEs
		}
		if !cmd.Flags().Changed("include-global-lineage") {
			opts.IncludeGlobalLineage = cfg.IncludeGlobalLineage
		}

		req := model.AnalyzeRequest{
			SQL:        &sql,
			SourceName: &sourceName,
			Dialect:    dialect,
			Options:    opts,
			Schema:     schemaMeta,
		}

		result := analyzer.Analyze(vitessql.New(), req)

		if analyzeLint && cfg.LintEnabled {
			findings := lint.Run(lint.Config{Enabled: true, DisabledRules: cfg.DisabledLintRules}, &result)
			for _, f := range findings {
				result.Issues = append(result.Issues, model.Issue{
					Code:           f.Code,
					Severity:       f.Severity,
					Message:        f.Message,
					StatementIndex: f.StatementIndex,
				})
			}
		}

		return emit(&result, analyzeFormat, analyzeOut)
	},
}

// emit renders result per format and writes it to out (stdout if
// empty/"-"). "duckdb" writes directly to a file at out rather than
// going through writeOutput, since render.ExportDuckDB owns its own
// file lifecycle (it removes and recreates the target).
func emit(result *model.AnalyzeResult, format, out string) error {
	switch {
	case format == "json":
		data, err := render.ExportJSON(result)
		if err != nil {
			return err
		}
		return writeOutput(out, data)
	case format == "duckdb":
		if out == "" {
			out = "flowscope.duckdb"
		}
		return render.ExportDuckDB(rootCtx, result, out)
	case strings.HasPrefix(format, "mermaid"):
		view := render.MermaidAll
		switch format {
		case "mermaid-script":
			view = render.MermaidScript
		case "mermaid-table":
			view = render.MermaidTable
		case "mermaid-column":
			view = render.MermaidColumn
		case "mermaid-hybrid":
			view = render.MermaidHybrid
		}
		return writeOutput(out, []byte(render.ExportMermaid(result, view)))
	default:
		data, err := render.ExportJSON(result)
		if err != nil {
			return err
		}
		return writeOutput(out, data)
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSQL, "sql", "", "inline SQL text to analyze")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "path to a SQL file to analyze")
	analyzeCmd.Flags().StringVar(&analyzeDialect, "dialect", string(model.DialectGeneric), "SQL dialect (generic, mysql, postgres, mssql, sqlite, snowflake, bigquery, duckdb)")
	analyzeCmd.Flags().StringVar(&analyzeSchema, "schema", "", "path to a JSON schema metadata file")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format (json, mermaid-all, mermaid-script, mermaid-table, mermaid-column, mermaid-hybrid, duckdb)")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "output file path (stdout if omitted, except duckdb)")
	analyzeCmd.Flags().BoolVar(&analyzeColLin, "column-lineage", true, "decompose projections into column-level lineage")
	analyzeCmd.Flags().BoolVar(&analyzeFilterCT, "filter-ctes", false, "bypass CTE nodes in the lineage graph")
	analyzeCmd.Flags().BoolVar(&analyzeGlobal, "include-global-lineage", true, "assemble the cross-statement lineage graph")
	analyzeCmd.Flags().BoolVar(&analyzeLint, "lint", false, "fold lint findings into the result's issue list")

	rootCmd.AddCommand(analyzeCmd)
}
