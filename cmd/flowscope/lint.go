package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pondpilot/flowscope/analyzer"
	"github.com/pondpilot/flowscope/lint"
	"github.com/pondpilot/flowscope/model"
	"github.com/pondpilot/flowscope/vitessql"
)

var (
	lintSQL      string
	lintFile     string
	lintDialect  string
	lintSchema   string
	lintDisabled string
	lintOut      string
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Run structural lint rules over a SQL script's lineage",
	Long: `Analyzes a SQL script and reports lint findings (fan-in writes,
cross-statement dependency cycles, wildcards expanded without schema
metadata) without folding them back into an analyze result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loader.Current()

		sql, sourceName, err := readSQL(lintSQL, lintFile)
		if err != nil {
			return err
		}
		schemaMeta, err := loadSchema(lintSchema)
		if err != nil {
			return err
		}

		dialect := model.Dialect(lintDialect)
		if !cmd.Flags().Changed("dialect") {
			dialect = cfg.Dialect
		}

		req := model.AnalyzeRequest{
			SQL:        &sql,
			SourceName: &sourceName,
			Dialect:    dialect,
			Options:    model.DefaultAnalyzeOptions(),
			Schema:     schemaMeta,
		}
		result := analyzer.Analyze(vitessql.New(), req)

		disabled := cfg.DisabledLintRules
		if cmd.Flags().Changed("disable") {
			disabled = splitCommaList(lintDisabled)
		}

		findings := lint.Run(lint.Config{Enabled: true, DisabledRules: disabled}, &result)

		data, err := json.MarshalIndent(findings, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(lintOut, data)
	},
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func init() {
	lintCmd.Flags().StringVar(&lintSQL, "sql", "", "inline SQL text to lint")
	lintCmd.Flags().StringVar(&lintFile, "file", "", "path to a SQL file to lint")
	lintCmd.Flags().StringVar(&lintDialect, "dialect", string(model.DialectGeneric), "SQL dialect")
	lintCmd.Flags().StringVar(&lintSchema, "schema", "", "path to a JSON schema metadata file")
	lintCmd.Flags().StringVar(&lintDisabled, "disable", "", "comma-separated lint rule codes to disable")
	lintCmd.Flags().StringVarP(&lintOut, "out", "o", "", "output file path (stdout if omitted)")

	rootCmd.AddCommand(lintCmd)
}
