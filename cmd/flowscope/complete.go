package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/pondpilot/flowscope/complete"
)

var (
	completeSQL    string
	completeFile   string
	completeOffset int
	completeSchema string
	completeOut    string
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Offer cursor-position completion hints over partial SQL text",
	Long: `Scans SQL text up to --offset and reports the clause the cursor
sits in, the tables already in scope, and ranked completion suggestions.
Unlike analyze/lint, this never requires syntactically valid SQL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sql, _, err := readSQL(completeSQL, completeFile)
		if err != nil {
			return err
		}
		schemaMeta, err := loadSchema(completeSchema)
		if err != nil {
			return err
		}

		result := complete.Complete(complete.Request{
			SQL:          sql,
			CursorOffset: completeOffset,
			Schema:       schemaMeta,
		})

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(completeOut, data)
	},
}

func init() {
	completeCmd.Flags().StringVar(&completeSQL, "sql", "", "inline partial SQL text")
	completeCmd.Flags().StringVar(&completeFile, "file", "", "path to a SQL file")
	completeCmd.Flags().IntVar(&completeOffset, "offset", 0, "cursor byte offset into the SQL text")
	completeCmd.Flags().StringVar(&completeSchema, "schema", "", "path to a JSON schema metadata file")
	completeCmd.Flags().StringVarP(&completeOut, "out", "o", "", "output file path (stdout if omitted)")

	rootCmd.AddCommand(completeCmd)
}
