package render

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pondpilot/flowscope/model"
	"github.com/stretchr/testify/require"
)

func TestExportDuckDBWritesStatementsAndNodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lineage.duckdb")

	err := ExportDuckDB(context.Background(), sampleResult(), path)
	require.NoError(t, err)

	db, err := sql.Open("duckdb", path)
	require.NoError(t, err)
	defer db.Close()

	var statementCount int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM statements").Scan(&statementCount))
	require.Equal(t, 1, statementCount)

	var nodeCount int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&nodeCount))
	require.Equal(t, 4, nodeCount)
}

func TestExportDuckDBEmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.duckdb")
	err := ExportDuckDB(context.Background(), &model.AnalyzeResult{}, path)
	require.NoError(t, err)
}
