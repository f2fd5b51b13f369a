package render

import (
	"encoding/json"
	"testing"

	"github.com/pondpilot/flowscope/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportJSONRoundTrips(t *testing.T) {
	result := sampleResult()
	result.RequestID = "req-123"

	data, err := ExportJSON(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"requestId": "req-123"`)

	var decoded model.AnalyzeResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "req-123", decoded.RequestID)
	require.Len(t, decoded.Statements, 1)
	assert.Equal(t, 0, decoded.Statements[0].StatementIndex)
}
