package render

import (
	"encoding/json"

	"github.com/pondpilot/flowscope/model"
)

// ExportJSON renders result in the wire shape model's json tags already
// define, indented for human readability.
func ExportJSON(result *model.AnalyzeResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}
