package lint

import "github.com/pondpilot/flowscope/model"

// WildcardWithoutSchemaRule re-surfaces every APPROXIMATE_LINEAGE issue
// the analyzer already recorded (a wildcard projection expanded without
// a resolvable schema) as a lint finding carrying a remediation hint,
// rather than recomputing anything itself.
type WildcardWithoutSchemaRule struct{}

func (WildcardWithoutSchemaRule) Code() string { return "LINT_WILDCARD_NO_SCHEMA" }
func (WildcardWithoutSchemaRule) Name() string { return "Wildcard expanded without schema" }

func (r WildcardWithoutSchemaRule) Check(result *model.AnalyzeResult) []Finding {
	var findings []Finding
	for _, issue := range result.Issues {
		if issue.Code != model.CodeApproximateLineage {
			continue
		}
		findings = append(findings, Finding{
			Code:           r.Code(),
			Severity:       model.SeverityWarning,
			Message:        issue.Message,
			StatementIndex: issue.StatementIndex,
			Hint:           "supply column-level schema metadata for the referenced table to resolve the wildcard precisely",
		})
	}
	return findings
}
