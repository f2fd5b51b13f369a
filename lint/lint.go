// Package lint runs a small set of structural rules over a finished
// model.AnalyzeResult, the way original_source's linter module layers
// SQLFluff-style rules over a parsed statement — except these rules read
// the lineage graph rather than the raw AST, since that is the thin
// external-collaborator role spec.md gives a linter.
package lint

import (
	"strings"

	"github.com/pondpilot/flowscope/model"
)

// Finding is one structural lint result.
type Finding struct {
	Code           string
	Message        string
	Severity       model.Severity
	StatementIndex *int
	Hint           string
}

// Rule is one structural check over a batch's analysis result.
type Rule interface {
	Code() string
	Name() string
	Check(result *model.AnalyzeResult) []Finding
}

// Config controls which rules run, mirroring original_source's
// LintConfig: a master enabled toggle plus a disabled-rule code list.
type Config struct {
	Enabled       bool
	DisabledRules []string
}

// DefaultConfig enables every rule.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// IsRuleEnabled reports whether code should run under this config.
func (c Config) IsRuleEnabled(code string) bool {
	if !c.Enabled {
		return false
	}
	for _, d := range c.DisabledRules {
		if strings.EqualFold(strings.TrimSpace(d), code) {
			return false
		}
	}
	return true
}

// defaultRules is the fixed three-rule engine spec.md's expansion scopes
// this package to.
var defaultRules = []Rule{
	FanInWriteRule{},
	CrossStatementCycleRule{},
	WildcardWithoutSchemaRule{},
}

// Run executes every enabled rule against result and returns their
// combined findings, in rule-registration order.
func Run(config Config, result *model.AnalyzeResult) []Finding {
	if !config.Enabled {
		return nil
	}
	var findings []Finding
	for _, rule := range defaultRules {
		if !config.IsRuleEnabled(rule.Code()) {
			continue
		}
		findings = append(findings, rule.Check(result)...)
	}
	return findings
}
