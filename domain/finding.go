package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Rule identifies the connascence or structural category of a finding
type Rule string

const (
	// Static connascence forms (weakest to strongest)
	RuleName      Rule = "CoN"
	RuleType      Rule = "CoT"
	RuleMeaning   Rule = "CoM"
	RulePosition  Rule = "CoP"
	RuleAlgorithm Rule = "CoA"

	// Dynamic connascence forms
	RuleExecution Rule = "CoE"
	RuleTiming    Rule = "CoTi"
	RuleValue     Rule = "CoV"
	RuleIdentity  Rule = "CoI"

	// Structural categories
	RuleGodObject     Rule = "god-object"
	RuleParameterBomb Rule = "parameter-bomb"

	// Pseudo-findings reporting per-file analysis failures
	RuleParseFailure Rule = "parse-failure"
	RuleEvalTimeout  Rule = "evaluation-timeout"
	RuleIOError      Rule = "io-error"
)

// AllRules lists every evaluator-backed rule, in report order.
// Pseudo-finding rules are not included: they are produced by the
// orchestrator, not by evaluators, and cannot be disabled by policy.
var AllRules = []Rule{
	RuleName,
	RuleType,
	RuleMeaning,
	RulePosition,
	RuleAlgorithm,
	RuleExecution,
	RuleTiming,
	RuleValue,
	RuleIdentity,
	RuleGodObject,
	RuleParameterBomb,
}

// IsPseudo reports whether the rule records an analysis failure rather
// than a code violation.
func (r Rule) IsPseudo() bool {
	switch r {
	case RuleParseFailure, RuleEvalTimeout, RuleIOError:
		return true
	}
	return false
}

// Severity represents the ordered severity of a finding
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank returns the numeric order of a severity for comparison.
// Higher rank means more severe; unknown severities rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ParseSeverity converts a string to a Severity
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s), nil
	}
	return "", fmt.Errorf("invalid severity %q, must be one of: critical, high, medium, low", s)
}

// Location identifies the source region a finding refers to
type Location struct {
	FilePath    string `json:"file_path" yaml:"file_path"`
	StartLine   int    `json:"start_line" yaml:"start_line"`
	StartColumn int    `json:"start_column,omitempty" yaml:"start_column,omitempty"`
	EndLine     int    `json:"end_line,omitempty" yaml:"end_line,omitempty"`
	EndColumn   int    `json:"end_column,omitempty" yaml:"end_column,omitempty"`
}

// Finding represents a single detected violation
type Finding struct {
	// ID is a stable fingerprint derived from the rule, location and
	// flagged content. Re-analysis of unchanged code reproduces the same ID.
	ID       string   `json:"id" yaml:"id"`
	Type     Rule     `json:"type" yaml:"type"`
	Severity Severity `json:"severity" yaml:"severity"`
	Location Location `json:"location" yaml:"location"`

	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`

	// Weight is the policy-defined contribution to the connascence index
	Weight float64 `json:"weight" yaml:"weight"`

	// Confidence expresses how certain the detector is (0.0-1.0).
	// Context-sensitive detectors such as the magic-literal rule lower it
	// for regions that look like fixtures rather than configuration.
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`

	// Context carries detector-specific explanation, e.g. which god-object
	// classification heuristic fired.
	Context map[string]string `json:"context,omitempty" yaml:"context,omitempty"`
}

// FindingID computes the stable fingerprint for a finding. The fingerprint
// input deliberately excludes the message text so that wording changes do
// not break drift detection between runs. The column keeps findings of the
// same rule on the same line distinct.
func FindingID(rule Rule, filePath string, line, column int, snippet string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d|%s", rule, filePath, line, column, snippet)))
	return hex.EncodeToString(sum[:])[:12]
}

// SortFindings orders findings deterministically: by file path, then line,
// then rule name, then column, then ID.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Location.FilePath != b.Location.FilePath {
			return a.Location.FilePath < b.Location.FilePath
		}
		if a.Location.StartLine != b.Location.StartLine {
			return a.Location.StartLine < b.Location.StartLine
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Location.StartColumn != b.Location.StartColumn {
			return a.Location.StartColumn < b.Location.StartColumn
		}
		return a.ID < b.ID
	})
}
