package analyzer

import (
	"sort"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// Evaluator detects one connascence category. Evaluators are pure: they
// read the parsed file and the policy, never the filesystem or shared
// state, so the orchestrator can run them across files in parallel.
type Evaluator interface {
	Rule() domain.Rule
	Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding
}

// ForPolicy returns the evaluators enabled under a policy, in stable order
func ForPolicy(pol *policy.Policy) []Evaluator {
	all := []Evaluator{
		&NameEvaluator{},
		&TypeEvaluator{},
		&MeaningEvaluator{},
		&PositionEvaluator{},
		&AlgorithmEvaluator{},
		&ExecutionEvaluator{},
		&TimingEvaluator{},
		&ValueEvaluator{},
		&IdentityEvaluator{},
		&GodObjectEvaluator{},
	}

	var enabled []Evaluator
	for _, ev := range all {
		if pol.RuleEnabled(ev.Rule()) {
			enabled = append(enabled, ev)
		}
	}
	return enabled
}

// EvaluateAll runs every enabled evaluator over a parsed file
func EvaluateAll(file *parser.File, pol *policy.Policy) []domain.Finding {
	var findings []domain.Finding
	for _, ev := range ForPolicy(pol) {
		findings = append(findings, ev.Evaluate(file, pol)...)
	}
	return findings
}

// sortNodesByLine keeps map-derived node slices in source order so the
// resulting findings are deterministic
func sortNodesByLine(nodes []*parser.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Location.StartLine != nodes[j].Location.StartLine {
			return nodes[i].Location.StartLine < nodes[j].Location.StartLine
		}
		return nodes[i].Location.StartCol < nodes[j].Location.StartCol
	})
}

// newFinding assembles a finding for a node, filling in the stable ID,
// location and policy weight
func newFinding(rule domain.Rule, sev domain.Severity, file *parser.File, n *parser.Node, pol *policy.Policy, message, suggestion string) domain.Finding {
	loc := domain.Location{
		FilePath:    file.Path,
		StartLine:   n.Location.StartLine,
		StartColumn: n.Location.StartCol,
		EndLine:     n.Location.EndLine,
		EndColumn:   n.Location.EndCol,
	}
	snippet := file.Snippet(n)
	return domain.Finding{
		ID:         domain.FindingID(rule, file.Path, loc.StartLine, loc.StartColumn, snippet),
		Type:       rule,
		Severity:   sev,
		Location:   loc,
		Message:    message,
		Suggestion: suggestion,
		Weight:     pol.Weight(sev),
		Confidence: 1.0,
	}
}
