package analyzer

import (
	"fmt"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// TypeEvaluator flags runtime type dispatch: functions that branch on
// isinstance or type() comparisons more often than the policy allows.
// Heavy type switching couples the caller to the concrete types involved.
type TypeEvaluator struct{}

func (e *TypeEvaluator) Rule() domain.Rule { return domain.RuleType }

func (e *TypeEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	var findings []domain.Finding
	limit := pol.Thresholds.MaxTypeChecks

	check := func(scope *parser.Node, label string) {
		checks := typeChecks(scope)
		if len(checks) <= limit {
			return
		}
		f := newFinding(domain.RuleType, domain.SeverityMedium, file, scope, pol,
			fmt.Sprintf("%s performs %d runtime type checks (limit %d)", label, len(checks), limit),
			"Replace type dispatch with polymorphism or a handler registry")
		f.Context = map[string]string{
			"type_check_count": fmt.Sprintf("%d", len(checks)),
		}
		findings = append(findings, f)
	}

	file.AST.Walk(func(n *parser.Node) bool {
		if n.Type == parser.NodeFunctionDef {
			check(n, fmt.Sprintf("Function '%s'", n.Name))
		}
		return true
	})

	return findings
}

// typeChecks collects isinstance calls and type() equality comparisons in
// a scope, not descending into nested functions
func typeChecks(scope *parser.Node) []*parser.Node {
	var checks []*parser.Node
	scope.Walk(func(n *parser.Node) bool {
		if n != scope && n.Type == parser.NodeFunctionDef {
			return false
		}
		switch n.Type {
		case parser.NodeCall:
			if n.Name == "isinstance" || n.Name == "issubclass" {
				checks = append(checks, n)
			}
		case parser.NodeComparison:
			if isTypeCall(n.Left) || isTypeCall(n.Right) {
				checks = append(checks, n)
			}
		}
		return true
	})
	return checks
}

func isTypeCall(n *parser.Node) bool {
	return n != nil && n.Type == parser.NodeCall && n.Name == "type"
}
