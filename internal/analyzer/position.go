package analyzer

import (
	"fmt"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// parameterBombMargin is how far past the positional limit a signature
// must go before it is reported as a parameter bomb instead
const parameterBombMargin = 3

// PositionEvaluator flags signatures and call sites where argument order
// carries meaning. Signatures far past the limit become parameter-bomb
// findings at higher severity.
type PositionEvaluator struct{}

func (e *PositionEvaluator) Rule() domain.Rule { return domain.RulePosition }

func (e *PositionEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	var findings []domain.Finding
	limit := pol.Thresholds.MaxPositionalParams
	bombLimit := limit + parameterBombMargin

	file.AST.Walk(func(n *parser.Node) bool {
		switch n.Type {
		case parser.NodeFunctionDef:
			count := len(n.PositionalParams())
			if count <= limit {
				total := totalParamCount(n)
				if total > pol.Thresholds.MaxFunctionParams {
					f := newFinding(domain.RulePosition, domain.SeverityMedium, file, n, pol,
						fmt.Sprintf("Function '%s' takes %d parameters in total (limit %d)", n.Name, total, pol.Thresholds.MaxFunctionParams),
						"Group related parameters into a dataclass or configuration object")
					f.Context = map[string]string{
						"function":        n.Name,
						"parameter_count": fmt.Sprintf("%d", total),
					}
					findings = append(findings, f)
				}
				return true
			}
			if count > bombLimit && pol.RuleEnabled(domain.RuleParameterBomb) {
				f := newFinding(domain.RuleParameterBomb, domain.SeverityCritical, file, n, pol,
					fmt.Sprintf("Function '%s' takes %d positional parameters (limit %d)", n.Name, count, limit),
					"Replace the parameter list with a parameter object or builder")
				f.Context = map[string]string{
					"function":        n.Name,
					"parameter_count": fmt.Sprintf("%d", count),
				}
				findings = append(findings, f)
				return true
			}
			f := newFinding(domain.RulePosition, domain.SeverityHigh, file, n, pol,
				fmt.Sprintf("Function '%s' has %d positional parameters (limit %d)", n.Name, count, limit),
				"Use keyword-only arguments, a dataclass, or a parameter object")
			f.Context = map[string]string{
				"function":        n.Name,
				"parameter_count": fmt.Sprintf("%d", count),
			}
			findings = append(findings, f)

		case parser.NodeLambda:
			// lambdas have no keyword-only section, so total count applies
			count := len(n.PositionalParams())
			if count <= pol.Thresholds.MaxFunctionParams {
				return true
			}
			f := newFinding(domain.RulePosition, domain.SeverityMedium, file, n, pol,
				fmt.Sprintf("Lambda takes %d parameters (limit %d)", count, pol.Thresholds.MaxFunctionParams),
				"Promote the lambda to a named function with keyword arguments")
			findings = append(findings, f)

		case parser.NodeCall:
			count := positionalArgCount(n)
			if count <= limit {
				return true
			}
			f := newFinding(domain.RulePosition, domain.SeverityMedium, file, n, pol,
				fmt.Sprintf("Call to '%s' passes %d positional arguments (limit %d)", callLabel(n), count, limit),
				"Pass arguments by keyword so the call does not depend on parameter order")
			f.Context = map[string]string{
				"callee":         callLabel(n),
				"argument_count": fmt.Sprintf("%d", count),
			}
			findings = append(findings, f)
		}
		return true
	})

	return findings
}

// totalParamCount counts every real parameter: positional and
// keyword-only, excluding the receiver and *args/**kwargs collectors
func totalParamCount(fn *parser.Node) int {
	count := 0
	for _, p := range fn.Params {
		switch p.Kind {
		case parser.ParamPositional, parser.ParamKeywordOnly:
			count++
		}
	}
	return count
}

func positionalArgCount(call *parser.Node) int {
	count := 0
	for _, arg := range call.Arguments {
		if arg.Type != parser.NodeKeywordArg {
			count++
		}
	}
	return count
}

func callLabel(call *parser.Node) string {
	if call.Name != "" {
		return call.Name
	}
	return "<expression>"
}
