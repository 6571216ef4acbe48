package analyzer

import (
	"fmt"
	"strings"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// MeaningEvaluator flags magic literals: numbers and strings whose meaning
// lives only in the reader's head. Whitelisted values, named-constant
// assignments and parameter defaults are exempt.
type MeaningEvaluator struct{}

func (e *MeaningEvaluator) Rule() domain.Rule { return domain.RuleMeaning }

func (e *MeaningEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	var findings []domain.Finding
	lines := strings.Split(string(file.Source), "\n")
	fixture := isTestPath(file.Path)
	perFunction := make(map[*parser.Node]int)

	record := func(n *parser.Node) {
		if fn := enclosingFunction(n); fn != nil {
			perFunction[fn]++
		}
	}

	file.AST.Walk(func(n *parser.Node) bool {
		switch n.Type {
		case parser.NodeNumberLiteral:
			if pol.NumberWhitelisted(n.NumValue) || exemptLiteralContext(n) {
				return true
			}
			record(n)
			findings = append(findings, e.flag(file, pol, n, lines, fixture,
				fmt.Sprintf("Magic number %s", n.Raw),
				fmt.Sprintf("Extract %s to a named constant that documents its meaning", n.Raw)))
		case parser.NodeStringLiteral:
			if n.IsFString || len(n.Name) <= 1 || pol.StringWhitelisted(n.Name) {
				return true
			}
			if exemptLiteralContext(n) || isDocstring(n) {
				return true
			}
			record(n)
			findings = append(findings, e.flag(file, pol, n, lines, fixture,
				fmt.Sprintf("Magic string %q", truncate(n.Name, 40)),
				fmt.Sprintf("Extract %q to a named constant or configuration entry", truncate(n.Name, 40))))
		}
		return true
	})

	// Functions saturated with magic literals get one aggregate finding on
	// top of the per-literal ones
	limit := pol.Thresholds.MaxMagicLiteralsPerFunction
	if limit > 0 {
		var dense []*parser.Node
		for fn, count := range perFunction {
			if count > limit {
				dense = append(dense, fn)
			}
		}
		sortNodesByLine(dense)
		for _, fn := range dense {
			f := newFinding(domain.RuleMeaning, domain.SeverityHigh, file, fn, pol,
				fmt.Sprintf("Function '%s' contains %d magic literals (limit %d)", fn.Name, perFunction[fn], limit),
				"Move the literals into a configuration object or module-level constants")
			f.Confidence = 0.9
			if fixture {
				f.Confidence = 0.4
			}
			f.Context = map[string]string{
				"function":      fn.Name,
				"literal_count": fmt.Sprintf("%d", perFunction[fn]),
			}
			findings = append(findings, f)
		}
	}

	return findings
}

func (e *MeaningEvaluator) flag(file *parser.File, pol *policy.Policy, n *parser.Node, lines []string, fixture bool, msg, suggestion string) domain.Finding {
	sev := domain.SeverityMedium
	context := "general"
	switch {
	case securityContext(lines, n.Location.StartLine):
		sev = domain.SeverityCritical
		context = "security"
	case inConditional(n):
		sev = domain.SeverityHigh
		context = "conditional"
	}

	f := newFinding(domain.RuleMeaning, sev, file, n, pol, msg, suggestion)
	f.Confidence = 0.9
	if fixture {
		f.Confidence = 0.4
	}
	f.Context = map[string]string{"context": context, "value": n.Raw}
	return f
}

// exemptLiteralContext reports whether a literal sits somewhere the rule
// leaves alone: a named-constant assignment, a parameter default or a
// type annotation
func exemptLiteralContext(n *parser.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Type {
		case parser.NodeAssignment:
			if target := assignTargetName(p); isConstantName(target) {
				return true
			}
		case parser.NodeParameter:
			return true
		case parser.NodeFunctionDef, parser.NodeClassDef, parser.NodeModule:
			return false
		}
	}
	return false
}

func assignTargetName(assign *parser.Node) string {
	if assign.Left == nil {
		return ""
	}
	return assign.Left.Name
}

// isConstantName matches UPPER_SNAKE identifiers
func isConstantName(name string) bool {
	if name == "" {
		return false
	}
	hasLetter := false
	for _, c := range name {
		switch {
		case c >= 'A' && c <= 'Z':
			hasLetter = true
		case c == '_' || (c >= '0' && c <= '9'):
		default:
			return false
		}
	}
	return hasLetter
}

// isDocstring reports whether a string literal is the leading statement of
// a module, class or function body
func isDocstring(n *parser.Node) bool {
	stmt := n.Parent
	if stmt == nil || stmt.Type != parser.NodeExpressionStm {
		return false
	}
	owner := stmt.Parent
	if owner == nil {
		return false
	}
	switch owner.Type {
	case parser.NodeModule, parser.NodeClassDef, parser.NodeFunctionDef:
		return len(owner.Body) > 0 && owner.Body[0] == stmt
	}
	return false
}

// inConditional reports whether a node lives inside the condition of an
// if or while statement
func inConditional(n *parser.Node) bool {
	child := n
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Type {
		case parser.NodeIfStatement, parser.NodeWhileLoop:
			if p.Test != nil && subtreeContains(p.Test, child) {
				return true
			}
			return false
		case parser.NodeFunctionDef, parser.NodeClassDef, parser.NodeModule:
			return false
		}
		child = p
	}
	return false
}

func subtreeContains(root, target *parser.Node) bool {
	found := false
	root.Walk(func(n *parser.Node) bool {
		if n == target {
			found = true
		}
		return !found
	})
	return found
}

var securityKeywords = []string{"password", "secret", "token", "api_key", "apikey", "auth", "credential"}

// securityContext scans the lines around a literal for credential-related
// vocabulary
func securityContext(lines []string, line int) bool {
	for i := line - 2; i <= line; i++ {
		if i < 0 || i >= len(lines) {
			continue
		}
		lower := strings.ToLower(lines[i])
		for _, kw := range securityKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func isTestPath(path string) bool {
	lower := strings.ToLower(path)
	if strings.Contains(lower, "/tests/") || strings.Contains(lower, "/test/") {
		return true
	}
	base := lower
	if i := strings.LastIndexByte(lower, '/'); i >= 0 {
		base = lower[i+1:]
	}
	return strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py") ||
		strings.HasSuffix(base, "conftest.py")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
