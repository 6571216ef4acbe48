package analyzer

import (
	"fmt"
	"strings"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// pairedProtocols maps opening calls to the closing call that must follow
var pairedProtocols = map[string]string{
	"open":    "close",
	"begin":   "commit",
	"connect": "disconnect",
	"acquire": "release",
	"start":   "stop",
	"lock":    "unlock",
}

// ExecutionEvaluator flags execution-order coupling: code that only works
// when calls happen in a particular sequence. It reports paired resource
// protocols run outside try/with protection, and classes built around
// setup/teardown lifecycle methods.
type ExecutionEvaluator struct{}

func (e *ExecutionEvaluator) Rule() domain.Rule { return domain.RuleExecution }

func (e *ExecutionEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	var findings []domain.Finding
	fixture := isTestPath(file.Path)

	file.AST.Walk(func(n *parser.Node) bool {
		switch n.Type {
		case parser.NodeFunctionDef:
			findings = append(findings, e.checkProtocols(file, pol, n)...)
		case parser.NodeClassDef:
			if f, ok := e.checkLifecycle(file, pol, n, fixture); ok {
				findings = append(findings, f)
			}
		}
		return true
	})

	return findings
}

// checkProtocols finds open-then-close style call pairs executed without
// an enclosing try or with statement
func (e *ExecutionEvaluator) checkProtocols(file *parser.File, pol *policy.Policy, fn *parser.Node) []domain.Finding {
	var findings []domain.Finding

	fn.Walk(func(n *parser.Node) bool {
		if n != fn && n.Type == parser.NodeFunctionDef {
			return false
		}
		if n.Type != parser.NodeCall {
			return true
		}
		opener := lastCallSegment(n.Name)
		closer, paired := pairedProtocols[opener]
		if !paired || isProtected(n) {
			return true
		}
		if !scopeCalls(fn, closer) {
			return true
		}

		f := newFinding(domain.RuleExecution, domain.SeverityHigh, file, n, pol,
			fmt.Sprintf("'%s' and '%s' must run in order but are not protected by try/finally or with", opener, closer),
			fmt.Sprintf("Wrap the %s/%s pair in try/finally or use a context manager", opener, closer))
		f.Context = map[string]string{
			"protocol": opener + "/" + closer,
			"function": fn.Name,
		}
		findings = append(findings, f)
		return true
	})

	return findings
}

// checkLifecycle flags classes whose behavior depends on setup/teardown
// being called around every other method
func (e *ExecutionEvaluator) checkLifecycle(file *parser.File, pol *policy.Policy, class *parser.Node, fixture bool) (domain.Finding, bool) {
	var hasSetup, hasTeardown bool
	others := 0
	for _, stmt := range class.Body {
		if stmt.Type != parser.NodeFunctionDef {
			continue
		}
		switch normalizeLifecycleName(stmt.Name) {
		case "setup":
			hasSetup = true
		case "teardown":
			hasTeardown = true
		default:
			if !strings.HasPrefix(stmt.Name, "__") {
				others++
			}
		}
	}
	if !hasSetup || !hasTeardown || others == 0 {
		return domain.Finding{}, false
	}

	f := newFinding(domain.RuleExecution, domain.SeverityMedium, file, class, pol,
		fmt.Sprintf("Class '%s' couples %d methods to a setup/teardown call order", class.Name, others),
		"Move lifecycle state into a context manager so callers cannot skip teardown")
	f.Context = map[string]string{
		"class":            class.Name,
		"dependent_methods": fmt.Sprintf("%d", others),
	}
	if fixture {
		f.Confidence = 0.3
	}
	return f, true
}

func normalizeLifecycleName(name string) string {
	switch strings.ToLower(name) {
	case "setup", "setup_method", "setupclass", "setup_class":
		return "setup"
	case "teardown", "teardown_method", "teardownclass", "teardown_class":
		return "teardown"
	}
	return name
}

// isProtected reports whether a call sits inside a try or with statement
func isProtected(n *parser.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Type {
		case parser.NodeTryStatement, parser.NodeWithStatement:
			return true
		case parser.NodeFunctionDef, parser.NodeModule:
			return false
		}
	}
	return false
}

// scopeCalls reports whether a scope contains a call whose final segment
// matches name, not descending into nested functions
func scopeCalls(scope *parser.Node, name string) bool {
	found := false
	scope.Walk(func(n *parser.Node) bool {
		if found {
			return false
		}
		if n != scope && n.Type == parser.NodeFunctionDef {
			return false
		}
		if n.Type == parser.NodeCall && lastCallSegment(n.Name) == name {
			found = true
			return false
		}
		return true
	})
	return found
}

func lastCallSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}
