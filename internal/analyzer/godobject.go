package analyzer

import (
	"fmt"
	"strings"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// dataHolderLeniency widens god-object thresholds for classes classified
// as configuration or data holders
const dataHolderLeniency = 1.5

// GodObjectEvaluator flags classes, functions and modules that have grown
// past policy size limits. Classification is context-aware: a settings or
// data-holder class gets more room than business logic, and the finding
// names the heuristic that fired.
type GodObjectEvaluator struct{}

func (e *GodObjectEvaluator) Rule() domain.Rule { return domain.RuleGodObject }

func (e *GodObjectEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	var findings []domain.Finding

	file.AST.Walk(func(n *parser.Node) bool {
		switch n.Type {
		case parser.NodeClassDef:
			if f, ok := e.checkClass(file, pol, n); ok {
				findings = append(findings, f)
			}
		case parser.NodeFunctionDef:
			if f, ok := e.checkFunction(file, pol, n); ok {
				findings = append(findings, f)
			}
			if f, ok := e.checkNesting(file, pol, n); ok {
				findings = append(findings, f)
			}
		}
		return true
	})

	if f, ok := e.checkModule(file, pol); ok {
		findings = append(findings, f)
	}

	return findings
}

func (e *GodObjectEvaluator) checkClass(file *parser.File, pol *policy.Policy, class *parser.Node) (domain.Finding, bool) {
	methodLimit := pol.Thresholds.GodClassMethods
	lineLimit := pol.Thresholds.GodClassLines

	contextTag, heuristic := classifyClass(class)
	if contextTag == "data-holder" {
		methodLimit = int(float64(methodLimit) * dataHolderLeniency)
		lineLimit = int(float64(lineLimit) * dataHolderLeniency)
	}

	methods := methodCount(class)
	lines := class.LineCount()
	if methods <= methodLimit && lines <= lineLimit {
		return domain.Finding{}, false
	}

	f := newFinding(domain.RuleGodObject, domain.SeverityCritical, file, class, pol,
		fmt.Sprintf("Class '%s' is a god object: %d methods, %d lines (%s context)",
			class.Name, methods, lines, contextTag),
		"Split into smaller classes, each with a single responsibility")
	f.Context = map[string]string{
		"class":            class.Name,
		"method_count":     fmt.Sprintf("%d", methods),
		"line_count":       fmt.Sprintf("%d", lines),
		"context":          contextTag,
		"heuristic":        heuristic,
		"method_threshold": fmt.Sprintf("%d", methodLimit),
		"line_threshold":   fmt.Sprintf("%d", lineLimit),
	}
	return f, true
}

func (e *GodObjectEvaluator) checkFunction(file *parser.File, pol *policy.Policy, fn *parser.Node) (domain.Finding, bool) {
	lines := fn.LineCount()
	if lines <= pol.Thresholds.GodFunctionLines {
		return domain.Finding{}, false
	}

	f := newFinding(domain.RuleGodObject, domain.SeverityHigh, file, fn, pol,
		fmt.Sprintf("Function '%s' spans %d lines (limit %d)", fn.Name, lines, pol.Thresholds.GodFunctionLines),
		"Extract cohesive sections into helper functions")
	f.Context = map[string]string{
		"function":   fn.Name,
		"line_count": fmt.Sprintf("%d", lines),
	}
	return f, true
}

func (e *GodObjectEvaluator) checkNesting(file *parser.File, pol *policy.Policy, fn *parser.Node) (domain.Finding, bool) {
	limit := pol.Thresholds.MaxNestingDepth
	if limit <= 0 {
		return domain.Finding{}, false
	}
	depth := nestingDepth(fn)
	if depth <= limit {
		return domain.Finding{}, false
	}

	f := newFinding(domain.RuleGodObject, domain.SeverityMedium, file, fn, pol,
		fmt.Sprintf("Function '%s' nests control flow %d levels deep (limit %d)", fn.Name, depth, limit),
		"Flatten with early returns or extract the inner levels into helpers")
	f.Context = map[string]string{
		"function":      fn.Name,
		"nesting_depth": fmt.Sprintf("%d", depth),
	}
	return f, true
}

// nestingDepth measures the deepest chain of control-flow statements in a
// function, without descending into nested function definitions
func nestingDepth(fn *parser.Node) int {
	var walk func(nodes []*parser.Node, depth int) int
	walk = func(nodes []*parser.Node, depth int) int {
		max := depth
		for _, n := range nodes {
			if n == nil || n.Type == parser.NodeFunctionDef || n.Type == parser.NodeClassDef {
				continue
			}
			d := depth
			switch n.Type {
			case parser.NodeIfStatement, parser.NodeForStatement, parser.NodeWhileLoop,
				parser.NodeTryStatement, parser.NodeWithStatement:
				d++
			}
			for _, inner := range [][]*parser.Node{n.Body, n.OrElse, n.Handlers, n.Children} {
				if got := walk(inner, d); got > max {
					max = got
				}
			}
			if n.Finalizer != nil {
				if got := walk(n.Finalizer.Body, d); got > max {
					max = got
				}
			}
		}
		return max
	}
	return walk(fn.Body, 0)
}

func (e *GodObjectEvaluator) checkModule(file *parser.File, pol *policy.Policy) (domain.Finding, bool) {
	if file.Lines <= pol.Thresholds.GodModuleLines {
		return domain.Finding{}, false
	}

	f := newFinding(domain.RuleGodObject, domain.SeverityHigh, file, file.AST, pol,
		fmt.Sprintf("Module spans %d lines (limit %d)", file.Lines, pol.Thresholds.GodModuleLines),
		"Split the module along its distinct responsibilities")
	f.Context = map[string]string{
		"line_count": fmt.Sprintf("%d", file.Lines),
	}
	return f, true
}

// classifyClass tags a class as data-holder or business-logic and returns
// the heuristic that decided it
func classifyClass(class *parser.Node) (tag, heuristic string) {
	for _, suffix := range []string{"Config", "Settings", "Options", "Constants"} {
		if strings.HasSuffix(class.Name, suffix) {
			return "data-holder", "name-suffix:" + suffix
		}
	}
	for _, d := range class.DecoratorNames() {
		if d == "dataclass" || strings.HasSuffix(d, ".dataclass") {
			return "data-holder", "decorator:dataclass"
		}
	}

	total, trivial := 0, 0
	for _, stmt := range class.Body {
		if stmt.Type != parser.NodeFunctionDef {
			continue
		}
		total++
		if isTrivialAccessor(stmt) {
			trivial++
		}
	}
	if total > 0 && trivial*2 > total {
		return "data-holder", "majority-trivial-accessors"
	}
	return "business-logic", "default"
}

// isTrivialAccessor matches getters/setters: a property or get_/set_/is_
// method whose body is at most two statements
func isTrivialAccessor(fn *parser.Node) bool {
	if len(fn.Body) > 2 {
		return false
	}
	for _, d := range fn.DecoratorNames() {
		if d == "property" || strings.HasSuffix(d, ".setter") {
			return true
		}
	}
	return strings.HasPrefix(fn.Name, "get_") || strings.HasPrefix(fn.Name, "set_") ||
		strings.HasPrefix(fn.Name, "is_")
}

func methodCount(class *parser.Node) int {
	count := 0
	for _, stmt := range class.Body {
		if stmt.Type == parser.NodeFunctionDef {
			count++
		}
	}
	return count
}
