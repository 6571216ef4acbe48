package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// IdentityEvaluator flags identity coupling: separate pieces of code that
// must refer to the very same mutable object. Shared globals mutated from
// several functions are the dominant Python shape.
type IdentityEvaluator struct{}

func (e *IdentityEvaluator) Rule() domain.Rule { return domain.RuleIdentity }

func (e *IdentityEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	var findings []domain.Finding

	byName := make(map[string][]globalDecl)
	var firstGlobal *parser.Node

	file.AST.Walk(func(n *parser.Node) bool {
		if n.Type != parser.NodeGlobal {
			return true
		}
		if firstGlobal == nil {
			firstGlobal = n
		}
		fn := enclosingFunction(n)
		for _, id := range n.Children {
			byName[id.Name] = append(byName[id.Name], globalDecl{fn: fn, stmt: n})
		}
		return true
	})

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		decls := byName[name]
		funcs := distinctFunctions(decls)
		if len(funcs) < 2 {
			continue
		}
		f := newFinding(domain.RuleIdentity, domain.SeverityHigh, file, decls[0].stmt, pol,
			fmt.Sprintf("Global '%s' is mutated from %d functions (%s)", name, len(funcs), strings.Join(funcs, ", ")),
			"Pass the value explicitly or wrap it in an object with one owner")
		f.Context = map[string]string{
			"name":      name,
			"functions": strings.Join(funcs, ","),
		}
		findings = append(findings, f)
	}

	if len(names) > pol.Thresholds.MaxGlobalMutations && firstGlobal != nil {
		f := newFinding(domain.RuleIdentity, domain.SeverityMedium, file, firstGlobal, pol,
			fmt.Sprintf("%d names are declared global (limit %d)", len(names), pol.Thresholds.MaxGlobalMutations),
			"Group the shared state into an explicit object instead of module globals")
		f.Context = map[string]string{
			"global_count": fmt.Sprintf("%d", len(names)),
		}
		findings = append(findings, f)
	}

	if f, ok := e.checkModuleVars(file, pol); ok {
		findings = append(findings, f)
	}

	return findings
}

// checkModuleVars counts mutable module-level variables against the
// policy limit; UPPER_SNAKE constants and dunders do not count
func (e *IdentityEvaluator) checkModuleVars(file *parser.File, pol *policy.Policy) (domain.Finding, bool) {
	count := 0
	var first *parser.Node
	for _, stmt := range file.AST.Body {
		if stmt.Type != parser.NodeAssignment || stmt.Left == nil {
			continue
		}
		name := stmt.Left.Name
		if name == "" || isConstantName(name) || strings.HasPrefix(name, "__") {
			continue
		}
		count++
		if first == nil {
			first = stmt
		}
	}
	if count <= pol.Thresholds.MaxModuleGlobalVars || first == nil {
		return domain.Finding{}, false
	}

	f := newFinding(domain.RuleIdentity, domain.SeverityMedium, file, first, pol,
		fmt.Sprintf("Module holds %d mutable top-level variables (limit %d)", count, pol.Thresholds.MaxModuleGlobalVars),
		"Move related state into classes or dedicated configuration objects")
	f.Context = map[string]string{
		"variable_count": fmt.Sprintf("%d", count),
	}
	return f, true
}

func enclosingFunction(n *parser.Node) *parser.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == parser.NodeFunctionDef {
			return p
		}
	}
	return nil
}

type globalDecl struct {
	fn   *parser.Node
	stmt *parser.Node
}

func distinctFunctions(decls []globalDecl) []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range decls {
		name := "<module>"
		if d.fn != nil {
			name = d.fn.Name
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
