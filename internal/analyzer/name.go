package analyzer

import (
	"fmt"
	"sort"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// NameEvaluator flags excessive fan-out on a single name: an identifier
// referenced so often that renaming it ripples through the whole file.
// Import aliases bound to two different sources are flagged as well.
type NameEvaluator struct{}

func (e *NameEvaluator) Rule() domain.Rule { return domain.RuleName }

func (e *NameEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	uses := make(map[string][]*parser.Node)

	file.AST.Walk(func(n *parser.Node) bool {
		if n.Type == parser.NodeIdentifier && !isCommonName(n.Name) {
			uses[n.Name] = append(uses[n.Name], n)
		}
		return true
	})

	names := make([]string, 0, len(uses))
	for name := range uses {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []domain.Finding
	for _, name := range names {
		sites := uses[name]
		if len(sites) <= pol.Thresholds.MaxNameUses {
			continue
		}
		f := newFinding(domain.RuleName, domain.SeverityMedium, file, sites[0], pol,
			fmt.Sprintf("Name '%s' is referenced %d times (limit %d)", name, len(sites), pol.Thresholds.MaxNameUses),
			"Reduce fan-out by narrowing the name's scope or splitting responsibilities")
		f.Context = map[string]string{
			"name":      name,
			"use_count": fmt.Sprintf("%d", len(sites)),
		}
		findings = append(findings, f)
	}

	findings = append(findings, e.aliasConflicts(file, pol)...)
	return findings
}

// aliasConflicts reports import aliases rebound to a different module
// later in the same file
func (e *NameEvaluator) aliasConflicts(file *parser.File, pol *policy.Policy) []domain.Finding {
	bound := make(map[string]string)
	var findings []domain.Finding

	file.AST.Walk(func(n *parser.Node) bool {
		if n.Type != parser.NodeImport && n.Type != parser.NodeImportFrom {
			return true
		}
		for alias, source := range importBindings(file, n) {
			prev, seen := bound[alias]
			if seen && prev != source {
				f := newFinding(domain.RuleName, domain.SeverityHigh, file, n, pol,
					fmt.Sprintf("Import alias '%s' is bound to both '%s' and '%s'", alias, prev, source),
					"Give each import a distinct alias")
				f.Context = map[string]string{
					"alias":    alias,
					"previous": prev,
					"current":  source,
				}
				findings = append(findings, f)
				continue
			}
			bound[alias] = source
		}
		return false
	})

	return findings
}

// importBindings extracts alias -> source pairs from an import statement.
// The tree keeps aliased imports as generic aliased_import children with
// the local name last.
func importBindings(file *parser.File, imp *parser.Node) map[string]string {
	bindings := make(map[string]string)
	for _, child := range imp.Children {
		switch {
		case child.Type == parser.NodeGeneric && (child.Name == "aliased_import" || child.Name == "dotted_name"):
			source, alias := aliasedParts(child)
			if alias != "" {
				bindings[alias] = source
			}
		case child.Type == parser.NodeIdentifier:
			bindings[child.Name] = child.Name
		}
	}
	return bindings
}

func aliasedParts(n *parser.Node) (source, alias string) {
	if n.Name == "dotted_name" {
		name := dottedText(n)
		return name, lastSegment(name)
	}
	// aliased_import: dotted_name "as" identifier
	var parts []string
	for _, c := range n.Children {
		switch {
		case c.Type == parser.NodeGeneric && c.Name == "dotted_name":
			parts = append(parts, dottedText(c))
		case c.Type == parser.NodeIdentifier:
			parts = append(parts, c.Name)
		}
	}
	if len(parts) >= 2 {
		return parts[0], parts[len(parts)-1]
	}
	if len(parts) == 1 {
		return parts[0], lastSegment(parts[0])
	}
	return "", ""
}

func dottedText(n *parser.Node) string {
	var out string
	for _, c := range n.Children {
		if c.Type == parser.NodeIdentifier {
			if out != "" {
				out += "."
			}
			out += c.Name
		}
	}
	return out
}

func lastSegment(dotted string) string {
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' {
			return dotted[i+1:]
		}
	}
	return dotted
}

// isCommonName filters names whose heavy use is idiomatic rather than a
// coupling signal
func isCommonName(name string) bool {
	switch name {
	case "self", "cls", "_", "i", "j", "k", "x", "y",
		"print", "len", "range", "str", "int", "float", "bool", "list",
		"dict", "set", "tuple", "type", "isinstance", "super", "None",
		"True", "False", "Exception", "ValueError", "TypeError":
		return true
	}
	return false
}
