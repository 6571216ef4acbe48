package analyzer

import (
	"fmt"
	"sort"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// mediumDuplicationCount is where duplicate-literal severity steps up
const mediumDuplicationCount = 5

// ValueEvaluator flags value coupling: the same literal repeated across a
// file, so every copy must change together, and module-level mutable
// collections that invite shared-value drift.
type ValueEvaluator struct{}

func (e *ValueEvaluator) Rule() domain.Rule { return domain.RuleValue }

func (e *ValueEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	type occurrence struct {
		kind  string
		sites []*parser.Node
	}
	literals := make(map[string]*occurrence)

	file.AST.Walk(func(n *parser.Node) bool {
		var key, kind string
		switch n.Type {
		case parser.NodeNumberLiteral:
			if pol.NumberWhitelisted(n.NumValue) {
				return true
			}
			key, kind = "n:"+n.Raw, "numeric"
		case parser.NodeStringLiteral:
			if n.IsFString || len(n.Name) <= 1 || pol.StringWhitelisted(n.Name) {
				return true
			}
			key, kind = "s:"+n.Name, "string"
		default:
			return true
		}
		occ := literals[key]
		if occ == nil {
			occ = &occurrence{kind: kind}
			literals[key] = occ
		}
		occ.sites = append(occ.sites, n)
		return true
	})

	keys := make([]string, 0, len(literals))
	for k := range literals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var findings []domain.Finding
	for _, key := range keys {
		occ := literals[key]
		if len(occ.sites) < pol.Thresholds.DuplicateLiteralMinCount {
			continue
		}
		sev := domain.SeverityLow
		if len(occ.sites) >= mediumDuplicationCount {
			sev = domain.SeverityMedium
		}
		value := key[2:]
		f := newFinding(domain.RuleValue, sev, file, occ.sites[0], pol,
			fmt.Sprintf("Duplicate %s literal '%s' used %d times", occ.kind, truncate(value, 40), len(occ.sites)),
			fmt.Sprintf("Extract '%s' to a named constant so the copies cannot drift apart", truncate(value, 40)))
		f.Context = map[string]string{
			"value":       value,
			"value_type":  occ.kind,
			"usage_count": fmt.Sprintf("%d", len(occ.sites)),
		}
		findings = append(findings, f)
	}

	findings = append(findings, e.mutableModuleState(file, pol)...)
	return findings
}

// mutableModuleState flags module-level list/dict/set assignments with a
// lowercase name; constants get a pass
func (e *ValueEvaluator) mutableModuleState(file *parser.File, pol *policy.Policy) []domain.Finding {
	var findings []domain.Finding

	for _, stmt := range file.AST.Body {
		if stmt.Type != parser.NodeAssignment || stmt.Right == nil || stmt.Left == nil {
			continue
		}
		switch stmt.Right.Type {
		case parser.NodeList, parser.NodeDict, parser.NodeSet:
		default:
			continue
		}
		name := stmt.Left.Name
		if name == "" || isConstantName(name) || name == "__all__" {
			continue
		}

		f := newFinding(domain.RuleValue, domain.SeverityMedium, file, stmt, pol,
			fmt.Sprintf("Module-level mutable collection '%s' is shared by everything that imports it", name),
			"Make it immutable, or move the state behind an explicit owner")
		f.Context = map[string]string{
			"name":       name,
			"collection": string(stmt.Right.Type),
		}
		findings = append(findings, f)
	}

	return findings
}
