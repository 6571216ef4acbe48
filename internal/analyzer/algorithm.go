package analyzer

import (
	"fmt"
	"strings"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// shingleSize is the window used when comparing structural token streams
const shingleSize = 3

// AlgorithmEvaluator flags functions that duplicate each other's algorithm.
// Candidates share a normalized statement-shape fingerprint; the pair is
// confirmed by token-shingle similarity so that coincidentally shaped
// functions are not reported. Functions below the statement and token
// floors are never flagged.
type AlgorithmEvaluator struct{}

func (e *AlgorithmEvaluator) Rule() domain.Rule { return domain.RuleAlgorithm }

func (e *AlgorithmEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	type candidate struct {
		fn     *parser.Node
		tokens []string
	}

	groups := make(map[string][]candidate)
	var order []string

	file.AST.Walk(func(n *parser.Node) bool {
		if n.Type != parser.NodeFunctionDef {
			return true
		}
		if len(n.Body) <= pol.Thresholds.MinDuplicateStatements {
			return true
		}
		tokens := structuralTokens(n)
		if len(tokens) < pol.Thresholds.MinDuplicateTokens {
			return true
		}
		fp := bodyFingerprint(n)
		if _, seen := groups[fp]; !seen {
			order = append(order, fp)
		}
		groups[fp] = append(groups[fp], candidate{fn: n, tokens: tokens})
		return true
	})

	var findings []domain.Finding
	for _, fp := range order {
		members := groups[fp]
		if len(members) < 2 {
			continue
		}

		for i, m := range members {
			var similar []string
			for j, other := range members {
				if i == j {
					continue
				}
				if shingleSimilarity(m.tokens, other.tokens, shingleSize) >= pol.Thresholds.SimilarityThreshold {
					similar = append(similar, other.fn.Name)
				}
			}
			if len(similar) == 0 {
				continue
			}

			f := newFinding(domain.RuleAlgorithm, domain.SeverityMedium, file, m.fn, pol,
				fmt.Sprintf("Function '%s' duplicates the algorithm of %s", m.fn.Name, joinNames(similar)),
				"Extract the shared algorithm into one function both callers use")
			f.Context = map[string]string{
				"function":        m.fn.Name,
				"similar_to":      strings.Join(similar, ","),
				"duplicate_count": fmt.Sprintf("%d", len(similar)+1),
			}
			findings = append(findings, f)
		}
	}

	return findings
}

// bodyFingerprint reduces a function body to the shape of its top-level
// statements, ignoring names and values
func bodyFingerprint(fn *parser.Node) string {
	parts := make([]string, 0, len(fn.Body))
	for _, stmt := range fn.Body {
		parts = append(parts, statementShape(stmt))
	}
	return strings.Join(parts, "|")
}

func statementShape(stmt *parser.Node) string {
	switch stmt.Type {
	case parser.NodeReturn:
		if stmt.Value != nil {
			return "return " + string(stmt.Value.Type)
		}
		return "return"
	case parser.NodeIfStatement:
		return "if"
	case parser.NodeForStatement:
		return "for"
	case parser.NodeWhileLoop:
		return "while"
	case parser.NodeAssignment, parser.NodeAugAssignment:
		return "assign"
	case parser.NodeExpressionStm:
		if len(stmt.Body) == 1 && stmt.Body[0].Type == parser.NodeCall {
			return "call"
		}
		return "expr"
	case parser.NodeTryStatement:
		return "try"
	case parser.NodeWithStatement:
		return "with"
	case parser.NodeFunctionDef:
		return "function"
	case parser.NodeClassDef:
		return "class"
	default:
		return strings.ToLower(string(stmt.Type))
	}
}

// structuralTokens flattens a function subtree into a stream of node
// types, which makes the similarity measure blind to renames
func structuralTokens(fn *parser.Node) []string {
	var tokens []string
	fn.Walk(func(n *parser.Node) bool {
		switch n.Type {
		case parser.NodeIdentifier:
			tokens = append(tokens, "name")
		case parser.NodeBinaryOp, parser.NodeBoolOp, parser.NodeComparison:
			tokens = append(tokens, string(n.Type)+":"+n.Operator)
		default:
			tokens = append(tokens, string(n.Type))
		}
		return true
	})
	return tokens
}

// shingleSimilarity computes Jaccard similarity over token n-grams
func shingleSimilarity(a, b []string, n int) float64 {
	sa := shingles(a, n)
	sb := shingles(b, n)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	inter := 0
	for s := range sa {
		if sb[s] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func shingles(tokens []string, n int) map[string]bool {
	set := make(map[string]bool)
	if len(tokens) < n {
		return set
	}
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], "\x00")] = true
	}
	return set
}

func joinNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}
