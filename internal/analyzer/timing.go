package analyzer

import (
	"fmt"
	"strings"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
)

// TimingEvaluator flags timing coupling: code whose correctness depends on
// how long things take. Sleep calls, raw thread starts and sleep-based
// polling loops are the classic shapes.
type TimingEvaluator struct{}

func (e *TimingEvaluator) Rule() domain.Rule { return domain.RuleTiming }

func (e *TimingEvaluator) Evaluate(file *parser.File, pol *policy.Policy) []domain.Finding {
	var findings []domain.Finding
	flaggedSleeps := make(map[*parser.Node]bool)

	// polling loops first so their sleeps are reported once, as the loop
	file.AST.Walk(func(n *parser.Node) bool {
		if n.Type != parser.NodeWhileLoop {
			return true
		}
		sleeps := sleepCalls(n)
		if len(sleeps) == 0 {
			return true
		}
		for _, s := range sleeps {
			flaggedSleeps[s] = true
		}
		f := newFinding(domain.RuleTiming, domain.SeverityHigh, file, n, pol,
			"Polling loop synchronizes by sleeping",
			"Replace the sleep-based poll with an event, condition variable, or callback")
		f.Context = map[string]string{"pattern": "polling-loop"}
		findings = append(findings, f)
		return true
	})

	file.AST.Walk(func(n *parser.Node) bool {
		if n.Type != parser.NodeCall {
			return true
		}
		switch {
		case isSleepCall(n):
			if flaggedSleeps[n] {
				return true
			}
			f := newFinding(domain.RuleTiming, domain.SeverityMedium, file, n, pol,
				"Sleep call introduces a timing dependency",
				"Synchronize on the actual condition instead of elapsed time")
			f.Context = map[string]string{"pattern": "sleep"}
			findings = append(findings, f)
		case isThreadStart(n):
			f := newFinding(domain.RuleTiming, domain.SeverityMedium, file, n, pol,
				fmt.Sprintf("Raw thread construction via '%s'", n.Name),
				"Use an executor or task queue so scheduling is explicit")
			f.Context = map[string]string{"pattern": "thread"}
			findings = append(findings, f)
		}
		return true
	})

	return findings
}

func isSleepCall(n *parser.Node) bool {
	return lastCallSegment(n.Name) == "sleep"
}

func isThreadStart(n *parser.Node) bool {
	name := n.Name
	return name == "Thread" || strings.HasSuffix(name, ".Thread") ||
		name == "Timer" || strings.HasSuffix(name, ".Timer")
}

func sleepCalls(scope *parser.Node) []*parser.Node {
	var calls []*parser.Node
	scope.Walk(func(n *parser.Node) bool {
		if n != scope && (n.Type == parser.NodeFunctionDef || n.Type == parser.NodeWhileLoop) {
			return false
		}
		if n.Type == parser.NodeCall && isSleepCall(n) {
			calls = append(calls, n)
		}
		return true
	})
	return calls
}
