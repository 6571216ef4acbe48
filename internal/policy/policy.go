package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/connascence/conscan/domain"
)

// Thresholds holds the per-rule numeric limits of a policy
type Thresholds struct {
	// Position thresholds
	MaxPositionalParams int `mapstructure:"max_positional_params" yaml:"max_positional_params"`
	MaxFunctionParams   int `mapstructure:"max_function_params" yaml:"max_function_params"`

	// Size thresholds
	GodClassMethods  int `mapstructure:"god_class_methods" yaml:"god_class_methods"`
	GodClassLines    int `mapstructure:"god_class_lines" yaml:"god_class_lines"`
	GodFunctionLines int `mapstructure:"god_function_lines" yaml:"god_function_lines"`
	GodModuleLines   int `mapstructure:"god_module_lines" yaml:"god_module_lines"`

	// Magic literal thresholds
	MagicLiteralNumbers         []float64 `mapstructure:"magic_literal_numbers" yaml:"magic_literal_numbers"`
	MagicLiteralStrings         []string  `mapstructure:"magic_literal_strings" yaml:"magic_literal_strings"`
	MaxMagicLiteralsPerFunction int       `mapstructure:"max_magic_literals_per_function" yaml:"max_magic_literals_per_function"`

	// Duplication thresholds
	SimilarityThreshold    float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	MinDuplicateStatements int     `mapstructure:"min_duplicate_statements" yaml:"min_duplicate_statements"`
	MinDuplicateTokens     int     `mapstructure:"min_duplicate_tokens" yaml:"min_duplicate_tokens"`

	// Value coupling thresholds
	DuplicateLiteralMinCount int `mapstructure:"duplicate_literal_min_count" yaml:"duplicate_literal_min_count"`

	// Name and type coupling thresholds
	MaxNameUses         int `mapstructure:"max_name_uses" yaml:"max_name_uses"`
	MaxTypeChecks       int `mapstructure:"max_type_checks" yaml:"max_type_checks"`
	MaxGlobalMutations  int `mapstructure:"max_global_mutations" yaml:"max_global_mutations"`
	MaxNestingDepth     int `mapstructure:"max_nesting_depth" yaml:"max_nesting_depth"`
	MaxModuleGlobalVars int `mapstructure:"max_module_global_vars" yaml:"max_module_global_vars"`
}

// Policy is a named, immutable strictness profile. Selecting a different
// policy never mutates findings already produced; it only changes what
// future evaluation runs will flag. Policies are safely shared by
// reference across workers without synchronization.
type Policy struct {
	Name        string
	Description string

	// EnabledRules is the set of rule evaluators active under this policy
	EnabledRules map[domain.Rule]bool

	Thresholds Thresholds

	// Weights maps severity to its contribution to the connascence index
	Weights map[domain.Severity]float64

	// File selection
	IncludePatterns []string
	ExcludePatterns []string

	// FileTimeout bounds evaluation of a single file
	FileTimeout time.Duration

	// FailSeverity is the minimum severity that fails a CI check
	FailSeverity domain.Severity
}

// Fingerprint returns a short stable hash over everything that influences
// evaluation. Two resolved policies with the same fingerprint produce the
// same findings for the same source, so the result cache keys on it.
func (p *Policy) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%+v\n%s\n%v\n%v\n%v\n",
		p.Thresholds, p.FailSeverity, p.IncludePatterns, p.ExcludePatterns, p.FileTimeout)

	rules := make([]string, 0, len(p.EnabledRules))
	for r, on := range p.EnabledRules {
		if on {
			rules = append(rules, string(r))
		}
	}
	sort.Strings(rules)
	fmt.Fprintf(h, "%v\n", rules)

	sevs := make([]string, 0, len(p.Weights))
	for s := range p.Weights {
		sevs = append(sevs, string(s))
	}
	sort.Strings(sevs)
	for _, s := range sevs {
		fmt.Fprintf(h, "%s=%g\n", s, p.Weights[domain.Severity(s)])
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// RuleEnabled reports whether the given rule is active under this policy
func (p *Policy) RuleEnabled(rule domain.Rule) bool {
	return p.EnabledRules[rule]
}

// Weight returns the connascence index contribution for a severity
func (p *Policy) Weight(sev domain.Severity) float64 {
	if w, ok := p.Weights[sev]; ok {
		return w
	}
	return 1
}

// NumberWhitelisted reports whether a numeric literal is exempt from
// magic-literal detection under this policy
func (p *Policy) NumberWhitelisted(v float64) bool {
	for _, n := range p.Thresholds.MagicLiteralNumbers {
		if n == v {
			return true
		}
	}
	return false
}

// StringWhitelisted reports whether a string literal is exempt from
// magic-literal detection under this policy
func (p *Policy) StringWhitelisted(s string) bool {
	for _, w := range p.Thresholds.MagicLiteralStrings {
		if w == s {
			return true
		}
	}
	return false
}

// clone returns a deep copy so that resolved policies stay immutable even
// when the engine applies overrides on top of a preset.
func (p *Policy) clone() *Policy {
	cp := *p

	cp.EnabledRules = make(map[domain.Rule]bool, len(p.EnabledRules))
	for k, v := range p.EnabledRules {
		cp.EnabledRules[k] = v
	}

	cp.Weights = make(map[domain.Severity]float64, len(p.Weights))
	for k, v := range p.Weights {
		cp.Weights[k] = v
	}

	cp.Thresholds.MagicLiteralNumbers = append([]float64(nil), p.Thresholds.MagicLiteralNumbers...)
	cp.Thresholds.MagicLiteralStrings = append([]string(nil), p.Thresholds.MagicLiteralStrings...)
	cp.IncludePatterns = append([]string(nil), p.IncludePatterns...)
	cp.ExcludePatterns = append([]string(nil), p.ExcludePatterns...)

	return &cp
}
