package policy

import (
	"time"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/constants"
)

// Common numeric literals that never count as magic: identity values,
// common bases, well-known HTTP statuses and ports.
var defaultNumberWhitelist = []float64{
	-1, 0, 1, 2, 10, 100, 1000,
	0.0, 0.5, 1.0,
	200, 201, 204, 301, 302, 400, 401, 403, 404, 500, 502, 503,
	80, 443, 8080,
}

var defaultStringWhitelist = []string{
	"", " ", "\n", "\t", "utf-8", "ascii", "r", "w", "rb", "wb", "a",
	"__main__",
}

func defaultWeights() map[domain.Severity]float64 {
	return map[domain.Severity]float64{
		domain.SeverityCritical: 10,
		domain.SeverityHigh:     5,
		domain.SeverityMedium:   2,
		domain.SeverityLow:      1,
	}
}

func allRulesEnabled() map[domain.Rule]bool {
	rules := make(map[domain.Rule]bool, len(domain.AllRules))
	for _, r := range domain.AllRules {
		rules[r] = true
	}
	return rules
}

func strictThresholds() Thresholds {
	return Thresholds{
		MaxPositionalParams:         2,
		MaxFunctionParams:           4,
		GodClassMethods:             15,
		GodClassLines:               300,
		GodFunctionLines:            50,
		GodModuleLines:              500,
		MagicLiteralNumbers:         append([]float64(nil), defaultNumberWhitelist...),
		MagicLiteralStrings:         append([]string(nil), defaultStringWhitelist...),
		MaxMagicLiteralsPerFunction: 3,
		SimilarityThreshold:         0.85,
		MinDuplicateStatements:      3,
		MinDuplicateTokens:          20,
		DuplicateLiteralMinCount:    3,
		MaxNameUses:                 20,
		MaxTypeChecks:               3,
		MaxGlobalMutations:          1,
		MaxNestingDepth:             4,
		MaxModuleGlobalVars:         10,
	}
}

func standardThresholds() Thresholds {
	t := strictThresholds()
	t.MaxPositionalParams = 3
	t.MaxFunctionParams = 5
	t.GodClassMethods = 20
	t.GodClassLines = 400
	t.GodFunctionLines = 80
	t.GodModuleLines = 800
	t.MaxMagicLiteralsPerFunction = 5
	t.SimilarityThreshold = 0.9
	t.MinDuplicateStatements = 4
	t.MaxNameUses = 30
	t.MaxTypeChecks = 5
	t.MaxGlobalMutations = 3
	t.MaxNestingDepth = 5
	t.MaxModuleGlobalVars = 15
	return t
}

func lenientThresholds() Thresholds {
	t := strictThresholds()
	t.MaxPositionalParams = 5
	t.MaxFunctionParams = 8
	t.GodClassMethods = 30
	t.GodClassLines = 600
	t.GodFunctionLines = 120
	t.GodModuleLines = 1200
	t.MaxMagicLiteralsPerFunction = 8
	t.SimilarityThreshold = 0.95
	t.MinDuplicateStatements = 5
	t.MaxNameUses = 50
	t.MaxTypeChecks = 8
	t.MaxGlobalMutations = 5
	t.MaxNestingDepth = 6
	t.MaxModuleGlobalVars = 25
	return t
}

// builtinPresets returns the named presets shipped with the tool. A fresh
// map is built per call so callers can never corrupt the defaults.
func builtinPresets() map[string]*Policy {
	nasa := &Policy{
		Name:            constants.PolicyNASACompliance,
		Description:     "Safety-critical profile modeled on NASA coding standards",
		EnabledRules:    allRulesEnabled(),
		Thresholds:      strictThresholds(),
		Weights:         defaultWeights(),
		IncludePatterns: append([]string(nil), constants.DefaultIncludePatterns...),
		FileTimeout:     30 * time.Second,
		FailSeverity:    domain.SeverityMedium,
	}

	strict := &Policy{
		Name:            constants.PolicyStrict,
		Description:     "Strict profile for new codebases",
		EnabledRules:    allRulesEnabled(),
		Thresholds:      strictThresholds(),
		Weights:         defaultWeights(),
		IncludePatterns: append([]string(nil), constants.DefaultIncludePatterns...),
		FileTimeout:     30 * time.Second,
		FailSeverity:    domain.SeverityHigh,
	}

	standard := &Policy{
		Name:            constants.PolicyStandard,
		Description:     "Balanced profile suitable for most projects",
		EnabledRules:    allRulesEnabled(),
		Thresholds:      standardThresholds(),
		Weights:         defaultWeights(),
		IncludePatterns: append([]string(nil), constants.DefaultIncludePatterns...),
		FileTimeout:     30 * time.Second,
		FailSeverity:    domain.SeverityHigh,
	}

	lenient := &Policy{
		Name:            constants.PolicyLenient,
		Description:     "Relaxed profile for legacy codebases under incremental cleanup",
		EnabledRules:    allRulesEnabled(),
		Thresholds:      lenientThresholds(),
		Weights:         defaultWeights(),
		IncludePatterns: append([]string(nil), constants.DefaultIncludePatterns...),
		FileTimeout:     30 * time.Second,
		FailSeverity:    domain.SeverityCritical,
	}

	return map[string]*Policy{
		nasa.Name:     nasa,
		strict.Name:   strict,
		standard.Name: standard,
		lenient.Name:  lenient,
	}
}

// PresetNames lists the built-in policy names in display order
func PresetNames() []string {
	return []string{
		constants.PolicyNASACompliance,
		constants.PolicyStrict,
		constants.PolicyStandard,
		constants.PolicyLenient,
	}
}
