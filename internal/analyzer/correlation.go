package analyzer

import (
	"fmt"
	"sort"

	"github.com/connascence/conscan/domain"
)

// Correlation rule names
const (
	CorrExtractConfiguration = "extract-configuration"
	CorrSharedModule         = "shared-module"
	CorrRefactorClass        = "refactor-class"
)

// magicDensityFloor is the number of magic-literal findings inside a god
// object's span before the pair is worth reporting together
const magicDensityFloor = 3

// Correlate looks for findings from different rules that touch the same
// code region and emits advisory recommendations. It is deterministic and
// never mutates the findings it reads.
func Correlate(findings []domain.Finding) []domain.Correlation {
	var correlations []domain.Correlation

	byFile := make(map[string][]domain.Finding)
	var files []string
	for _, f := range findings {
		if f.Type.IsPseudo() {
			continue
		}
		path := f.Location.FilePath
		if _, seen := byFile[path]; !seen {
			files = append(files, path)
		}
		byFile[path] = append(byFile[path], f)
	}
	sort.Strings(files)

	for _, path := range files {
		group := byFile[path]
		correlations = append(correlations, godObjectWithMagicLiterals(group)...)
		correlations = append(correlations, duplicationPair(group)...)
		correlations = append(correlations, positionOnGodObject(group)...)
	}

	return correlations
}

// godObjectWithMagicLiterals pairs a god object with a dense cluster of
// magic literals inside its span: the class is probably hoarding
// configuration
func godObjectWithMagicLiterals(group []domain.Finding) []domain.Correlation {
	var out []domain.Correlation

	for _, god := range group {
		if god.Type != domain.RuleGodObject || god.Context["class"] == "" {
			continue
		}
		var ids []string
		for _, m := range group {
			if m.Type == domain.RuleMeaning && withinSpan(god, m) {
				ids = append(ids, m.ID)
			}
		}
		if len(ids) < magicDensityFloor {
			continue
		}

		score := float64(len(ids)) / float64(len(ids)+5)
		out = append(out, domain.Correlation{
			Rule:       CorrExtractConfiguration,
			FindingIDs: append([]string{god.ID}, ids...),
			Score:      score,
			Description: fmt.Sprintf(
				"Class '%s' is a god object containing %d magic literals; extract them into a configuration object to shrink both problems at once",
				god.Context["class"], len(ids)),
		})
	}

	return out
}

// duplicationPair pairs algorithm duplication with value duplication in
// the same file: the duplicated code is carrying duplicated constants too
func duplicationPair(group []domain.Finding) []domain.Correlation {
	var algoIDs, valueIDs []string
	for _, f := range group {
		switch f.Type {
		case domain.RuleAlgorithm:
			algoIDs = append(algoIDs, f.ID)
		case domain.RuleValue:
			valueIDs = append(valueIDs, f.ID)
		}
	}
	if len(algoIDs) == 0 || len(valueIDs) == 0 {
		return nil
	}

	ids := append(append([]string{}, algoIDs...), valueIDs...)
	return []domain.Correlation{{
		Rule:       CorrSharedModule,
		FindingIDs: ids,
		Score:      0.6,
		Description: fmt.Sprintf(
			"%d duplicated algorithms and %d duplicated literals in the same file; move the shared logic and its constants into one module",
			len(algoIDs), len(valueIDs)),
	}}
}

// positionOnGodObject pairs position coupling with a god object on the
// same class: the wide signatures usually belong to the oversized class
func positionOnGodObject(group []domain.Finding) []domain.Correlation {
	var out []domain.Correlation

	for _, god := range group {
		if god.Type != domain.RuleGodObject || god.Context["class"] == "" {
			continue
		}
		var ids []string
		for _, p := range group {
			if (p.Type == domain.RulePosition || p.Type == domain.RuleParameterBomb) && withinSpan(god, p) {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}

		out = append(out, domain.Correlation{
			Rule:       CorrRefactorClass,
			FindingIDs: append([]string{god.ID}, ids...),
			Score:      0.7,
			Description: fmt.Sprintf(
				"Class '%s' is a god object whose methods also over-use positional parameters; splitting the class will shrink the signatures too",
				god.Context["class"]),
		})
	}

	return out
}

// withinSpan reports whether inner starts inside outer's line range
func withinSpan(outer, inner domain.Finding) bool {
	return inner.Location.StartLine >= outer.Location.StartLine &&
		inner.Location.StartLine <= outer.Location.EndLine
}
