package domain

// Correlation links two or more findings that co-occur in a meaningful way.
// Correlations are advisory: they never alter the underlying findings.
type Correlation struct {
	// Rule names the correlation heuristic that fired
	Rule string `json:"rule" yaml:"rule"`

	// FindingIDs references the correlated findings (at least two)
	FindingIDs []string `json:"finding_ids" yaml:"finding_ids"`

	// Score expresses correlation strength (0.0-1.0)
	Score float64 `json:"score" yaml:"score"`

	// Description is a natural-language explanation with a recommendation
	Description string `json:"description" yaml:"description"`
}

// Summary provides aggregate statistics for one analysis run
type Summary struct {
	FilesAnalyzed int `json:"files_analyzed" yaml:"files_analyzed"`
	FilesFailed   int `json:"files_failed" yaml:"files_failed"`
	TotalFindings int `json:"total_findings" yaml:"total_findings"`

	// Counts by severity and by rule
	BySeverity map[Severity]int `json:"by_severity" yaml:"by_severity"`
	ByType     map[Rule]int     `json:"by_type" yaml:"by_type"`

	// ConnascenceIndex is the weighted sum of all finding weights.
	// It is always recomputed from the findings, never cached.
	ConnascenceIndex float64 `json:"connascence_index" yaml:"connascence_index"`
}

// Report is the aggregate output of one analysis run. A Report is created
// fresh per invocation and never mutated after construction.
type Report struct {
	Policy       string        `json:"policy" yaml:"policy"`
	Findings     []Finding     `json:"findings" yaml:"findings"`
	Summary      Summary       `json:"summary" yaml:"summary"`
	Correlations []Correlation `json:"correlations,omitempty" yaml:"correlations,omitempty"`

	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
	Version     string `json:"version" yaml:"version"`
	DurationMs  int64  `json:"duration_ms" yaml:"duration_ms"`
}

// ReportMeta carries the run provenance recorded on a report.
type ReportMeta struct {
	GeneratedAt string
	Version     string
	DurationMs  int64
}

// NewReport assembles a Report from raw findings. Findings are sorted
// deterministically and the summary is computed from scratch.
func NewReport(policyName string, findings []Finding, correlations []Correlation, filesAnalyzed, filesFailed int, meta ReportMeta) *Report {
	SortFindings(findings)

	summary := Summary{
		FilesAnalyzed: filesAnalyzed,
		FilesFailed:   filesFailed,
		TotalFindings: len(findings),
		BySeverity:    make(map[Severity]int),
		ByType:        make(map[Rule]int),
	}
	for _, f := range findings {
		summary.BySeverity[f.Severity]++
		summary.ByType[f.Type]++
		summary.ConnascenceIndex += f.Weight
	}

	return &Report{
		Policy:       policyName,
		Findings:     findings,
		Summary:      summary,
		Correlations: correlations,
		GeneratedAt:  meta.GeneratedAt,
		Version:      meta.Version,
		DurationMs:   meta.DurationMs,
	}
}

// Failures returns the pseudo-findings recording files that could not be
// analyzed, so front ends can list them separately from violations.
func (r *Report) Failures() []Finding {
	var failures []Finding
	for _, f := range r.Findings {
		if f.Type.IsPseudo() {
			failures = append(failures, f)
		}
	}
	return failures
}

// Violations returns all non-pseudo findings.
func (r *Report) Violations() []Finding {
	var violations []Finding
	for _, f := range r.Findings {
		if !f.Type.IsPseudo() {
			violations = append(violations, f)
		}
	}
	return violations
}

// CountAtOrAbove returns the number of violations at or above the given
// severity. Pseudo-findings are excluded: an unanalyzable file is reported
// separately from policy violations.
func (r *Report) CountAtOrAbove(min Severity) int {
	count := 0
	for _, f := range r.Findings {
		if !f.Type.IsPseudo() && f.Severity.Rank() >= min.Rank() {
			count++
		}
	}
	return count
}
