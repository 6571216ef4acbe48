package domain

import (
	"errors"
	"testing"
)

// Error tests

func TestDomainError_Error(t *testing.T) {
	// Without cause
	err := DomainError{
		Code:    "TEST_ERROR",
		Message: "Test message",
	}
	expected := "[TEST_ERROR] Test message"
	if err.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, err.Error())
	}

	// With cause
	cause := errors.New("underlying error")
	errWithCause := DomainError{
		Code:    "TEST_ERROR",
		Message: "Test message",
		Cause:   cause,
	}
	expectedWithCause := "[TEST_ERROR] Test message: underlying error"
	if errWithCause.Error() != expectedWithCause {
		t.Errorf("Expected '%s', got '%s'", expectedWithCause, errWithCause.Error())
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("unknown policy", nil)

	domainErr := err.(DomainError)
	if domainErr.Code != ErrCodeConfigError {
		t.Errorf("Expected code '%s', got '%s'", ErrCodeConfigError, domainErr.Code)
	}
	if !IsConfigError(err) {
		t.Error("IsConfigError should be true for config errors")
	}
	if IsConfigError(NewAnalysisError("boom", nil)) {
		t.Error("IsConfigError should be false for other codes")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewParseError("main.py", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

// Severity tests

func TestSeverity_Rank(t *testing.T) {
	order := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("%s should rank above %s", order[i], order[i-1])
		}
	}
}

func TestParseSeverity(t *testing.T) {
	if _, err := ParseSeverity("critical"); err != nil {
		t.Errorf("Expected 'critical' to parse, got error: %v", err)
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Error("Expected 'fatal' to be rejected")
	}
}

// Finding identity tests

func TestFindingID_Deterministic(t *testing.T) {
	a := FindingID(RuleMeaning, "src/app.py", 42, 3, "if x == 200:")
	b := FindingID(RuleMeaning, "src/app.py", 42, 3, "if x == 200:")
	if a != b {
		t.Errorf("Identical inputs must produce identical IDs: %s vs %s", a, b)
	}
	if len(a) != 12 {
		t.Errorf("Expected 12-char fingerprint, got %d chars", len(a))
	}

	c := FindingID(RulePosition, "src/app.py", 42, 3, "if x == 200:")
	if a == c {
		t.Error("Different rules must produce different IDs")
	}

	d := FindingID(RuleMeaning, "src/app.py", 42, 15, "if x == 200:")
	if a == d {
		t.Error("Same rule and line at different columns must produce different IDs")
	}
}

func TestSortFindings_Deterministic(t *testing.T) {
	findings := []Finding{
		{ID: "c", Type: RulePosition, Location: Location{FilePath: "b.py", StartLine: 5}},
		{ID: "a", Type: RuleMeaning, Location: Location{FilePath: "a.py", StartLine: 9}},
		{ID: "b", Type: RuleAlgorithm, Location: Location{FilePath: "b.py", StartLine: 5}},
		{ID: "d", Type: RuleMeaning, Location: Location{FilePath: "a.py", StartLine: 2}},
	}

	SortFindings(findings)

	wantOrder := []string{"d", "a", "b", "c"}
	for i, want := range wantOrder {
		if findings[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, findings[i].ID)
		}
	}
}

// Report tests

func TestNewReport_SummaryRecomputed(t *testing.T) {
	findings := []Finding{
		{ID: "1", Type: RuleMeaning, Severity: SeverityMedium, Weight: 2, Location: Location{FilePath: "a.py", StartLine: 1}},
		{ID: "2", Type: RuleMeaning, Severity: SeverityCritical, Weight: 10, Location: Location{FilePath: "a.py", StartLine: 3}},
		{ID: "3", Type: RulePosition, Severity: SeverityHigh, Weight: 5, Location: Location{FilePath: "b.py", StartLine: 7}},
	}

	report := NewReport("standard", findings, nil, 2, 0, ReportMeta{})

	if report.Summary.TotalFindings != 3 {
		t.Errorf("Expected 3 findings, got %d", report.Summary.TotalFindings)
	}
	if report.Summary.ConnascenceIndex != 17 {
		t.Errorf("Connascence index must equal the sum of weights (17), got %f", report.Summary.ConnascenceIndex)
	}
	if report.Summary.BySeverity[SeverityCritical] != 1 {
		t.Errorf("Expected 1 critical, got %d", report.Summary.BySeverity[SeverityCritical])
	}
	if report.Summary.ByType[RuleMeaning] != 2 {
		t.Errorf("Expected 2 CoM findings, got %d", report.Summary.ByType[RuleMeaning])
	}
}

func TestNewReport_MetaRecorded(t *testing.T) {
	meta := ReportMeta{GeneratedAt: "2026-08-30T09:00:00Z", Version: "0.2.0", DurationMs: 128}
	report := NewReport("standard", nil, nil, 0, 0, meta)

	if report.GeneratedAt != meta.GeneratedAt || report.Version != meta.Version || report.DurationMs != meta.DurationMs {
		t.Errorf("Constructor must record run provenance, got %+v", report)
	}
}

func TestReport_FailuresSeparateFromViolations(t *testing.T) {
	findings := []Finding{
		{ID: "1", Type: RuleMeaning, Severity: SeverityMedium, Location: Location{FilePath: "a.py", StartLine: 1}},
		{ID: "2", Type: RuleParseFailure, Severity: SeverityHigh, Location: Location{FilePath: "broken.py", StartLine: 1}},
	}

	report := NewReport("standard", findings, nil, 1, 1, ReportMeta{})

	if len(report.Failures()) != 1 {
		t.Errorf("Expected 1 failure, got %d", len(report.Failures()))
	}
	if len(report.Violations()) != 1 {
		t.Errorf("Expected 1 violation, got %d", len(report.Violations()))
	}
	// Parse failures must not count toward the fail threshold
	if got := report.CountAtOrAbove(SeverityHigh); got != 0 {
		t.Errorf("Pseudo-findings must not count as violations, got %d", got)
	}
}

func TestReport_CountAtOrAbove(t *testing.T) {
	findings := []Finding{
		{ID: "1", Type: RuleMeaning, Severity: SeverityLow, Location: Location{FilePath: "a.py", StartLine: 1}},
		{ID: "2", Type: RulePosition, Severity: SeverityHigh, Location: Location{FilePath: "a.py", StartLine: 2}},
		{ID: "3", Type: RuleGodObject, Severity: SeverityCritical, Location: Location{FilePath: "a.py", StartLine: 3}},
	}

	report := NewReport("strict", findings, nil, 1, 0, ReportMeta{})

	tests := []struct {
		min  Severity
		want int
	}{
		{SeverityLow, 3},
		{SeverityMedium, 2},
		{SeverityHigh, 2},
		{SeverityCritical, 1},
	}

	for _, tt := range tests {
		if got := report.CountAtOrAbove(tt.min); got != tt.want {
			t.Errorf("CountAtOrAbove(%s) = %d, want %d", tt.min, got, tt.want)
		}
	}
}

// Rule tests

func TestRule_IsPseudo(t *testing.T) {
	for _, r := range AllRules {
		if r.IsPseudo() {
			t.Errorf("Evaluator rule %s must not be pseudo", r)
		}
	}
	for _, r := range []Rule{RuleParseFailure, RuleEvalTimeout, RuleIOError} {
		if !r.IsPseudo() {
			t.Errorf("Rule %s must be pseudo", r)
		}
	}
}
