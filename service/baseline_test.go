package service

import (
	"path/filepath"
	"testing"

	"github.com/connascence/conscan/domain"
)

func baselineFindings() []domain.Finding {
	return []domain.Finding{
		{
			ID:       "aaa111aaa111",
			Type:     domain.RulePosition,
			Severity: domain.SeverityHigh,
			Location: domain.Location{FilePath: "legacy.py", StartLine: 4},
			Message:  "Function 'setup' takes 5 positional parameters",
		},
		{
			ID:       "bbb222bbb222",
			Type:     domain.RuleMeaning,
			Severity: domain.SeverityMedium,
			Location: domain.Location{FilePath: "legacy.py", StartLine: 9},
			Message:  "Magic number 8080",
		},
	}
}

func TestBaselineRoundTrip(t *testing.T) {
	report := domain.NewReport("standard", baselineFindings(), nil, 1, 0, domain.ReportMeta{})
	base := NewBaseline(report)
	if len(base.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(base.Entries))
	}

	path := filepath.Join(t.TempDir(), "nested", "baseline.json")
	if err := base.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadBaseline(path)
	if err != nil {
		t.Fatalf("LoadBaseline failed: %v", err)
	}
	if loaded.Policy != "standard" {
		t.Errorf("policy = %q, want standard", loaded.Policy)
	}
	if !loaded.Has("aaa111aaa111") || !loaded.Has("bbb222bbb222") {
		t.Error("loaded baseline lost fingerprints")
	}
	if loaded.Has("ccc333ccc333") {
		t.Error("Has reported a fingerprint that was never stored")
	}
}

func TestBaselineExcludesPseudoFindings(t *testing.T) {
	findings := append(baselineFindings(), domain.Finding{
		ID:       "ddd444ddd444",
		Type:     domain.RuleParseFailure,
		Severity: domain.SeverityHigh,
		Location: domain.Location{FilePath: "broken.py", StartLine: 1},
		Message:  "Cannot parse file",
	})
	report := domain.NewReport("standard", findings, nil, 1, 1, domain.ReportMeta{})

	base := NewBaseline(report)
	if len(base.Entries) != 2 {
		t.Fatalf("entries = %d, want 2 (parse failures are not accepted debt)", len(base.Entries))
	}
}

func TestBaselineDiff(t *testing.T) {
	report := domain.NewReport("standard", baselineFindings(), nil, 1, 0, domain.ReportMeta{})
	base := NewBaseline(report)

	current := []domain.Finding{
		baselineFindings()[0],
		{
			ID:       "eee555eee555",
			Type:     domain.RuleValue,
			Severity: domain.SeverityMedium,
			Location: domain.Location{FilePath: "orders.py", StartLine: 17},
			Message:  "Literal 'pending' duplicated 6 times",
		},
		{
			ID:       "fff666fff666",
			Type:     domain.RuleParseFailure,
			Severity: domain.SeverityHigh,
			Location: domain.Location{FilePath: "broken.py", StartLine: 1},
			Message:  "Cannot parse file",
		},
	}

	diff := base.Diff(current)
	if len(diff.New) != 1 || diff.New[0].ID != "eee555eee555" {
		t.Errorf("new findings = %+v, want exactly eee555eee555", diff.New)
	}
	if len(diff.Resolved) != 1 || diff.Resolved[0].ID != "bbb222bbb222" {
		t.Errorf("resolved entries = %+v, want exactly bbb222bbb222", diff.Resolved)
	}
}

func TestLoadBaselineMissingFile(t *testing.T) {
	_, err := LoadBaseline(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected error for a missing baseline file")
	}
}
