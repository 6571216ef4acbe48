package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/cache"
	"github.com/connascence/conscan/internal/policy"
	"github.com/connascence/conscan/service"
)

func newUseCase() *AnalyzeUseCase {
	svc := service.NewAnalysisService(policy.NewEngine(), cache.NewResultCache(cache.DefaultCapacity))
	return NewAnalyzeUseCase(svc, service.NewReportFormatter())
}

func TestExecuteValidation(t *testing.T) {
	uc := newUseCase()

	tests := []struct {
		name string
		req  domain.AnalyzeRequest
	}{
		{"no paths", domain.AnalyzeRequest{PolicyName: "standard"}},
		{"no policy", domain.AnalyzeRequest{Paths: []string{"."}}},
		{"negative concurrency", domain.AnalyzeRequest{Paths: []string{"."}, PolicyName: "standard", MaxConcurrency: -1}},
		{"bad format", domain.AnalyzeRequest{Paths: []string{"."}, PolicyName: "standard", OutputFormat: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := uc.Execute(context.Background(), tt.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestExecuteWritesReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	source := "def f(a, b, c, d, e):\n    return a\n"
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	uc := newUseCase()
	report, err := uc.Execute(context.Background(), domain.AnalyzeRequest{
		Paths:        []string{dir},
		PolicyName:   "standard",
		OutputFormat: domain.OutputFormatJSON,
		OutputWriter: &buf,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if report.Summary.FilesAnalyzed != 1 {
		t.Errorf("expected 1 file analyzed, got %d", report.Summary.FilesAnalyzed)
	}
	if !strings.Contains(buf.String(), `"policy": "standard"`) {
		t.Error("JSON output missing policy field")
	}
}

func TestAnalyzeFileRejectsDirectory(t *testing.T) {
	uc := newUseCase()
	if _, err := uc.AnalyzeFile(context.Background(), t.TempDir(), "standard"); err == nil {
		t.Error("expected error for directory argument")
	}
}

func TestAnalyzeFileMissing(t *testing.T) {
	uc := newUseCase()
	if _, err := uc.AnalyzeFile(context.Background(), "/no/such/file.py", "standard"); err == nil {
		t.Error("expected error for missing file")
	}
}
