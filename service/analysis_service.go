package service

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/analyzer"
	"github.com/connascence/conscan/internal/cache"
	"github.com/connascence/conscan/internal/parser"
	"github.com/connascence/conscan/internal/policy"
	"github.com/connascence/conscan/internal/version"
)

// AnalysisServiceImpl implements domain.AnalysisService: it resolves the
// policy, enumerates files, fans analysis out across workers, and merges
// the per-file findings into one deterministic report.
type AnalysisServiceImpl struct {
	engine   *policy.Engine
	cache    *cache.ResultCache
	progress domain.ProgressManager
}

// NewAnalysisService creates the orchestrator with its policy engine and
// result cache
func NewAnalysisService(engine *policy.Engine, rc *cache.ResultCache) *AnalysisServiceImpl {
	return &AnalysisServiceImpl{
		engine:   engine,
		cache:    rc,
		progress: &NoOpProgressManager{},
	}
}

// SetProgressManager injects progress reporting for interactive runs
func (s *AnalysisServiceImpl) SetProgressManager(pm domain.ProgressManager) {
	if pm != nil {
		s.progress = pm
	}
}

// CacheStats exposes the result cache counters
func (s *AnalysisServiceImpl) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Analyze runs the full pipeline for a request. Configuration problems
// abort before any file work; per-file failures become pseudo-findings
// and never abort the run.
func (s *AnalysisServiceImpl) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.Report, error) {
	start := time.Now()

	pol, err := s.engine.ResolveWithOverrides(req.PolicyName, req.Overrides)
	if err != nil {
		return nil, err
	}
	if len(req.Paths) == 0 {
		return nil, domain.NewInvalidInputError("no paths to analyze", nil)
	}

	includes := req.IncludePatterns
	if len(includes) == 0 {
		includes = pol.IncludePatterns
	}
	excludes := append(append([]string{}, pol.ExcludePatterns...), req.ExcludePatterns...)

	files, err := NewFileCollector(includes, excludes).Collect(req.Paths)
	if err != nil {
		return nil, err
	}

	concurrency := req.MaxConcurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	// Overrides and custom policy files change thresholds without changing
	// the policy name, so cached results are keyed on the resolved policy
	// fingerprint as well.
	policyKey := req.PolicyName + "@" + pol.Fingerprint()

	task := s.progress.StartTask(fmt.Sprintf("Analyzing %d files", len(files)), len(files))
	defer task.Complete()

	results := make([][]domain.Finding, len(files))
	failed := make([]bool, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}

			findings, ok := s.analyzeOne(gCtx, pol, policyKey, path, req.NoCache)
			mu.Lock()
			results[i] = findings
			failed[i] = !ok
			mu.Unlock()

			task.Increment(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.NewAnalysisError("analysis cancelled", err)
	}

	var merged []domain.Finding
	filesFailed := 0
	for i := range files {
		merged = append(merged, results[i]...)
		if failed[i] {
			filesFailed++
		}
	}

	domain.SortFindings(merged)
	correlations := analyzer.Correlate(merged)

	meta := domain.ReportMeta{
		GeneratedAt: start.UTC().Format(time.RFC3339),
		Version:     version.Version,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	return domain.NewReport(req.PolicyName, merged, correlations, len(files)-filesFailed, filesFailed, meta), nil
}

// AnalyzeFile analyzes a single file; unchanged content under the same
// policy is served from cache
func (s *AnalysisServiceImpl) AnalyzeFile(ctx context.Context, filePath string, policyName string) (*domain.Report, error) {
	return s.Analyze(ctx, domain.AnalyzeRequest{
		Paths:      []string{filePath},
		PolicyName: policyName,
	})
}

// analyzeOne produces the findings for one file. It returns ok=false when
// the file could not be analyzed, in which case the findings hold exactly
// one pseudo-finding describing why.
func (s *AnalysisServiceImpl) analyzeOne(ctx context.Context, pol *policy.Policy, policyKey, path string, noCache bool) ([]domain.Finding, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return []domain.Finding{pseudoFinding(domain.RuleIOError, path,
			fmt.Sprintf("Cannot read file: %v", err))}, false
	}

	hash := cache.ContentHash(content)
	if !noCache {
		if findings, hit := s.cache.Get(policyKey, path, hash); hit {
			return findings, !containsPseudo(findings)
		}
	}

	findings, ok := s.evaluateWithTimeout(ctx, pol, path, content)
	if !noCache {
		s.cache.Put(policyKey, path, hash, findings)
	}
	return findings, ok
}

// evaluateWithTimeout parses and evaluates under the policy's per-file
// timeout. A file that exceeds the budget yields a timeout pseudo-finding
// and the run continues.
func (s *AnalysisServiceImpl) evaluateWithTimeout(ctx context.Context, pol *policy.Policy, path string, content []byte) ([]domain.Finding, bool) {
	timeout := pol.FileTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fileCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		findings []domain.Finding
		err      error
	}
	done := make(chan outcome, 1)

	go func() {
		p := parser.NewParser()
		defer p.Close()

		file, err := p.ParseFile(fileCtx, path, content)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		done <- outcome{findings: analyzer.EvaluateAll(file, pol)}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return []domain.Finding{pseudoFinding(domain.RuleParseFailure, path,
				fmt.Sprintf("Cannot parse file: %v", out.err))}, false
		}
		return out.findings, true
	case <-fileCtx.Done():
		return []domain.Finding{pseudoFinding(domain.RuleEvalTimeout, path,
			fmt.Sprintf("Evaluation exceeded the %s per-file budget", timeout))}, false
	}
}

// pseudoFinding records a per-file failure so that a clean file and an
// unanalyzable file are never confused
func pseudoFinding(rule domain.Rule, path, message string) domain.Finding {
	return domain.Finding{
		ID:       domain.FindingID(rule, path, 1, 0, message),
		Type:     rule,
		Severity: domain.SeverityHigh,
		Location: domain.Location{FilePath: path, StartLine: 1},
		Message:  message,
		Suggestion: "Fix the underlying problem and re-run; this file was " +
			"skipped, not verified",
		Confidence: 1.0,
	}
}

func containsPseudo(findings []domain.Finding) bool {
	for _, f := range findings {
		if f.Type.IsPseudo() {
			return true
		}
	}
	return false
}
