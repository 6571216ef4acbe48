package domain

import (
	"context"
	"io"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText  OutputFormat = "text"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
	OutputFormatCSV   OutputFormat = "csv"
	OutputFormatSARIF OutputFormat = "sarif"
)

// AnalyzeRequest represents a request for connascence analysis
type AnalyzeRequest struct {
	// Input files or directories to analyze
	Paths []string

	// PolicyName selects the strictness profile. Unknown names fail with a
	// configuration error; there is no silent default.
	PolicyName string

	// Overrides are inline threshold overrides applied on top of the
	// resolved policy. Unknown keys are rejected.
	Overrides map[string]interface{}

	// File selection; empty slices fall back to the policy's patterns
	IncludePatterns []string
	ExcludePatterns []string

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	ShowDetails  bool

	// MaxConcurrency bounds file-level parallelism; 0 means NumCPU
	MaxConcurrency int

	// NoCache bypasses the result cache for this run
	NoCache bool
}

// AnalysisService defines the core entry points of the analysis pipeline
type AnalysisService interface {
	// Analyze runs all enabled rule evaluators over the requested paths
	// and produces an aggregate Report
	Analyze(ctx context.Context, req AnalyzeRequest) (*Report, error)

	// AnalyzeFile analyzes a single file, served from cache when the file
	// content and policy are unchanged
	AnalyzeFile(ctx context.Context, filePath string, policyName string) (*Report, error)
}

// ReportFormatter defines the interface for formatting analysis reports
type ReportFormatter interface {
	// Write writes the report to the writer in the specified format
	Write(report *Report, format OutputFormat, writer io.Writer) error
}

// ProgressManager handles progress reporting for long-running operations
type ProgressManager interface {
	// StartTask creates a new progress task with a description and total count
	StartTask(description string, total int) TaskProgress

	// IsInteractive returns true if progress bars are shown
	IsInteractive() bool

	// Close cleans up all tasks
	Close()
}

// TaskProgress tracks progress of a single task
type TaskProgress interface {
	// Increment adds n to the current progress
	Increment(n int)

	// Describe updates the current item description
	Describe(description string)

	// Complete marks the task as finished
	Complete()
}
