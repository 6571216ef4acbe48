package app

import (
	"context"
	"fmt"
	"os"

	"github.com/connascence/conscan/domain"
)

// AnalyzeUseCase orchestrates the connascence analysis workflow
type AnalyzeUseCase struct {
	service   domain.AnalysisService
	formatter domain.ReportFormatter
}

// NewAnalyzeUseCase creates a new analyze use case
func NewAnalyzeUseCase(service domain.AnalysisService, formatter domain.ReportFormatter) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		service:   service,
		formatter: formatter,
	}
}

// Execute performs the complete analysis workflow and writes the report
// in the requested format
func (uc *AnalyzeUseCase) Execute(ctx context.Context, req domain.AnalyzeRequest) (*domain.Report, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}

	report, err := uc.service.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	writer := req.OutputWriter
	if writer == nil {
		writer = os.Stdout
	}
	format := req.OutputFormat
	if format == "" {
		format = domain.OutputFormatText
	}

	if err := uc.formatter.Write(report, format, writer); err != nil {
		return nil, err
	}
	return report, nil
}

// Analyze runs the pipeline without writing output, for callers that
// consume the report programmatically
func (uc *AnalyzeUseCase) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.Report, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}
	return uc.service.Analyze(ctx, req)
}

// AnalyzeFile analyzes a single file under the named policy
func (uc *AnalyzeUseCase) AnalyzeFile(ctx context.Context, filePath string, policyName string) (*domain.Report, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, domain.NewFileNotFoundError(filePath, err)
	}
	if info.IsDir() {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("%s is a directory, not a file", filePath), nil)
	}
	return uc.service.AnalyzeFile(ctx, filePath, policyName)
}

// validateRequest validates the analyze request
func (uc *AnalyzeUseCase) validateRequest(req domain.AnalyzeRequest) error {
	if len(req.Paths) == 0 {
		return fmt.Errorf("no input paths specified")
	}
	if req.PolicyName == "" {
		return fmt.Errorf("no policy specified")
	}
	if req.MaxConcurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}
	switch req.OutputFormat {
	case "", domain.OutputFormatText, domain.OutputFormatJSON,
		domain.OutputFormatYAML, domain.OutputFormatCSV, domain.OutputFormatSARIF:
	default:
		return fmt.Errorf("unsupported output format: %s", req.OutputFormat)
	}
	return nil
}
