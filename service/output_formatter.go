package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/connascence/conscan/domain"
)

// ReportFormatterImpl implements the ReportFormatter interface
type ReportFormatterImpl struct{}

// NewReportFormatter creates a new report formatter
func NewReportFormatter() *ReportFormatterImpl {
	return &ReportFormatterImpl{}
}

// Write writes the report in the specified format
func (f *ReportFormatterImpl) Write(report *domain.Report, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatText:
		return f.writeText(report, writer)
	case domain.OutputFormatJSON:
		return f.writeJSON(report, writer)
	case domain.OutputFormatYAML:
		return f.writeYAML(report, writer)
	case domain.OutputFormatCSV:
		return f.writeCSV(report, writer)
	case domain.OutputFormatSARIF:
		return writeSARIF(report, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// WriteJSON writes data as indented JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *ReportFormatterImpl) writeJSON(report *domain.Report, writer io.Writer) error {
	if err := WriteJSON(writer, report); err != nil {
		return domain.NewOutputError("failed to write JSON output", err)
	}
	return nil
}

func (f *ReportFormatterImpl) writeYAML(report *domain.Report, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(report); err != nil {
		return domain.NewOutputError("failed to write YAML output", err)
	}
	return nil
}

// writeCSV emits one row per finding, violations and failures alike
func (f *ReportFormatterImpl) writeCSV(report *domain.Report, writer io.Writer) error {
	w := csv.NewWriter(writer)
	header := []string{"id", "type", "severity", "file", "line", "column", "message", "weight", "confidence"}
	if err := w.Write(header); err != nil {
		return domain.NewOutputError("failed to write CSV output", err)
	}
	for _, finding := range report.Findings {
		row := []string{
			finding.ID,
			string(finding.Type),
			string(finding.Severity),
			finding.Location.FilePath,
			strconv.Itoa(finding.Location.StartLine),
			strconv.Itoa(finding.Location.StartColumn),
			finding.Message,
			strconv.FormatFloat(finding.Weight, 'f', -1, 64),
			strconv.FormatFloat(finding.Confidence, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return domain.NewOutputError("failed to write CSV output", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.NewOutputError("failed to write CSV output", err)
	}
	return nil
}

func (f *ReportFormatterImpl) writeText(report *domain.Report, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Connascence Analysis ===\n\n")
	fmt.Fprintf(writer, "Policy: %s\n", report.Policy)
	if report.GeneratedAt != "" {
		fmt.Fprintf(writer, "Generated: %s\n", report.GeneratedAt)
	}
	if report.Version != "" {
		fmt.Fprintf(writer, "Version: %s\n", report.Version)
	}
	fmt.Fprintf(writer, "\n")

	// Summary
	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Files analyzed: %d\n", report.Summary.FilesAnalyzed)
	if report.Summary.FilesFailed > 0 {
		fmt.Fprintf(writer, "  Files failed: %d\n", report.Summary.FilesFailed)
	}
	fmt.Fprintf(writer, "  Total findings: %d\n", report.Summary.TotalFindings)
	fmt.Fprintf(writer, "  Connascence index: %.1f\n", report.Summary.ConnascenceIndex)
	fmt.Fprintf(writer, "\n")

	// Severity distribution
	fmt.Fprintf(writer, "Severity Distribution:\n")
	for _, sev := range []domain.Severity{
		domain.SeverityCritical,
		domain.SeverityHigh,
		domain.SeverityMedium,
		domain.SeverityLow,
	} {
		fmt.Fprintf(writer, "  %s: %d\n", sev, report.Summary.BySeverity[sev])
	}
	fmt.Fprintf(writer, "\n")

	// Finding details grouped by file
	violations := report.Violations()
	if len(violations) > 0 {
		fmt.Fprintf(writer, "Findings:\n")
		lastFile := ""
		for _, finding := range violations {
			if finding.Location.FilePath != lastFile {
				lastFile = finding.Location.FilePath
				fmt.Fprintf(writer, "\n  %s:\n", lastFile)
			}
			fmt.Fprintf(writer, "    %d: [%s/%s] %s\n",
				finding.Location.StartLine, finding.Type, finding.Severity, finding.Message)
			if finding.Suggestion != "" {
				fmt.Fprintf(writer, "       suggestion: %s\n", finding.Suggestion)
			}
		}
		fmt.Fprintf(writer, "\n")
	}

	// Correlations
	if len(report.Correlations) > 0 {
		fmt.Fprintf(writer, "Correlations:\n")
		for _, c := range report.Correlations {
			fmt.Fprintf(writer, "  - [%s] (%.2f) %s\n", c.Rule, c.Score, c.Description)
		}
		fmt.Fprintf(writer, "\n")
	}

	// Rule distribution
	if len(report.Summary.ByType) > 0 {
		rules := make([]domain.Rule, 0, len(report.Summary.ByType))
		for rule := range report.Summary.ByType {
			rules = append(rules, rule)
		}
		sort.Slice(rules, func(i, j int) bool { return rules[i] < rules[j] })
		fmt.Fprintf(writer, "By Rule:\n")
		for _, rule := range rules {
			fmt.Fprintf(writer, "  %s: %d\n", rule, report.Summary.ByType[rule])
		}
		fmt.Fprintf(writer, "\n")
	}

	// Files that could not be analyzed are listed apart from violations
	failures := report.Failures()
	if len(failures) > 0 {
		fmt.Fprintf(writer, "Failed Files:\n")
		for _, failure := range failures {
			fmt.Fprintf(writer, "  - %s: [%s] %s\n",
				failure.Location.FilePath, failure.Type, failure.Message)
		}
		fmt.Fprintf(writer, "\n")
	}

	return nil
}
