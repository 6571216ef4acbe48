package service

import (
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/constants"
	"github.com/connascence/conscan/internal/version"
)

// SARIF v2.1.0 schema - see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json
const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`

	Fingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

// writeSARIF renders a report as a SARIF v2.1.0 document so findings can
// flow into code-scanning dashboards
func writeSARIF(report *domain.Report, writer io.Writer) error {
	run := sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:    constants.ToolName,
				Version: version.Version,
				Rules:   sarifRules(report),
			},
		},
		Results: make([]sarifResult, 0, len(report.Findings)),
	}

	for _, f := range report.Findings {
		result := sarifResult{
			RuleID:  string(f.Type),
			Level:   sarifLevel(f.Severity),
			Message: sarifMessage{Text: f.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI: filepath.ToSlash(f.Location.FilePath),
					},
					Region: &sarifRegion{
						StartLine:   f.Location.StartLine,
						StartColumn: f.Location.StartColumn,
						EndLine:     f.Location.EndLine,
						EndColumn:   f.Location.EndColumn,
					},
				},
			}},
			Fingerprints: map[string]string{"findingId": f.ID},
		}
		run.Results = append(run.Results, result)
	}

	doc := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    []sarifRun{run},
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return domain.NewOutputError("failed to write SARIF output", err)
	}
	return nil
}

// sarifRules declares every rule that produced at least one finding
func sarifRules(report *domain.Report) []sarifRule {
	seen := make(map[domain.Rule]bool)
	rules := []sarifRule{}
	for _, f := range report.Findings {
		if seen[f.Type] {
			continue
		}
		seen[f.Type] = true
		rules = append(rules, sarifRule{
			ID:               string(f.Type),
			Name:             ruleDisplayName(f.Type),
			ShortDescription: sarifMessage{Text: ruleDisplayName(f.Type)},
			DefaultConfig:    sarifRuleDefaultConfig{Level: sarifLevel(f.Severity)},
		})
	}
	return rules
}

func ruleDisplayName(rule domain.Rule) string {
	switch rule {
	case domain.RuleName:
		return "Connascence of Name"
	case domain.RuleType:
		return "Connascence of Type"
	case domain.RuleMeaning:
		return "Connascence of Meaning"
	case domain.RulePosition:
		return "Connascence of Position"
	case domain.RuleAlgorithm:
		return "Connascence of Algorithm"
	case domain.RuleExecution:
		return "Connascence of Execution"
	case domain.RuleTiming:
		return "Connascence of Timing"
	case domain.RuleValue:
		return "Connascence of Value"
	case domain.RuleIdentity:
		return "Connascence of Identity"
	case domain.RuleGodObject:
		return "God Object"
	case domain.RuleParameterBomb:
		return "Parameter Bomb"
	case domain.RuleParseFailure:
		return "Parse Failure"
	case domain.RuleEvalTimeout:
		return "Evaluation Timeout"
	case domain.RuleIOError:
		return "I/O Error"
	}
	return string(rule)
}

func sarifLevel(sev domain.Severity) string {
	switch sev {
	case domain.SeverityCritical, domain.SeverityHigh:
		return "error"
	case domain.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
