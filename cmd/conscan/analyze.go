package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/connascence/conscan/app"
	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/cache"
	"github.com/connascence/conscan/internal/constants"
	"github.com/connascence/conscan/internal/policy"
	"github.com/connascence/conscan/service"
)

var (
	analyzePolicy     string
	analyzePolicyFile string
	analyzeFormat     string
	analyzeOutput     string
	analyzeOverrides  []string
	analyzeInclude    []string
	analyzeExclude    []string
	analyzeJobs       int
	analyzeNoCache    bool
	analyzeDetails    bool
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [path...]",
		Short: "Analyze Python files for connascence",
		Long: `Analyze Python files and report connascence findings scored against
a policy. Built-in policies range from lenient to nasa-compliance; a
custom policy file may extend any of them.

Examples:
  conscan analyze src/
  conscan analyze --policy strict src/
  conscan analyze --policy-file team-policy.yaml src/
  conscan analyze --set max_positional_params=2 src/
  conscan analyze --format json -o report.json src/
  conscan analyze --format sarif src/ > findings.sarif`,
		RunE: runAnalyze,
	}

	cmd.Flags().StringVarP(&analyzePolicy, "policy", "p", constants.PolicyStandard,
		"Policy to score against: "+strings.Join(policy.PresetNames(), ", "))
	cmd.Flags().StringVar(&analyzePolicyFile, "policy-file", "",
		"Path to a custom policy YAML file")
	cmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text",
		"Output format: text, json, yaml, csv, sarif")
	cmd.Flags().StringVarP(&analyzeOutput, "output", "o", "",
		"Output file path (default: stdout)")
	cmd.Flags().StringArrayVar(&analyzeOverrides, "set", nil,
		"Threshold override key=value (repeatable)")
	cmd.Flags().StringSliceVar(&analyzeInclude, "include", nil,
		"Include glob patterns (default: policy patterns)")
	cmd.Flags().StringSliceVar(&analyzeExclude, "exclude", nil,
		"Exclude glob patterns")
	cmd.Flags().IntVarP(&analyzeJobs, "jobs", "j", 0,
		"Number of parallel workers (0 = number of CPUs)")
	cmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false,
		"Bypass the result cache")
	cmd.Flags().BoolVar(&analyzeDetails, "details", false,
		"Show per-finding suggestions and context")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no paths specified")
	}

	format := domain.OutputFormat(analyzeFormat)

	engine := policy.NewEngine()
	policyName, err := resolvePolicySelection(engine, analyzePolicy, analyzePolicyFile,
		cmd.Flags().Changed("policy"), args[0])
	if err != nil {
		return err
	}

	overrides, err := parseOverrides(analyzeOverrides)
	if err != nil {
		return err
	}

	writer := os.Stdout
	if analyzeOutput != "" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	// Progress bars stay off when machine-readable output goes to stdout
	interactive := analyzeOutput != "" || format == domain.OutputFormatText
	pm := service.NewProgressManager(interactive)
	defer pm.Close()

	svc := service.NewAnalysisService(engine, cache.NewResultCache(cache.DefaultCapacity))
	svc.SetProgressManager(pm)
	useCase := app.NewAnalyzeUseCase(svc, service.NewReportFormatter())

	_, err = useCase.Execute(context.Background(), domain.AnalyzeRequest{
		Paths:           args,
		PolicyName:      policyName,
		Overrides:       overrides,
		IncludePatterns: analyzeInclude,
		ExcludePatterns: analyzeExclude,
		OutputFormat:    format,
		OutputWriter:    writer,
		ShowDetails:     analyzeDetails,
		MaxConcurrency:  analyzeJobs,
		NoCache:         analyzeNoCache,
	})
	return err
}

// resolvePolicySelection registers a custom policy file when given and
// returns the name of the policy to analyze with. Without an explicit
// file or --policy flag, a .conscan.yaml discovered near the target wins
// over the built-in default.
func resolvePolicySelection(engine *policy.Engine, name, file string, policyFlagSet bool, target string) (string, error) {
	if file == "" && !policyFlagSet {
		file = policy.DiscoverFile(target)
	}
	if file == "" {
		return name, nil
	}
	loaded, err := engine.LoadFile(file)
	if err != nil {
		return "", err
	}
	return loaded.Name, nil
}

// parseOverrides turns repeated key=value flags into typed override
// values. Integers and floats are recognized; everything else is passed
// through as a string and rejected by the policy engine.
func parseOverrides(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid override %q, expected key=value", pair)
		}
		if n, err := strconv.Atoi(value); err == nil {
			overrides[key] = n
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			overrides[key] = f
		} else {
			overrides[key] = value
		}
	}
	return overrides, nil
}
