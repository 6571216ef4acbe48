package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/cache"
	"github.com/connascence/conscan/internal/constants"
	"github.com/connascence/conscan/internal/policy"
	"github.com/connascence/conscan/service"
)

// CheckExitError is a custom error type for check command exit codes
type CheckExitError struct {
	Code    int
	Message string
}

func (e *CheckExitError) Error() string {
	return e.Message
}

var (
	checkPolicy          string
	checkPolicyFile      string
	checkFailOn          string
	checkOverrides       []string
	checkExclude         []string
	checkJobs            int
	checkNoCache         bool
	checkQuiet           bool
	checkJSON            bool
	checkBaseline        string
	checkUpdateBaseline  bool
	checkAllowParseError bool
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Connascence gate for CI/CD pipelines",
		Long: `Analyze the given paths and fail when findings reach the policy's
fail severity.

Exit codes:
  0 - No findings at or above the fail severity
  1 - Findings at or above the fail severity, or files that could not
      be analyzed (see --allow-parse-errors)
  2 - Analysis could not run (bad policy, missing path, internal error)

With --baseline, only findings that are new since the snapshot gate the
check, so existing debt can be accepted while regressions still fail.

Examples:
  # Gate against the standard policy
  conscan check src/

  # Strict gate with a custom fail threshold
  conscan check --policy strict --fail-on medium src/

  # Accept the current findings, then gate future runs on new ones only
  conscan check --update-baseline src/
  conscan check --baseline .conscan/baseline.json src/

  # Machine-readable output
  conscan check --json src/`,
		RunE:          runCheck,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&checkPolicy, "policy", "p", constants.PolicyStandard,
		"Policy to gate against: "+strings.Join(policy.PresetNames(), ", "))
	cmd.Flags().StringVar(&checkPolicyFile, "policy-file", "",
		"Path to a custom policy YAML file")
	cmd.Flags().StringVar(&checkFailOn, "fail-on", "",
		"Minimum severity that fails the check (default: policy's fail severity)")
	cmd.Flags().StringArrayVar(&checkOverrides, "set", nil,
		"Threshold override key=value (repeatable)")
	cmd.Flags().StringSliceVar(&checkExclude, "exclude", nil,
		"Exclude glob patterns")
	cmd.Flags().IntVarP(&checkJobs, "jobs", "j", 0,
		"Number of parallel workers (0 = number of CPUs)")
	cmd.Flags().BoolVar(&checkNoCache, "no-cache", false,
		"Bypass the result cache")
	cmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false,
		"Only print the pass/fail line")
	cmd.Flags().BoolVar(&checkJSON, "json", false,
		"Output the full report as JSON")
	cmd.Flags().StringVar(&checkBaseline, "baseline", "",
		"Baseline snapshot to compare against; only new findings fail the gate")
	cmd.Flags().BoolVar(&checkUpdateBaseline, "update-baseline", false,
		"Write the current findings as the baseline snapshot and exit 0")
	cmd.Flags().BoolVar(&checkAllowParseError, "allow-parse-errors", false,
		"Do not fail the gate for files that could not be analyzed")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return &CheckExitError{Code: constants.ExitError, Message: "no paths specified"}
	}

	engine := policy.NewEngine()
	policyName, err := resolvePolicySelection(engine, checkPolicy, checkPolicyFile,
		cmd.Flags().Changed("policy"), args[0])
	if err != nil {
		return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
	}

	overrides, err := parseOverrides(checkOverrides)
	if err != nil {
		return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
	}

	// Resolve eagerly so the fail severity is known and a bad policy or
	// override aborts before any file work
	pol, err := engine.ResolveWithOverrides(policyName, overrides)
	if err != nil {
		return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
	}

	failOn := pol.FailSeverity
	if checkFailOn != "" {
		sev, err := domain.ParseSeverity(checkFailOn)
		if err != nil {
			return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
		}
		failOn = sev
	}

	pm := service.NewProgressManager(!checkJSON && !checkQuiet)
	defer pm.Close()

	svc := service.NewAnalysisService(engine, cache.NewResultCache(cache.DefaultCapacity))
	svc.SetProgressManager(pm)

	report, err := svc.Analyze(context.Background(), domain.AnalyzeRequest{
		Paths:           args,
		PolicyName:      policyName,
		Overrides:       overrides,
		ExcludePatterns: checkExclude,
		MaxConcurrency:  checkJobs,
		NoCache:         checkNoCache,
	})
	if err != nil {
		return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
	}

	if checkUpdateBaseline {
		path := checkBaseline
		if path == "" {
			path = constants.DefaultBaselineFile
		}
		if err := service.NewBaseline(report).Save(path); err != nil {
			return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
		}
		if !checkQuiet && !checkJSON {
			fmt.Printf("Baseline written: %s (%d finding(s) accepted)\n",
				path, len(report.Violations()))
		}
		return nil
	}

	var diff *service.BaselineDiff
	blocking := report.CountAtOrAbove(failOn)
	if checkBaseline != "" {
		base, err := service.LoadBaseline(checkBaseline)
		if err != nil {
			return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
		}
		d := base.Diff(report.Findings)
		diff = &d
		blocking = countAtOrAbove(d.New, failOn)
	}

	if checkJSON {
		if err := service.WriteJSON(os.Stdout, report); err != nil {
			return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
		}
	} else {
		printCheckSummary(report, failOn, diff, blocking)
	}

	if blocking > 0 {
		return &CheckExitError{Code: constants.ExitViolations}
	}
	if !checkAllowParseError && report.Summary.FilesFailed > 0 {
		return &CheckExitError{Code: constants.ExitViolations}
	}
	return nil
}

func countAtOrAbove(findings []domain.Finding, min domain.Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity.Rank() >= min.Rank() {
			n++
		}
	}
	return n
}

func printCheckSummary(report *domain.Report, failOn domain.Severity, diff *service.BaselineDiff, blocking int) {
	if !checkQuiet {
		violations := report.Violations()
		if diff != nil {
			violations = diff.New
		}
		if len(violations) > 0 {
			if diff != nil {
				fmt.Println("New findings since baseline:")
			} else {
				fmt.Println("Findings:")
			}
			for _, f := range violations {
				marker := " "
				if f.Severity.Rank() >= failOn.Rank() {
					marker = "!"
				}
				fmt.Printf("  %s %s:%d [%s/%s] %s\n",
					marker, f.Location.FilePath, f.Location.StartLine, f.Type, f.Severity, f.Message)
			}
			fmt.Println()
		}
		if diff != nil && len(diff.Resolved) > 0 {
			fmt.Printf("Resolved since baseline: %d finding(s)\n\n", len(diff.Resolved))
		}
		if failures := report.Failures(); len(failures) > 0 {
			fmt.Println("Not analyzed:")
			for _, f := range failures {
				fmt.Printf("    %s: %s\n", f.Location.FilePath, f.Message)
			}
			fmt.Println()
		}
	}

	switch {
	case blocking > 0:
		fmt.Printf("FAIL: %d finding(s) at or above %s (policy %s, index %.1f)\n",
			blocking, failOn, report.Policy, report.Summary.ConnascenceIndex)
	case !checkAllowParseError && report.Summary.FilesFailed > 0:
		fmt.Printf("FAIL: %d file(s) could not be analyzed (policy %s)\n",
			report.Summary.FilesFailed, report.Policy)
	default:
		fmt.Printf("PASS: no findings at or above %s (policy %s, %d files, index %.1f)\n",
			failOn, report.Policy, report.Summary.FilesAnalyzed, report.Summary.ConnascenceIndex)
	}
}
