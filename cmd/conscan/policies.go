package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/policy"
)

func policiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies [name]",
		Short: "List built-in policies or show one in detail",
		Long: `Without arguments, list every available policy. With a name, show
that policy's thresholds, weights, and enabled rules.

Examples:
  conscan policies
  conscan policies nasa-compliance
  conscan policies --policy-file team-policy.yaml custom-name`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPolicies,
	}

	cmd.Flags().String("policy-file", "", "Register a custom policy YAML file before listing")
	return cmd
}

func runPolicies(cmd *cobra.Command, args []string) error {
	engine := policy.NewEngine()

	if file, _ := cmd.Flags().GetString("policy-file"); file != "" {
		if _, err := engine.LoadFile(file); err != nil {
			return err
		}
	}

	if len(args) == 0 {
		return listPolicies(engine)
	}
	return describePolicy(engine, args[0])
}

func listPolicies(engine *policy.Engine) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, name := range engine.Names() {
		desc, err := engine.Describe(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", name, desc)
	}
	return w.Flush()
}

func describePolicy(engine *policy.Engine, name string) error {
	pol, err := engine.Resolve(name)
	if err != nil {
		return err
	}

	fmt.Printf("Policy: %s\n", pol.Name)
	fmt.Printf("Description: %s\n", pol.Description)
	fmt.Printf("Fail severity: %s\n\n", pol.FailSeverity)

	fmt.Println("Thresholds:")
	fmt.Printf("  max_positional_params: %d\n", pol.Thresholds.MaxPositionalParams)
	fmt.Printf("  max_function_params: %d\n", pol.Thresholds.MaxFunctionParams)
	fmt.Printf("  god_class_methods: %d\n", pol.Thresholds.GodClassMethods)
	fmt.Printf("  god_class_lines: %d\n", pol.Thresholds.GodClassLines)
	fmt.Printf("  god_function_lines: %d\n", pol.Thresholds.GodFunctionLines)
	fmt.Printf("  god_module_lines: %d\n", pol.Thresholds.GodModuleLines)
	fmt.Printf("  similarity_threshold: %.2f\n", pol.Thresholds.SimilarityThreshold)
	fmt.Printf("  min_duplicate_statements: %d\n", pol.Thresholds.MinDuplicateStatements)
	fmt.Printf("  duplicate_literal_min_count: %d\n", pol.Thresholds.DuplicateLiteralMinCount)
	fmt.Printf("  max_type_checks: %d\n", pol.Thresholds.MaxTypeChecks)
	fmt.Printf("  max_global_mutations: %d\n", pol.Thresholds.MaxGlobalMutations)
	fmt.Printf("  max_module_global_vars: %d\n", pol.Thresholds.MaxModuleGlobalVars)
	fmt.Println()

	fmt.Println("Weights:")
	for _, sev := range []domain.Severity{
		domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow,
	} {
		fmt.Printf("  %s: %.1f\n", sev, pol.Weight(sev))
	}
	fmt.Println()

	var enabled, disabled []string
	for _, rule := range domain.AllRules {
		if pol.RuleEnabled(rule) {
			enabled = append(enabled, string(rule))
		} else {
			disabled = append(disabled, string(rule))
		}
	}
	sort.Strings(enabled)
	sort.Strings(disabled)
	fmt.Printf("Enabled rules: %v\n", enabled)
	if len(disabled) > 0 {
		fmt.Printf("Disabled rules: %v\n", disabled)
	}
	return nil
}
