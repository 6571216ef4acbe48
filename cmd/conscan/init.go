package main

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/connascence/conscan/internal/constants"
	"github.com/connascence/conscan/internal/policy"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a conscan policy file",
		Long: `Generate a conscan policy file with sensible defaults.

By default, creates ` + constants.ConfigFileName + ` in the current directory
extending the standard policy. Use --interactive for a guided setup.

Examples:
  # Create .conscan.yaml in current directory
  conscan init

  # Custom output path
  conscan init --config team-policy.yaml

  # Overwrite existing file
  conscan init --force

  # Interactive setup wizard
  conscan init --interactive
  conscan init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName,
		"Output path for the policy file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing policy file")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	interactive, _ := cmd.Flags().GetBool("interactive")

	base := constants.PolicyStandard
	name := "project"

	if interactive {
		var err error
		base, name, err = runInteractiveSetup()
		if err != nil {
			return err
		}
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}

	content, err := renderPolicyFile(name, base)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	fmt.Printf("Created %s (extends %s)\n", configPath, base)
	fmt.Printf("Run: conscan analyze --policy-file %s .\n", configPath)
	return nil
}

func runInteractiveSetup() (base string, name string, err error) {
	presets := []struct {
		Label       string
		Description string
		Value       string
	}{
		{"Standard (recommended)", "Balanced thresholds for most projects", constants.PolicyStandard},
		{"Lenient", "Higher thresholds, fewer warnings", constants.PolicyLenient},
		{"Strict", "Lower thresholds, CI/CD enforcement", constants.PolicyStrict},
		{"NASA compliance", "Power-of-ten inspired, strictest gate", constants.PolicyNASACompliance},
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }}",
		Inactive: "   {{ .Label | white }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	selectPrompt := promptui.Select{
		Label:     "Which base policy should your project extend?",
		Items:     presets,
		Templates: templates,
	}

	idx, _, err := selectPrompt.Run()
	if err != nil {
		return "", "", fmt.Errorf("policy selection cancelled: %w", err)
	}
	base = presets[idx].Value

	namePrompt := promptui.Prompt{
		Label:   "Policy name",
		Default: "project",
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("name must not be empty")
			}
			return nil
		},
	}
	name, err = namePrompt.Run()
	if err != nil {
		return "", "", fmt.Errorf("name prompt cancelled: %w", err)
	}

	return base, name, nil
}

// renderPolicyFile produces a commented starter policy seeded with the
// base preset's key thresholds so they are easy to tune
func renderPolicyFile(name, base string) ([]byte, error) {
	engine := policy.NewEngine()
	pol, err := engine.Resolve(base)
	if err != nil {
		return nil, err
	}

	doc := map[string]interface{}{
		"name":        name,
		"description": fmt.Sprintf("Project policy extending %s", base),
		"extends":     base,
		"thresholds": map[string]interface{}{
			"max_positional_params": pol.Thresholds.MaxPositionalParams,
			"god_class_methods":     pol.Thresholds.GodClassMethods,
			"god_function_lines":    pol.Thresholds.GodFunctionLines,
		},
	}

	header := "# conscan policy file\n" +
		"# Thresholds below mirror the base policy; edit them to tune enforcement.\n" +
		"# Add disable_rules / enable_rules lists to toggle individual rules.\n"
	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render policy: %w", err)
	}
	return append([]byte(header), body...), nil
}
