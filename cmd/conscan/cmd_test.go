package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/connascence/conscan/internal/constants"
)

func TestAnalyzeCmd_FlagsExist(t *testing.T) {
	cmd := analyzeCmd()

	expectedFlags := []string{"policy", "policy-file", "format", "output", "set", "include", "exclude", "jobs", "no-cache", "details"}
	for _, flagName := range expectedFlags {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			t.Errorf("Missing expected flag: --%s", flagName)
		}
	}
}

func TestAnalyzeCmd_ShortFlags(t *testing.T) {
	cmd := analyzeCmd()

	shortFlags := map[string]string{
		"p": "policy",
		"f": "format",
		"o": "output",
		"j": "jobs",
	}

	for short, long := range shortFlags {
		flag := cmd.Flags().ShorthandLookup(short)
		if flag == nil {
			t.Errorf("Missing short flag -%s for --%s", short, long)
		}
	}
}

func TestAnalyzeCmd_DefaultValues(t *testing.T) {
	cmd := analyzeCmd()

	policyFlag := cmd.Flags().Lookup("policy")
	if policyFlag == nil {
		t.Fatal("policy flag not found")
	}
	if policyFlag.DefValue != constants.PolicyStandard {
		t.Errorf("Expected default policy to be %q, got %q", constants.PolicyStandard, policyFlag.DefValue)
	}

	formatFlag := cmd.Flags().Lookup("format")
	if formatFlag == nil {
		t.Fatal("format flag not found")
	}
	if formatFlag.DefValue != "text" {
		t.Errorf("Expected default format to be 'text', got %q", formatFlag.DefValue)
	}
}

func TestAnalyzeCmd_NoPathsError(t *testing.T) {
	cmd := analyzeCmd()
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error when no paths specified")
	}
}

func TestCheckCmd_FlagsExist(t *testing.T) {
	cmd := checkCmd()

	expectedFlags := []string{"policy", "policy-file", "fail-on", "set", "exclude", "jobs",
		"no-cache", "quiet", "json", "baseline", "update-baseline", "allow-parse-errors"}
	for _, flagName := range expectedFlags {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			t.Errorf("Missing expected flag: --%s", flagName)
		}
	}
}

func TestCheckCmd_NoPathsExitCode(t *testing.T) {
	cmd := checkCmd()
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("Expected error when no paths specified")
	}
	exitErr, ok := err.(*CheckExitError)
	if !ok {
		t.Fatalf("Expected CheckExitError, got %T", err)
	}
	if exitErr.Code != constants.ExitError {
		t.Errorf("Expected exit code %d, got %d", constants.ExitError, exitErr.Code)
	}
}

func TestCheckCmd_UnanalyzableFileFailsGate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.py"), []byte("def broken(:\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := checkCmd()
	cmd.SetArgs([]string{"--quiet", dir})

	err := cmd.Execute()
	exitErr, ok := err.(*CheckExitError)
	if !ok {
		t.Fatalf("Expected CheckExitError, got %T (%v)", err, err)
	}
	if exitErr.Code != constants.ExitViolations {
		t.Errorf("Expected exit code %d for unanalyzable file, got %d", constants.ExitViolations, exitErr.Code)
	}
}

func TestCheckCmd_AllowParseErrorsPasses(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.py"), []byte("def broken(:\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := checkCmd()
	cmd.SetArgs([]string{"--quiet", "--allow-parse-errors", dir})

	if err := cmd.Execute(); err != nil {
		t.Errorf("Expected pass with --allow-parse-errors, got %v", err)
	}
}

func TestCheckCmd_BaselineGatesNewFindingsOnly(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "legacy.py")
	if err := os.WriteFile(source, []byte("def setup(host, port, user, password, timeout):\n    return host\n"), 0644); err != nil {
		t.Fatal(err)
	}
	baseline := filepath.Join(dir, "baseline.json")

	// Without a baseline the existing debt fails the gate
	cmd := checkCmd()
	cmd.SetArgs([]string{"--quiet", dir})
	if err := cmd.Execute(); err == nil {
		t.Fatal("Expected the gate to fail before a baseline exists")
	}

	cmd = checkCmd()
	cmd.SetArgs([]string{"--quiet", "--update-baseline", "--baseline", baseline, dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Writing the baseline must succeed: %v", err)
	}
	if _, err := os.Stat(baseline); err != nil {
		t.Fatalf("Baseline file not written: %v", err)
	}

	// The accepted findings no longer gate
	cmd = checkCmd()
	cmd.SetArgs([]string{"--quiet", "--baseline", baseline, dir})
	if err := cmd.Execute(); err != nil {
		t.Errorf("Expected pass against the fresh baseline, got %v", err)
	}

	// A new violation still fails
	extra := filepath.Join(dir, "new.py")
	if err := os.WriteFile(extra, []byte("def rotate(key, salt, rounds, mode, spare):\n    return key\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cmd = checkCmd()
	cmd.SetArgs([]string{"--quiet", "--baseline", baseline, dir})
	err := cmd.Execute()
	exitErr, ok := err.(*CheckExitError)
	if !ok {
		t.Fatalf("Expected CheckExitError for the new finding, got %T (%v)", err, err)
	}
	if exitErr.Code != constants.ExitViolations {
		t.Errorf("Expected exit code %d, got %d", constants.ExitViolations, exitErr.Code)
	}
}

func TestParseOverrides(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		wantErr bool
		check   func(map[string]interface{}) bool
	}{
		{
			name:  "integer value",
			pairs: []string{"max_positional_params=2"},
			check: func(m map[string]interface{}) bool { return m["max_positional_params"] == 2 },
		},
		{
			name:  "float value",
			pairs: []string{"similarity_threshold=0.9"},
			check: func(m map[string]interface{}) bool { return m["similarity_threshold"] == 0.9 },
		},
		{
			name:  "string passes through",
			pairs: []string{"fail_severity=medium"},
			check: func(m map[string]interface{}) bool { return m["fail_severity"] == "medium" },
		},
		{
			name:    "missing equals",
			pairs:   []string{"max_positional_params"},
			wantErr: true,
		},
		{
			name:    "empty key",
			pairs:   []string{"=3"},
			wantErr: true,
		},
		{
			name:  "empty input",
			pairs: nil,
			check: func(m map[string]interface{}) bool { return m == nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOverrides(tt.pairs)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil && !tt.check(got) {
				t.Errorf("unexpected overrides: %v", got)
			}
		})
	}
}

func TestPoliciesCmd_ListsPresets(t *testing.T) {
	cmd := policiesCmd()
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("policies command failed: %v", err)
	}
}

func TestPoliciesCmd_UnknownPolicy(t *testing.T) {
	cmd := policiesCmd()
	cmd.SetArgs([]string{"no-such-policy"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for unknown policy")
	}
}
