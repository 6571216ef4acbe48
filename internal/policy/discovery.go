package policy

import (
	"os"
	"path/filepath"

	"github.com/connascence/conscan/internal/constants"
)

var policyFileCandidates = []string{
	constants.ConfigFileName,
	".conscan.yml",
	"conscan.yaml",
	"conscan.yml",
}

// DiscoverFile finds a policy file for the given target path. It searches
// the target's directory upward to the filesystem root, then the current
// directory, the XDG config directory, the home directory, and finally
// the CONSCAN_POLICY environment variable. Returns "" when nothing is
// found; discovery never fails.
func DiscoverFile(targetPath string) string {
	if targetPath != "" {
		if absPath, err := filepath.Abs(targetPath); err == nil {
			if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if found := searchDirectory(dir); found != "" {
					return found
				}
				if parent := filepath.Dir(dir); parent == dir {
					break
				}
			}
		}
	}

	if found := searchDirectory("."); found != "" {
		return found
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if found := searchDirectory(filepath.Join(xdgConfig, constants.ToolName)); found != "" {
			return found
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if found := searchDirectory(filepath.Join(home, ".config", constants.ToolName)); found != "" {
			return found
		}
		if found := searchDirectory(home); found != "" {
			return found
		}
	}

	if envPolicy := os.Getenv(constants.EnvVarPrefix + "_POLICY"); envPolicy != "" {
		if _, err := os.Stat(envPolicy); err == nil {
			return envPolicy
		}
	}

	return ""
}

func searchDirectory(dir string) string {
	for _, candidate := range policyFileCandidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
