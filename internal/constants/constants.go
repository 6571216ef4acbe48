package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "conscan"

	// ConfigFileName is the default config file name
	ConfigFileName = ".conscan.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "CONSCAN"

	// DefaultBaselineFile is where check --update-baseline writes its
	// snapshot when no explicit path is given
	DefaultBaselineFile = ".conscan/baseline.json"
)

// Built-in policy names
const (
	PolicyNASACompliance = "nasa-compliance"
	PolicyStrict         = "strict"
	PolicyStandard       = "standard"
	PolicyLenient        = "lenient"
)

// Output format constants
const (
	OutputFormatText  = "text"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
	OutputFormatCSV   = "csv"
	OutputFormatSARIF = "sarif"
)

// DefaultIncludePatterns are the file patterns analyzed when the policy
// does not override them.
var DefaultIncludePatterns = []string{"**/*.py"}

// DefaultExcludeDirs are directory names skipped during file collection
// regardless of policy configuration.
var DefaultExcludeDirs = []string{
	// Version control
	".git",
	// Python environments and caches
	"venv",
	".venv",
	"__pycache__",
	".tox",
	".mypy_cache",
	".pytest_cache",
	// Dependencies and build outputs
	"node_modules",
	"vendor",
	"dist",
	"build",
	"site-packages",
	".eggs",
}

// Exit codes for the check command
const (
	ExitOK         = 0
	ExitViolations = 1
	ExitError      = 2
)
