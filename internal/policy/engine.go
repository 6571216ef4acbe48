package policy

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/connascence/conscan/domain"
)

// Engine resolves policy names to fully populated policies. It knows the
// built-in presets and any custom policies loaded from files. Resolution
// always returns a private copy, so callers may not corrupt presets and
// two concurrent analyses never share mutable state.
type Engine struct {
	presets map[string]*Policy
	custom  map[string]*Policy
}

// NewEngine creates an engine with the built-in presets registered
func NewEngine() *Engine {
	return &Engine{
		presets: builtinPresets(),
		custom:  make(map[string]*Policy),
	}
}

// Names returns every resolvable policy name, presets first
func (e *Engine) Names() []string {
	names := PresetNames()
	extra := make([]string, 0, len(e.custom))
	for name := range e.custom {
		if _, ok := e.presets[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// Describe returns the description of a named policy
func (e *Engine) Describe(name string) (string, error) {
	p, err := e.lookup(name)
	if err != nil {
		return "", err
	}
	return p.Description, nil
}

// Resolve returns a copy of the named policy. Unknown names are an error,
// never a silent fallback to a default.
func (e *Engine) Resolve(name string) (*Policy, error) {
	p, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	return p.clone(), nil
}

// ResolveWithOverrides resolves a named policy and applies threshold
// overrides on top. Unknown override keys are rejected so that a typo in
// a CI configuration cannot quietly relax enforcement.
func (e *Engine) ResolveWithOverrides(name string, overrides map[string]interface{}) (*Policy, error) {
	p, err := e.Resolve(name)
	if err != nil {
		return nil, err
	}
	if len(overrides) == 0 {
		return p, nil
	}
	if err := applyOverrides(p, overrides); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) lookup(name string) (*Policy, error) {
	if p, ok := e.custom[name]; ok {
		return p, nil
	}
	if p, ok := e.presets[name]; ok {
		return p, nil
	}
	return nil, domain.NewConfigError(
		fmt.Sprintf("unknown policy %q (available: %s)", name, strings.Join(e.Names(), ", ")), nil)
}

// LoadFile reads a custom policy definition from a YAML file and
// registers it. The file may extend a preset or another custom policy
// via the "extends" key; extension chains are resolved depth-first and
// cycles are rejected.
func (e *Engine) LoadFile(path string) (*Policy, error) {
	return e.loadFile(path, map[string]bool{})
}

func (e *Engine) loadFile(path string, visiting map[string]bool) (*Policy, error) {
	if visiting[path] {
		return nil, domain.NewConfigError(fmt.Sprintf("policy inheritance cycle involving %s", path), nil)
	}
	visiting[path] = true
	defer delete(visiting, path)

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, domain.NewConfigError(fmt.Sprintf("failed to read policy file %s", path), err)
	}

	var def policyFile
	if err := v.Unmarshal(&def); err != nil {
		return nil, domain.NewConfigError(fmt.Sprintf("failed to parse policy file %s", path), err)
	}
	if def.Name == "" {
		return nil, domain.NewConfigError(fmt.Sprintf("policy file %s has no name", path), nil)
	}
	if err := rejectUnknownKeys(v, path); err != nil {
		return nil, err
	}

	base := defaultBasePolicy
	if def.Extends != "" {
		base = def.Extends
	}

	var parent *Policy
	if strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".yml") {
		p, err := e.loadFile(base, visiting)
		if err != nil {
			return nil, err
		}
		parent = p
	} else {
		p, err := e.Resolve(base)
		if err != nil {
			return nil, domain.NewConfigError(
				fmt.Sprintf("policy %s extends unknown base %q", def.Name, base), err)
		}
		parent = p
	}

	merged, err := mergePolicy(parent, &def)
	if err != nil {
		return nil, err
	}
	e.custom[merged.Name] = merged
	return merged.clone(), nil
}

const defaultBasePolicy = "standard"

// policyFile is the on-disk shape of a custom policy
type policyFile struct {
	Name         string                 `mapstructure:"name"`
	Description  string                 `mapstructure:"description"`
	Extends      string                 `mapstructure:"extends"`
	EnableRules  []string               `mapstructure:"enable_rules"`
	DisableRules []string               `mapstructure:"disable_rules"`
	Thresholds   map[string]interface{} `mapstructure:"thresholds"`
	Weights      map[string]float64     `mapstructure:"weights"`
	Include      []string               `mapstructure:"include"`
	Exclude      []string               `mapstructure:"exclude"`
	FileTimeout  string                 `mapstructure:"file_timeout"`
	FailSeverity string                 `mapstructure:"fail_severity"`
}

var knownFileKeys = map[string]bool{
	"name": true, "description": true, "extends": true,
	"enable_rules": true, "disable_rules": true,
	"thresholds": true, "weights": true,
	"include": true, "exclude": true,
	"file_timeout": true, "fail_severity": true,
}

func rejectUnknownKeys(v *viper.Viper, path string) error {
	for _, key := range v.AllKeys() {
		top := key
		if i := strings.IndexByte(key, '.'); i >= 0 {
			top = key[:i]
		}
		if !knownFileKeys[top] {
			return domain.NewConfigError(
				fmt.Sprintf("unknown key %q in policy file %s", top, path), nil)
		}
	}
	return nil
}

func mergePolicy(parent *Policy, def *policyFile) (*Policy, error) {
	p := parent.clone()
	p.Name = def.Name
	if def.Description != "" {
		p.Description = def.Description
	}

	for _, name := range def.EnableRules {
		rule, err := parseRule(name)
		if err != nil {
			return nil, err
		}
		p.EnabledRules[rule] = true
	}
	for _, name := range def.DisableRules {
		rule, err := parseRule(name)
		if err != nil {
			return nil, err
		}
		p.EnabledRules[rule] = false
	}

	if len(def.Thresholds) > 0 {
		if err := applyOverrides(p, def.Thresholds); err != nil {
			return nil, err
		}
	}
	for sev, w := range def.Weights {
		parsed, err := domain.ParseSeverity(sev)
		if err != nil {
			return nil, domain.NewConfigError(
				fmt.Sprintf("policy %s: unknown severity %q in weights", def.Name, sev), nil)
		}
		p.Weights[parsed] = w
	}

	if len(def.Include) > 0 {
		p.IncludePatterns = append([]string(nil), def.Include...)
	}
	if len(def.Exclude) > 0 {
		p.ExcludePatterns = append([]string(nil), def.Exclude...)
	}
	if def.FileTimeout != "" {
		d, err := time.ParseDuration(def.FileTimeout)
		if err != nil {
			return nil, domain.NewConfigError(
				fmt.Sprintf("policy %s: invalid file_timeout %q", def.Name, def.FileTimeout), err)
		}
		p.FileTimeout = d
	}
	if def.FailSeverity != "" {
		sev, err := domain.ParseSeverity(def.FailSeverity)
		if err != nil {
			return nil, domain.NewConfigError(
				fmt.Sprintf("policy %s: invalid fail_severity %q", def.Name, def.FailSeverity), nil)
		}
		p.FailSeverity = sev
	}

	return p, nil
}

func parseRule(name string) (domain.Rule, error) {
	for _, r := range domain.AllRules {
		if string(r) == name {
			return r, nil
		}
	}
	return "", domain.NewConfigError(fmt.Sprintf("unknown rule %q", name), nil)
}

// applyOverrides mutates a policy copy in place from a flat key/value map.
// Every key must name a known threshold.
func applyOverrides(p *Policy, overrides map[string]interface{}) error {
	for key, raw := range overrides {
		if err := applyOverride(p, key, raw); err != nil {
			return err
		}
	}
	return nil
}

func applyOverride(p *Policy, key string, raw interface{}) error {
	switch key {
	case "max_positional_params":
		return setInt(&p.Thresholds.MaxPositionalParams, key, raw)
	case "max_function_params":
		return setInt(&p.Thresholds.MaxFunctionParams, key, raw)
	case "god_class_methods":
		return setInt(&p.Thresholds.GodClassMethods, key, raw)
	case "god_class_lines":
		return setInt(&p.Thresholds.GodClassLines, key, raw)
	case "god_function_lines":
		return setInt(&p.Thresholds.GodFunctionLines, key, raw)
	case "god_module_lines":
		return setInt(&p.Thresholds.GodModuleLines, key, raw)
	case "max_magic_literals_per_function":
		return setInt(&p.Thresholds.MaxMagicLiteralsPerFunction, key, raw)
	case "min_duplicate_statements":
		return setInt(&p.Thresholds.MinDuplicateStatements, key, raw)
	case "min_duplicate_tokens":
		return setInt(&p.Thresholds.MinDuplicateTokens, key, raw)
	case "duplicate_literal_min_count":
		return setInt(&p.Thresholds.DuplicateLiteralMinCount, key, raw)
	case "max_name_uses":
		return setInt(&p.Thresholds.MaxNameUses, key, raw)
	case "max_type_checks":
		return setInt(&p.Thresholds.MaxTypeChecks, key, raw)
	case "max_global_mutations":
		return setInt(&p.Thresholds.MaxGlobalMutations, key, raw)
	case "max_nesting_depth":
		return setInt(&p.Thresholds.MaxNestingDepth, key, raw)
	case "max_module_global_vars":
		return setInt(&p.Thresholds.MaxModuleGlobalVars, key, raw)
	case "similarity_threshold":
		return setFloat(&p.Thresholds.SimilarityThreshold, key, raw)
	case "magic_literal_numbers":
		return setFloatList(&p.Thresholds.MagicLiteralNumbers, key, raw)
	case "magic_literal_strings":
		return setStringList(&p.Thresholds.MagicLiteralStrings, key, raw)
	default:
		return domain.NewConfigError(fmt.Sprintf("unknown threshold override %q", key), nil)
	}
}

func setInt(dst *int, key string, raw interface{}) error {
	switch v := raw.(type) {
	case int:
		*dst = v
	case int64:
		*dst = int(v)
	case float64:
		if v != float64(int(v)) {
			return domain.NewConfigError(fmt.Sprintf("threshold %q must be an integer", key), nil)
		}
		*dst = int(v)
	default:
		return domain.NewConfigError(fmt.Sprintf("threshold %q must be an integer, got %T", key, raw), nil)
	}
	if *dst < 0 {
		return domain.NewConfigError(fmt.Sprintf("threshold %q must not be negative", key), nil)
	}
	return nil
}

func setFloat(dst *float64, key string, raw interface{}) error {
	switch v := raw.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	case int64:
		*dst = float64(v)
	default:
		return domain.NewConfigError(fmt.Sprintf("threshold %q must be a number, got %T", key, raw), nil)
	}
	if *dst < 0 || *dst > 1 {
		return domain.NewConfigError(fmt.Sprintf("threshold %q must be between 0 and 1", key), nil)
	}
	return nil
}

// setFloatList replaces a numeric whitelist. Lists arrive as []interface{}
// from YAML policy files; the inline --set syntax has no list form.
func setFloatList(dst *[]float64, key string, raw interface{}) error {
	items, ok := raw.([]interface{})
	if !ok {
		return domain.NewConfigError(fmt.Sprintf("threshold %q must be a list of numbers, got %T", key, raw), nil)
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case float64:
			out = append(out, v)
		case int:
			out = append(out, float64(v))
		case int64:
			out = append(out, float64(v))
		default:
			return domain.NewConfigError(fmt.Sprintf("threshold %q entries must be numbers, got %T", key, item), nil)
		}
	}
	*dst = out
	return nil
}

// setStringList replaces a string whitelist.
func setStringList(dst *[]string, key string, raw interface{}) error {
	items, ok := raw.([]interface{})
	if !ok {
		return domain.NewConfigError(fmt.Sprintf("threshold %q must be a list of strings, got %T", key, raw), nil)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return domain.NewConfigError(fmt.Sprintf("threshold %q entries must be strings, got %T", key, item), nil)
		}
		out = append(out, s)
	}
	*dst = out
	return nil
}
