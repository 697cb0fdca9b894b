package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level configuration for verigraph
type Config struct {
	// Top names the root module for hierarchy resolution. Empty means
	// auto-detect (modules never instantiated by others).
	Top string `json:"top,omitempty"`

	// Inputs selects the AST XML files to load
	Inputs InputConfig `json:"inputs,omitempty"`

	// Emit contains graph output options
	Emit EmitConfig `json:"emit,omitempty"`

	// Rules contains design-rule configuration
	Rules RulesConfig `json:"rules,omitempty"`

	// Analysis contains analysis options
	Analysis AnalysisConfig `json:"analysis,omitempty"`
}

// InputConfig selects AST XML input files
type InputConfig struct {
	// Files is a list of glob patterns for AST XML files
	Files []string `json:"files,omitempty"`

	// Exclude is a list of glob patterns to exclude
	Exclude []string `json:"exclude,omitempty"`
}

// EmitConfig contains graph output options
type EmitConfig struct {
	// OutDir is where DOT files are written
	OutDir string `json:"outDir,omitempty"`

	// Basename overrides the output file stem (default: top module name)
	Basename string `json:"basename,omitempty"`

	// Format is the rendered-image extension drill-down links point at
	Format string `json:"format,omitempty"`

	// CollapseThreshold collapses bus labels beyond this many signals
	CollapseThreshold int `json:"collapseThreshold,omitempty"`

	// InterClusterDataFlow draws def/use edges across block clusters
	InterClusterDataFlow *bool `json:"interClusterDataFlow,omitempty"`
}

// RulesConfig contains design-rule configuration
type RulesConfig struct {
	// Severities maps rule names to severity: "off", "info", "warning", "error"
	Severities map[string]string `json:"severities,omitempty"`

	// Dir replaces the built-in rule set with .rego files from a directory
	Dir string `json:"dir,omitempty"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// MaxParallelModules limits concurrent module processing (0 = auto)
	MaxParallelModules int `json:"maxParallelModules,omitempty"`

	// TimingPath writes per-stage timing events as JSON lines when set
	TimingPath string `json:"timingPath,omitempty"`

	// CacheDir keeps fact tables between runs so rules evaluate
	// incrementally. Empty disables the cache.
	CacheDir string `json:"cacheDir,omitempty"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Inputs: InputConfig{
			Files:   []string{"*.xml", "**/*.xml"},
			Exclude: []string{},
		},
		Emit: EmitConfig{
			OutDir:            ".",
			Format:            "svg",
			CollapseThreshold: 3,
			InterClusterDataFlow: func() *bool {
				v := true
				return &v
			}(),
		},
		Rules: RulesConfig{
			Severities: map[string]string{},
		},
	}
}

// Load finds and loads the configuration file
// Search order:
//  1. ./verigraph.json (current working directory)
//  2. ./.verigraph.json (current working directory)
//  3. <rootPath>/verigraph.json (if different from cwd)
//  4. ~/.config/verigraph/config.json
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "verigraph.json"),
		filepath.Join(cwd, ".verigraph.json"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "verigraph.json"),
				filepath.Join(rootPath, ".verigraph.json"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "verigraph", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Inputs.Files) == 0 {
		c.Inputs.Files = []string{"*.xml", "**/*.xml"}
	}
	if c.Emit.OutDir == "" {
		c.Emit.OutDir = "."
	}
	if c.Emit.Format == "" {
		c.Emit.Format = "svg"
	}
	if c.Emit.CollapseThreshold == 0 {
		c.Emit.CollapseThreshold = 3
	}
	if c.Emit.InterClusterDataFlow == nil {
		v := true
		c.Emit.InterClusterDataFlow = &v
	}
	if c.Rules.Severities == nil {
		c.Rules.Severities = make(map[string]string)
	}
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Rules.Severities[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Rules.Severities[rule]; ok {
		return severity != "off"
	}
	return true
}

// SeverityOverrides returns the rule severity replacements to apply after
// evaluation, excluding rules switched off entirely.
func (c *Config) SeverityOverrides() map[string]string {
	out := make(map[string]string)
	for rule, severity := range c.Rules.Severities {
		if severity != "off" && severity != "" {
			out[rule] = severity
		}
	}
	return out
}
