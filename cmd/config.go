package cmd

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/SergeiSkv/FixProof/models"
)

//go:embed config_schema.json
var configSchemaJSON []byte

// Config represents the configuration for an analysis run.
type Config struct {
	// Rules lists rule names or group names ("bundled", "vet",
	// "staticcheck", ...) to run.
	Rules []string `yaml:"rules" json:"rules,omitempty" toml:"rules"`

	// Severity overrides the reported severity per rule name.
	Severity map[string]string `yaml:"severity,omitempty" json:"severity,omitempty" toml:"severity"`

	Paths  PathsConfig  `yaml:"paths" json:"paths" toml:"paths"`
	Output OutputConfig `yaml:"output" json:"output" toml:"output"`
	Cache  CacheConfig  `yaml:"cache" json:"cache" toml:"cache"`
}

// PathsConfig controls which files diagnostics are reported for.
type PathsConfig struct {
	Exclude []string `yaml:"exclude" json:"exclude,omitempty" toml:"exclude"`
}

// OutputConfig controls how results are rendered.
type OutputConfig struct {
	Format  string `yaml:"format" json:"format" toml:"format"` // "text", "json" or "sarif"
	Compact bool   `yaml:"compact" json:"compact" toml:"compact"`
}

// CacheConfig controls the persistent result cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty" toml:"path"` // empty means the per-user default
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	config := &Config{}

	config.Rules = []string{"bundled", "vet"}
	config.Paths.Exclude = []string{"vendor", "testdata", ".git", "node_modules"}
	config.Output.Format = "text"
	config.Cache.Enabled = true

	return config
}

var configNames = []string{
	".fixproof.yaml",
	".fixproof.yml",
	".fixproof.json",
	".fixproof.toml",
}

// LoadConfig loads configuration from path, or discovers one walking up
// from the working directory to the module root. Without a config file
// the defaults apply.
func LoadConfig(path string) (*Config, error) {
	resolved := path
	if resolved == "" {
		resolved = findConfigPath(".")
	}
	if resolved == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := decodeConfig(data, resolved, config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", resolved, err)
	}
	return config, nil
}

func decodeConfig(data []byte, path string, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse TOML config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, config); err == nil {
			return nil
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config (tried JSON and YAML): %w", err)
		}
	}
	return nil
}

// findConfigPath probes for a config file from start upward, stopping
// at the module root.
func findConfigPath(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		for _, name := range configNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var compileConfigSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(configSchemaJSON, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse embedded schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fixproof-config.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile("fixproof-config.json")
})

// Validate checks the configuration against the embedded JSON schema
// and the known severity names.
func (c *Config) Validate() error {
	schema, err := compileConfigSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for rule, name := range c.Severity {
		if _, err := models.ParseSeverityLevel(name); err != nil {
			return fmt.Errorf("invalid severity for rule %s: %w", rule, err)
		}
	}
	return nil
}

// SeverityOverrides returns the parsed per-rule severity overrides.
func (c *Config) SeverityOverrides() map[string]models.SeverityLevel {
	out := make(map[string]models.SeverityLevel, len(c.Severity))
	for rule, name := range c.Severity {
		level, err := models.ParseSeverityLevel(name)
		if err != nil {
			continue
		}
		out[rule] = level
	}
	return out
}

// Excluded reports whether diagnostics for path should be dropped.
func (c *Config) Excluded(path string) bool {
	for _, pattern := range c.Paths.Exclude {
		if matchPattern(path, pattern) {
			return true
		}
	}
	return false
}

func matchPattern(path, pattern string) bool {
	if ok, err := filepath.Match(pattern, filepath.Base(path)); err == nil && ok {
		return true
	}
	return strings.Contains(path, pattern)
}

// writeDefaultConfig creates a starter config file.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	const configFileMode = 0o644
	if err := os.WriteFile(path, data, configFileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
