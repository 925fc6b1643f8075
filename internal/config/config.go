package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"github.com/benedictfischer09/sourcecode-verifier/internal/rules"
)

const (
	EffectPass = "pass"
	EffectFail = "fail"

	DiffBuiltin = "builtin"
	DiffGit     = "git"
)

type PolicyRule struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
	Effect     string `yaml:"effect"`
}

type PolicyConfig struct {
	Default string       `yaml:"default"`
	Rules   []PolicyRule `yaml:"rules,omitempty"`
}

// DefaultPolicy fails a run when any verified package shows differences.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		Default: EffectPass,
		Rules: []PolicyRule{
			{Name: "fail-on-differences", Expression: `status == "differences"`, Effect: EffectFail},
		},
	}
}

type DiffConfig struct {
	Engine  string `yaml:"engine"`
	Workers int    `yaml:"workers"`
	Git     string `yaml:"git,omitempty"`
}

// IgnoreConfig holds patterns added on top of the built-in rule sets.
type IgnoreConfig struct {
	Artifact []string `yaml:"artifact,omitempty"`
	Source   []string `yaml:"source,omitempty"`
	Display  []string `yaml:"display,omitempty"`
}

type Config struct {
	LogLevel    string       `yaml:"log_level"`
	LogFormat   string       `yaml:"log_format"`
	CacheDir    string       `yaml:"cache_dir,omitempty"`
	ReportsDir  string       `yaml:"reports_dir,omitempty"`
	RubyGemsURL string       `yaml:"rubygems_url,omitempty"`
	GitHubToken string       `yaml:"github_token,omitempty"`
	Workers     int          `yaml:"workers"`
	Diff        DiffConfig   `yaml:"diff"`
	Ignore      IgnoreConfig `yaml:"ignore,omitempty"`
	Policy      PolicyConfig `yaml:"policy,omitempty"`
	KeepWorkdir bool         `yaml:"keep_workdir,omitempty"`
	NoCache     bool         `yaml:"no_cache,omitempty"`
}

// Default returns a validated configuration with every default filled in.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be 'console' or 'json', got %q", c.LogFormat)
	}

	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}

	if err := c.validateDiff(); err != nil {
		return err
	}
	if err := c.validateIgnore(); err != nil {
		return err
	}
	return c.validatePolicy()
}

func (c *Config) validateDiff() error {
	if c.Diff.Engine == "" {
		c.Diff.Engine = DiffBuiltin
	}
	if c.Diff.Engine != DiffBuiltin && c.Diff.Engine != DiffGit {
		return fmt.Errorf("diff.engine must be 'builtin' or 'git', got %q", c.Diff.Engine)
	}
	if c.Diff.Workers == 0 {
		c.Diff.Workers = 4
	}
	if c.Diff.Workers < 1 {
		return fmt.Errorf("diff.workers must be positive, got %d", c.Diff.Workers)
	}
	if c.Diff.Engine == DiffGit && c.Diff.Git == "" {
		c.Diff.Git = "git"
	}
	return nil
}

func (c *Config) validateIgnore() error {
	for _, set := range []struct {
		key      string
		patterns []string
	}{
		{"ignore.artifact", c.Ignore.Artifact},
		{"ignore.source", c.Ignore.Source},
		{"ignore.display", c.Ignore.Display},
	} {
		if _, err := rules.Compile(nil, set.patterns); err != nil {
			return fmt.Errorf("%s: %w", set.key, err)
		}
	}
	return nil
}

func (c *Config) validatePolicy() error {
	if c.Policy.Default == "" {
		if len(c.Policy.Rules) == 0 {
			c.Policy = DefaultPolicy()
		} else {
			c.Policy.Default = EffectPass
		}
	}
	if c.Policy.Default != EffectPass && c.Policy.Default != EffectFail {
		return fmt.Errorf("policy default must be 'pass' or 'fail', got %q", c.Policy.Default)
	}

	seen := make(map[string]bool)
	for i, rule := range c.Policy.Rules {
		if rule.Name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if rule.Effect != EffectPass && rule.Effect != EffectFail {
			return fmt.Errorf("rule %d (%q): effect must be 'pass' or 'fail', got %q", i, rule.Name, rule.Effect)
		}
		if seen[rule.Name] {
			return fmt.Errorf("rule %d: duplicate rule name %q", i, rule.Name)
		}
		seen[rule.Name] = true
	}

	return validateCELExpressions(c.Policy.Rules)
}

// NewPolicyEnv declares the variables a policy expression can reference.
func NewPolicyEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("version", cel.StringType),
		cel.Variable("repository", cel.StringType),
		cel.Variable("tag", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("identical", cel.BoolType),
		cel.Variable("artifact_only", cel.ListType(cel.StringType)),
		cel.Variable("source_only", cel.ListType(cel.StringType)),
		cel.Variable("modified", cel.ListType(cel.StringType)),
		cel.Variable("error", cel.StringType),
	)
}

func validateCELExpressions(policyRules []PolicyRule) error {
	if len(policyRules) == 0 {
		return nil
	}

	env, err := NewPolicyEnv()
	if err != nil {
		return fmt.Errorf("creating CEL environment: %w", err)
	}

	for _, rule := range policyRules {
		_, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("rule %q: invalid CEL expression: %w", rule.Name, issues.Err())
		}
	}

	return nil
}
