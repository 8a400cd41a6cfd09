package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models agencydesk.yml.
type Config struct {
	Policies struct {
		Tasks struct {
			StrictTransitions bool `yaml:"strict_transitions"`
		} `yaml:"tasks"`
		Approvals struct {
			SingleOpenPerTask       bool `yaml:"single_open_per_task"`
			RequirePeerBeforeSenior bool `yaml:"require_peer_before_senior"`
			EnforceReviewerIdentity bool `yaml:"enforce_reviewer_identity"`
		} `yaml:"approvals"`
	} `yaml:"policies"`
	Analytics struct {
		DueSoonDays int `yaml:"due_soon_days"`
	} `yaml:"analytics"`
	Auth struct {
		AllowUserHeader bool `yaml:"allow_user_header"`
	} `yaml:"auth"`
}

// Validate ensures the config values are usable.
func (c *Config) Validate() error {
	if c.Analytics.DueSoonDays < 0 {
		return fmt.Errorf("config.analytics.due_soon_days must not be negative")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "agencydesk.yml")
}

// Default returns the permissive configuration used when no file exists.
func Default() *Config {
	var cfg Config
	cfg.Analytics.DueSoonDays = 7
	cfg.Auth.AllowUserHeader = true
	return &cfg
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with desk config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := Load(workspace)
	if err != nil {
		if _, statErr := os.Stat(Path(workspace)); os.IsNotExist(statErr) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// FromYAML parses and validates config from raw YAML bytes.
// Keys missing from data keep their Default() values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `policies:
  tasks:
    # reject status changes outside the lifecycle table
    strict_transitions: false
  approvals:
    single_open_per_task: false
    require_peer_before_senior: false
    enforce_reviewer_identity: false

analytics:
  due_soon_days: 7

auth:
  # accept X-User-Id as caller identity
  allow_user_header: true
`
