package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models checkline.yml.
type Config struct {
	Library struct {
		// Categories is the closed set procedures may be filed under.
		// Seeded into the database idempotently on startup.
		Categories []string `yaml:"categories"`
		// DefaultGlobal controls the visibility flag new procedures
		// start with.
		DefaultGlobal bool `yaml:"default_global"`
	} `yaml:"library"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret,omitempty"`
	Events         []string `yaml:"events,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Library.Categories) == 0 {
		return fmt.Errorf("config.library.categories is required")
	}
	seen := map[string]bool{}
	for _, cat := range c.Library.Categories {
		if cat == "" {
			return fmt.Errorf("config.library.categories contains an empty entry")
		}
		if seen[cat] {
			return fmt.Errorf("config.library.categories lists %q twice", cat)
		}
		seen[cat] = true
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has no url", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "checkline.yml")
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the built-in config.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
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

const defaultTemplate = `library:
  categories:
    - Inspection
    - Preventive Maintenance
    - Safety
    - Calibration
    - Reactive Maintenance
    - Electrical
    - HVAC
    - Other
  default_global: false
`
