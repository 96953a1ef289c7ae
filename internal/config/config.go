// Package config loads replichat configuration from a YAML file with
// environment-variable overrides. The tenant secret is the one hard
// precondition: validation fails before any network call is attempted.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Well-known defaults. The user ID and persona slug are deliberately fixed
// constants (not random) so repeated bootstraps target the same remote records.
const (
	DefaultBaseURL     = "https://api.replika.chat"
	DefaultAPIVersion  = "2025-03-25"
	DefaultUserID      = "replichat-service-user"
	DefaultUserEmail   = "service@replichat.local"
	DefaultUserName    = "Replichat Service"
	DefaultPersonaSlug = "replichat-tutor"
	DefaultTimeout     = 30 * time.Second
)

// Config holds all replichat configuration.
type Config struct {
	Tenant  TenantConfig  `yaml:"tenant"`
	API     APIConfig     `yaml:"api"`
	Persona PersonaConfig `yaml:"persona"`
	Store   StoreConfig   `yaml:"store"`
}

// TenantConfig identifies the calling organization and its service user.
type TenantConfig struct {
	Secret    string `yaml:"secret"`
	UserID    string `yaml:"user_id"`
	UserEmail string `yaml:"user_email"`
	UserName  string `yaml:"user_name"`
}

// APIConfig configures the remote backend endpoint.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Version string `yaml:"version"`
	Timeout string `yaml:"timeout"`
}

// PersonaConfig describes the persona the bootstrap guarantees to exist.
type PersonaConfig struct {
	Slug             string `yaml:"slug"`
	Name             string `yaml:"name"`
	ShortDescription string `yaml:"short_description"`
	Greeting         string `yaml:"greeting"`
	Model            string `yaml:"model"`
	SystemMessage    string `yaml:"system_message"`
}

// StoreConfig configures the document store used by the surrounding app.
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite
	Path   string `yaml:"path"`
}

// Load reads configuration from the given YAML file, applies defaults, then
// environment overrides. A missing file is not an error; env-only setups are
// common in deployment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Default returns a config populated with the well-known defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Version == "" {
		c.API.Version = DefaultAPIVersion
	}
	if c.API.Timeout == "" {
		c.API.Timeout = DefaultTimeout.String()
	}
	if c.Tenant.UserID == "" {
		c.Tenant.UserID = DefaultUserID
	}
	if c.Tenant.UserEmail == "" {
		c.Tenant.UserEmail = DefaultUserEmail
	}
	if c.Tenant.UserName == "" {
		c.Tenant.UserName = DefaultUserName
	}
	if c.Persona.Slug == "" {
		c.Persona.Slug = DefaultPersonaSlug
	}
	if c.Persona.Name == "" {
		c.Persona.Name = "Replichat Tutor"
	}
	if c.Persona.ShortDescription == "" {
		c.Persona.ShortDescription = "Course assistant for the learning platform"
	}
	if c.Persona.Greeting == "" {
		c.Persona.Greeting = "Hi! Ask me anything about your courses."
	}
	if c.Persona.Model == "" {
		c.Persona.Model = "claude-3-5-haiku-latest"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
}

// applyEnvOverrides maps environment variables onto the config. Env always
// wins over file values so deployments can rotate the secret without edits.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TENANT_SECRET"); v != "" {
		c.Tenant.Secret = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("API_VERSION"); v != "" {
		c.API.Version = v
	}
	if v := os.Getenv("DEFAULT_USER_ID"); v != "" {
		c.Tenant.UserID = v
	}
	if v := os.Getenv("DEFAULT_PERSONA_SLUG"); v != "" {
		c.Persona.Slug = v
	}
	if v := os.Getenv("REPLICHAT_TIMEOUT"); v != "" {
		c.API.Timeout = v
	}
}

// Validate checks hard preconditions. The tenant secret must be present
// before any network call is attempted.
func (c *Config) Validate() error {
	if c.Tenant.Secret == "" {
		return fmt.Errorf("tenant secret is not configured (set TENANT_SECRET or tenant.secret)")
	}
	if c.Tenant.UserID == "" {
		return fmt.Errorf("tenant user_id must not be empty")
	}
	if c.Persona.Slug == "" {
		return fmt.Errorf("persona slug must not be empty")
	}
	if _, err := c.HTTPTimeout(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// HTTPTimeout parses the configured request timeout.
func (c *Config) HTTPTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid api timeout %q: %w", c.API.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("api timeout must be positive, got %q", c.API.Timeout)
	}
	return d, nil
}
