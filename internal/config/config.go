// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/provider"
)

// Config represents the application configuration.
type Config struct {
	Defaults    DefaultsConfig            `yaml:"defaults"`
	Providers   map[string]ProviderConfig `yaml:"providers"`
	Embeddings  EmbeddingsConfig          `yaml:"embeddings"`
	Literature  LiteratureConfig          `yaml:"literature"`
	Server      ServerConfig              `yaml:"server,omitempty"`
	Experiments []core.RunOptions         `yaml:"experiments,omitempty"`
}

// DefaultsConfig holds default pipeline settings.
type DefaultsConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	DebateRounds     int     `yaml:"debate_rounds"`
	TeamSize         int     `yaml:"team_size"`
	DedupeThreshold  float64 `yaml:"dedupe_threshold"`
	TournamentRounds int     `yaml:"tournament_rounds"`
	ResultsDir       string  `yaml:"results_dir"`
}

// ProviderConfig holds provider-specific settings.
type ProviderConfig struct {
	Command      string        `yaml:"command"`
	Args         []string      `yaml:"args,omitempty"`
	DefaultModel string        `yaml:"default_model,omitempty"`
	Models       []string      `yaml:"models,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Enabled      bool          `yaml:"enabled"`
}

// EmbeddingsConfig holds settings for the embedding endpoint.
type EmbeddingsConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// LiteratureConfig holds settings for the paper search API and review loop.
type LiteratureConfig struct {
	APIKey             string `yaml:"api_key,omitempty"`
	Iterations         int    `yaml:"iterations"`
	PapersPerIteration int    `yaml:"papers_per_iteration"`
}

// ServerConfig holds web server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

func defaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"claude": {
			Command: "claude",
			Args:    []string{"--print"},
			Models:  []string{"opus", "sonnet", "haiku"},
			Timeout: 5 * time.Minute,
			Enabled: true,
		},
		"gemini": {
			Command: "gemini",
			Models:  []string{"pro", "flash"},
			Timeout: 5 * time.Minute,
			Enabled: true,
		},
		"qwen": {
			Command: "qwen",
			Models:  []string{"qwen-turbo", "qwen-plus", "qwen-max"},
			Timeout: 5 * time.Minute,
			Enabled: true,
		},
		"mock": {
			Command: "mock",
			Timeout: 1 * time.Minute,
			Enabled: true,
		},
	}
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Provider:         "claude",
			DebateRounds:     3,
			TeamSize:         3,
			DedupeThreshold:  0.8,
			TournamentRounds: 10,
			ResultsDir:       "results",
		},
		Providers: defaultProviders(),
		Embeddings: EmbeddingsConfig{
			Endpoint: "http://localhost:8080/v1/embeddings",
			Model:    "all-MiniLM-L6-v2",
			Timeout:  2 * time.Minute,
		},
		Literature: LiteratureConfig{
			Iterations:         5,
			PapersPerIteration: 10,
		},
		Server: ServerConfig{
			Port: 8183,
		},
		Experiments: []core.RunOptions{core.DefaultRunOptions()},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from a specific path. A missing file yields
// the defaults; a present file is merged over them.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file, proceed with defaults
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Merge with defaults for any missing providers
	for name, defaultProvider := range defaultProviders() {
		if _, exists := cfg.Providers[name]; !exists {
			cfg.Providers[name] = defaultProvider
		}
	}

	for i := range cfg.Experiments {
		if err := cfg.Experiments[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid experiment config %q: %w", cfg.Experiments[i].Name, err)
		}
	}

	// Apply .env overrides if file exists
	if env, err := LoadEnv(".env"); err == nil {
		ApplyEnvOverrides(cfg, env)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetProvider returns the configuration for a provider.
func (c *Config) GetProvider(name string) (ProviderConfig, bool) {
	p, ok := c.Providers[name]
	return p, ok
}

// CreateProvider creates a provider instance from this configuration.
func (c *Config) CreateProvider(name string) (provider.Provider, error) {
	provCfg, ok := c.GetProvider(name)
	if !ok {
		return nil, fmt.Errorf("provider %s not found in config", name)
	}
	if !provCfg.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", name)
	}
	if name == "mock" {
		return provider.NewMockProvider(), nil
	}
	return provider.NewExecProvider(provider.Config{
		Name:         name,
		Command:      provCfg.Command,
		Args:         provCfg.Args,
		DefaultModel: provCfg.DefaultModel,
		Models:       provCfg.Models,
		Timeout:      provCfg.Timeout,
	}), nil
}

// CreateRegistry creates a provider registry from this configuration.
func (c *Config) CreateRegistry() (*provider.Registry, error) {
	registry := provider.NewRegistry()

	for name, provCfg := range c.Providers {
		if !provCfg.Enabled {
			continue
		}
		p, err := c.CreateProvider(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
		}
		registry.Register(p)
	}

	return registry, nil
}

// CreateEmbedder creates the embedding client from this configuration.
func (c *Config) CreateEmbedder() *provider.HTTPEmbedder {
	return provider.NewHTTPEmbedder(
		c.Embeddings.Endpoint,
		c.Embeddings.Model,
		c.Embeddings.APIKey,
		c.Embeddings.Timeout,
	)
}

// DataDir returns the directory holding the database and index files.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ideagen"
	}
	return filepath.Join(home, ".ideagen")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// GenerateExample generates an example configuration file.
func GenerateExample() string {
	example := `# ideagen configuration file
# Place this file at ~/.ideagen/config.yaml

defaults:
  provider: claude          # Default LLM provider
  model: ""                 # Default model (empty = provider default)
  debate_rounds: 3          # Idea generation rounds per run
  team_size: 3              # Debaters selected from the persona pool
  dedupe_threshold: 0.8     # Cosine similarity above which ideas merge
  tournament_rounds: 10     # Head-to-head ranking rounds
  results_dir: results      # Where run records are written

providers:
  claude:
    command: claude
    args: ["--print"]
    default_model: ""       # e.g., "sonnet", "opus", "haiku"
    models: ["opus", "sonnet", "haiku"]
    timeout: 5m
    enabled: true

  gemini:
    command: gemini
    args: []
    default_model: ""
    models: ["pro", "flash"]
    timeout: 5m
    enabled: true

embeddings:
  endpoint: http://localhost:8080/v1/embeddings
  model: all-MiniLM-L6-v2
  api_key: ""
  timeout: 2m

literature:
  api_key: ""               # Semantic Scholar API key
  iterations: 5
  papers_per_iteration: 10

server:
  port: 8183

# Experiment configurations (optional)
experiments:
  - name: full_system
    retrieval: persona_viewpoint
    synthesis: history
    critique_enabled: true
    prompt: default
    generate_abstracts: true

  - name: no_critique
    retrieval: persona_viewpoint
    synthesis: history
    critique_enabled: false
    prompt: default
    generate_abstracts: true

  - name: no_rag
    retrieval: off
    synthesis: history
    critique_enabled: true
    prompt: default
    generate_abstracts: true

  - name: no_viewpoint
    retrieval: initial_query
    synthesis: history
    critique_enabled: true
    prompt: default
    generate_abstracts: true
`
	return example
}
