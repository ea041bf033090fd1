// Package config provides configuration loading and management for Sprintplan.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Sprintplan configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	GitHub     GitHubConfig     `yaml:"github"`
	Audit      AuditConfig      `yaml:"audit"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Agents     AgentsConfig     `yaml:"agents"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	// Addr is the listen address (default: :8000)
	Addr string `yaml:"addr"`
	// OutputDir is where generated plans are persisted as JSON
	OutputDir string `yaml:"output_dir"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ModelConfig configures the completion model settings
type ModelConfig struct {
	// RegistryPath is the model registry YAML file (empty = built-in defaults)
	RegistryPath string `yaml:"registry_path"`
	// Temperature controls randomness for plan generation (0.0-1.0)
	Temperature float64 `yaml:"temperature"`
	// MaxTokens limits plan completion length
	MaxTokens int `yaml:"max_tokens"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// GitHubConfig configures issue-context gathering
type GitHubConfig struct {
	// Token authenticates API requests (supports ${VAR} expansion).
	// Empty means unauthenticated, which works but is rate-limited.
	Token string `yaml:"token"`
	// APIBaseURL overrides the GitHub API endpoint (tests, GHE)
	APIBaseURL string `yaml:"api_base_url"`
}

// AuditConfig configures the completion-call audit trail
type AuditConfig struct {
	// NATSURL is the NATS server URL (empty = auditing disabled)
	NATSURL string `yaml:"nats_url"`
	// Subject is the JetStream subject for call records
	Subject string `yaml:"subject"`
}

// TranscribeConfig configures audio transcription
type TranscribeConfig struct {
	// WhisperURL is a Whisper-compatible transcription endpoint
	// (empty = placeholder transcripts only)
	WhisperURL string `yaml:"whisper_url"`
	// APIKey authenticates transcription requests (supports ${VAR} expansion)
	APIKey string `yaml:"api_key"`
}

// AgentsConfig configures the sprint-analysis agent chain
type AgentsConfig struct {
	// Roster is the ordered list of assignable team members
	Roster []string `yaml:"roster"`
	// SprintCapacityHours is the per-sprint team capacity
	SprintCapacityHours int `yaml:"sprint_capacity_hours"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			OutputDir:       "output",
			ShutdownTimeout: 15 * time.Second,
		},
		Model: ModelConfig{
			RegistryPath: "",
			Temperature:  0.3,
			MaxTokens:    2000,
			Timeout:      3 * time.Minute,
		},
		GitHub: GitHubConfig{
			Token:      "${GITHUB_TOKEN}",
			APIBaseURL: "https://api.github.com",
		},
		Audit: AuditConfig{
			NATSURL: "",
			Subject: "planner.llm.calls",
		},
		Transcribe: TranscribeConfig{
			WhisperURL: "",
			APIKey:     "${OPENAI_API_KEY}",
		},
		Agents: AgentsConfig{
			Roster: []string{
				"Ada Lovelace",
				"Grace Hopper",
				"Edsger Dijkstra",
				"Radia Perlman",
			},
			SprintCapacityHours: 120,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.OutputDir == "" {
		return fmt.Errorf("server.output_dir is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("model.max_tokens must be positive")
	}
	if len(c.Agents.Roster) == 0 {
		return fmt.Errorf("agents.roster must not be empty")
	}
	if c.Agents.SprintCapacityHours <= 0 {
		return fmt.Errorf("agents.sprint_capacity_hours must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
// ${VAR} references in string values are expanded from the environment.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.expandEnv()
	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandEnv resolves ${VAR} references in credential fields.
// Unset variables expand to empty, never to the literal placeholder.
func (c *Config) expandEnv() {
	expand := func(s string) string {
		return os.Expand(s, func(key string) string {
			return os.Getenv(key)
		})
	}
	c.GitHub.Token = expand(c.GitHub.Token)
	c.Transcribe.APIKey = expand(c.Transcribe.APIKey)
	c.Audit.NATSURL = expand(c.Audit.NATSURL)
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.OutputDir != "" {
		c.Server.OutputDir = other.Server.OutputDir
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	// Model
	if other.Model.RegistryPath != "" {
		c.Model.RegistryPath = other.Model.RegistryPath
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.MaxTokens != 0 {
		c.Model.MaxTokens = other.Model.MaxTokens
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// GitHub
	if other.GitHub.Token != "" {
		c.GitHub.Token = other.GitHub.Token
	}
	if other.GitHub.APIBaseURL != "" {
		c.GitHub.APIBaseURL = other.GitHub.APIBaseURL
	}

	// Audit
	if other.Audit.NATSURL != "" {
		c.Audit.NATSURL = other.Audit.NATSURL
	}
	if other.Audit.Subject != "" {
		c.Audit.Subject = other.Audit.Subject
	}

	// Transcribe
	if other.Transcribe.WhisperURL != "" {
		c.Transcribe.WhisperURL = other.Transcribe.WhisperURL
	}
	if other.Transcribe.APIKey != "" {
		c.Transcribe.APIKey = other.Transcribe.APIKey
	}

	// Agents
	if len(other.Agents.Roster) > 0 {
		c.Agents.Roster = other.Agents.Roster
	}
	if other.Agents.SprintCapacityHours != 0 {
		c.Agents.SprintCapacityHours = other.Agents.SprintCapacityHours
	}
}
