package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RegistryConfig is the on-disk model registry format.
//
// Example:
//
//	capabilities:
//	  planning:
//	    description: "Sprint-plan generation"
//	    preferred: [openrouter-auto]
//	    fallback: [ollama-llama]
//	endpoints:
//	  openrouter-auto:
//	    provider: openrouter
//	    model: openrouter/auto
//	defaults:
//	  model: openrouter-auto
type RegistryConfig struct {
	Capabilities map[string]*CapabilityConfig `yaml:"capabilities"`
	Endpoints    map[string]*EndpointConfig   `yaml:"endpoints"`
	Defaults     *DefaultsConfig              `yaml:"defaults,omitempty"`
}

// LoadRegistryFromFile reads a registry configuration from a YAML file
// and builds a registry from it.
func LoadRegistryFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry config: %w", err)
	}

	var cfg RegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse registry config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry config %s: %w", path, err)
	}

	return registryFromConfig(&cfg), nil
}

// Validate checks the configuration for internal consistency: every model
// referenced by a capability must have an endpoint.
func (c *RegistryConfig) Validate() error {
	for name, cap := range c.Capabilities {
		if cap == nil {
			return fmt.Errorf("capability %q is empty", name)
		}
		for _, m := range append(append([]string{}, cap.Preferred...), cap.Fallback...) {
			if _, ok := c.Endpoints[m]; !ok {
				return fmt.Errorf("capability %q references unknown endpoint %q", name, m)
			}
		}
	}
	for name, ep := range c.Endpoints {
		if ep == nil || ep.Provider == "" {
			return fmt.Errorf("endpoint %q missing provider", name)
		}
		if ep.Model == "" {
			return fmt.Errorf("endpoint %q missing model", name)
		}
	}
	if c.Defaults != nil && c.Defaults.Model != "" {
		if _, ok := c.Endpoints[c.Defaults.Model]; !ok {
			return fmt.Errorf("defaults reference unknown endpoint %q", c.Defaults.Model)
		}
	}
	return nil
}

// registryFromConfig builds a registry from a validated configuration.
func registryFromConfig(cfg *RegistryConfig) *Registry {
	caps := make(map[Capability]*CapabilityConfig, len(cfg.Capabilities))
	for name, cc := range cfg.Capabilities {
		caps[Capability(name)] = cc
	}

	r := NewRegistry(caps, cfg.Endpoints)
	if cfg.Defaults != nil && cfg.Defaults.Model != "" {
		r.SetDefault(cfg.Defaults.Model)
	}
	return r
}

// MergeFromConfig replaces the registry contents in place, preserving
// endpoint health state. Used by the file watcher for hot reload.
func (r *Registry) MergeFromConfig(cfg *RegistryConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	caps := make(map[Capability]*CapabilityConfig, len(cfg.Capabilities))
	for name, cc := range cfg.Capabilities {
		caps[Capability(name)] = cc
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.capabilities = caps
	r.endpoints = cfg.Endpoints
	if cfg.Defaults != nil && cfg.Defaults.Model != "" {
		r.defaults = &DefaultsConfig{Model: cfg.Defaults.Model}
	}
	return nil
}

// ToConfig exports the current registry contents as a serializable config.
func (r *Registry) ToConfig() *RegistryConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make(map[string]*CapabilityConfig, len(r.capabilities))
	for name, cc := range r.capabilities {
		copied := *cc
		caps[string(name)] = &copied
	}

	endpoints := make(map[string]*EndpointConfig, len(r.endpoints))
	for name, ep := range r.endpoints {
		copied := *ep
		endpoints[name] = &copied
	}

	cfg := &RegistryConfig{
		Capabilities: caps,
		Endpoints:    endpoints,
	}
	if r.defaults != nil {
		cfg.Defaults = &DefaultsConfig{Model: r.defaults.Model}
	}
	return cfg
}
