// Package config loads council configuration from YAML. A file declares the
// deliberating backends, the chair, and the deliberation settings; it maps
// onto engine.Config plus a set of constructed invokers, so a caller can
// stand up a full council from one file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"gopkg.in/yaml.v3"

	"github.com/isamwata/llmcouncil/backend"
	"github.com/isamwata/llmcouncil/backend/anthropic"
	"github.com/isamwata/llmcouncil/backend/openai"
	"github.com/isamwata/llmcouncil/engine"
	"github.com/isamwata/llmcouncil/ranking"
)

// Supported backend providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// BackendSpec declares one model backend. Model and Temperature fall back to
// the provider's defaults when omitted.
type BackendSpec struct {
	ID          string   `yaml:"id"`
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   int64    `yaml:"max_tokens,omitempty"`
}

// CriterionSpec declares one evaluation criterion entry.
type CriterionSpec struct {
	Name        string `yaml:"name"`
	Focus       string `yaml:"focus"`
	Description string `yaml:"description,omitempty"`
}

// BootstrapSpec declares the randomized evaluation settings. Enabled is a
// pointer so an absent key keeps the default (on) while an explicit false
// turns bootstrapping off.
type BootstrapSpec struct {
	Enabled    *bool `yaml:"enabled,omitempty"`
	Iterations int   `yaml:"iterations,omitempty"`
}

// Config models a council configuration file.
type Config struct {
	Backends  []BackendSpec `yaml:"backends"`
	Chair     BackendSpec   `yaml:"chair"`
	Bootstrap BootstrapSpec `yaml:"bootstrap,omitempty"`

	Criteria    []CriterionSpec `yaml:"criteria,omitempty"`
	Aggregation string          `yaml:"aggregation,omitempty"`

	// InvokeTimeout is a Go duration string ("90s", "2m").
	InvokeTimeout    string `yaml:"invoke_timeout,omitempty"`
	MaxCalls         int    `yaml:"max_calls,omitempty"`
	SynthesisRetries int    `yaml:"synthesis_retries,omitempty"`

	// SynthesisMarkers lists required section markers for the final answer.
	// Empty disables coverage validation.
	SynthesisMarkers []string `yaml:"synthesis_markers,omitempty"`
}

// Load reads and parses a council configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses raw YAML into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	for i := range c.Backends {
		c.Backends[i].normalize()
	}
	c.Chair.normalize()
	c.Aggregation = strings.ToLower(strings.TrimSpace(c.Aggregation))
	c.InvokeTimeout = strings.TrimSpace(c.InvokeTimeout)
}

func (s *BackendSpec) normalize() {
	s.ID = strings.TrimSpace(s.ID)
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	s.Model = strings.TrimSpace(s.Model)
}

func (c *Config) validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend is required")
	}
	for i := range c.Backends {
		if err := c.Backends[i].validate(); err != nil {
			return fmt.Errorf("backends[%d]: %w", i, err)
		}
	}
	if err := c.Chair.validate(); err != nil {
		return fmt.Errorf("chair: %w", err)
	}
	if c.InvokeTimeout != "" {
		if _, err := time.ParseDuration(c.InvokeTimeout); err != nil {
			return fmt.Errorf("invoke_timeout: %w", err)
		}
	}
	if c.Aggregation != "" {
		if _, err := ranking.ParseMethod(c.Aggregation); err != nil {
			return err
		}
	}
	return nil
}

func (s BackendSpec) validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	switch s.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
		return nil
	default:
		return fmt.Errorf("provider must be %q, %q or %q", ProviderOpenAI, ProviderAnthropic, ProviderMock)
	}
}

// EngineConfig converts the file into an engine.Config. The duration string
// is already validated, so the parse cannot fail here.
func (c *Config) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig
	cfg.ChairID = c.Chair.ID
	for _, b := range c.Backends {
		cfg.Backends = append(cfg.Backends, b.ID)
	}
	if c.Bootstrap.Enabled != nil {
		cfg.BootstrapEnabled = *c.Bootstrap.Enabled
	}
	if c.Bootstrap.Iterations > 0 {
		cfg.BootstrapIterations = c.Bootstrap.Iterations
	}
	for _, cr := range c.Criteria {
		cfg.Criteria = append(cfg.Criteria, engine.Criterion{
			Name:        cr.Name,
			Focus:       cr.Focus,
			Description: cr.Description,
		})
	}
	if c.Aggregation != "" {
		cfg.Aggregation = ranking.Method(c.Aggregation)
	}
	if c.InvokeTimeout != "" {
		d, _ := time.ParseDuration(c.InvokeTimeout)
		cfg.InvokeTimeout = d
	}
	cfg.MaxCalls = c.MaxCalls
	if c.SynthesisRetries > 0 {
		cfg.SynthesisRetries = c.SynthesisRetries
	}
	return cfg
}

// CoverageValidator returns the marker validator declared by the file, or nil
// when no markers are configured.
func (c *Config) CoverageValidator() engine.CoverageValidator {
	if len(c.SynthesisMarkers) == 0 {
		return nil
	}
	return engine.MarkerValidator{RequiredMarkers: c.SynthesisMarkers}
}

// BuildInvokers constructs one invoker per declared backend, chair included,
// keyed by backend id. API credentials come from the providers' usual
// environment variables.
func (c *Config) BuildInvokers() (map[string]backend.Invoker, error) {
	invokers := make(map[string]backend.Invoker, len(c.Backends)+1)
	for _, spec := range append(append([]BackendSpec{}, c.Backends...), c.Chair) {
		if _, ok := invokers[spec.ID]; ok {
			return nil, fmt.Errorf("config: duplicate backend id %q", spec.ID)
		}
		inv, err := buildInvoker(spec)
		if err != nil {
			return nil, fmt.Errorf("config: backend %q: %w", spec.ID, err)
		}
		invokers[spec.ID] = inv
	}
	return invokers, nil
}

func buildInvoker(spec BackendSpec) (backend.Invoker, error) {
	switch spec.Provider {
	case ProviderOpenAI:
		return openai.NewInvoker(spec.ID, func(o *openai.Options) {
			if spec.Model != "" {
				o.Model = spec.Model
			}
			if spec.Temperature != nil {
				o.Temperature = *spec.Temperature
			}
			if spec.MaxTokens > 0 {
				o.MaxCompletionTokens = spec.MaxTokens
			}
		}), nil
	case ProviderAnthropic:
		return anthropic.NewInvoker(spec.ID, func(o *anthropic.Options) {
			if spec.Model != "" {
				o.Model = anthropicsdk.Model(spec.Model)
			}
			if spec.Temperature != nil {
				o.Temperature = *spec.Temperature
			}
			if spec.MaxTokens > 0 {
				o.MaxTokens = spec.MaxTokens
			}
		}), nil
	case ProviderMock:
		return backend.NewMockInvoker(spec.ID), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", spec.Provider)
	}
}
