// Package config loads the application settings from config.json or
// config.yaml.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/governance"
)

// Settings ranges accepted for the pipeline section.
const (
	MinThreshold = 0.01
	MaxThreshold = 0.20
	MinAttempts  = 1
	MaxAttempts  = 10
)

type Config struct {
	App        AppConfig                 `json:"app" yaml:"app"`
	Gateways   map[string]GatewayConfig  `json:"gateways" yaml:"gateways"`
	Providers  map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Models     ModelsConfig              `json:"models" yaml:"models"`
	Memory     MemoryConfig              `json:"memory" yaml:"memory"`
	Pipeline   agent.PipelineConfig      `json:"pipeline" yaml:"pipeline"`
	Workflow   WorkflowConfig            `json:"workflow" yaml:"workflow"`
	Governance governance.Rules          `json:"governance" yaml:"governance"`
}

type AppConfig struct {
	Name      string `json:"name" yaml:"name"`
	Workspace string `json:"workspace" yaml:"workspace"`
	// Prompts is a directory of <name>.md files overriding the built-in prompts.
	Prompts string `json:"prompts" yaml:"prompts"`
	Logs    string `json:"logs" yaml:"logs"`
}

type GatewayConfig struct {
	Token   string `json:"token" yaml:"token"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// ModelsConfig overrides the provider model per agent role.
type ModelsConfig struct {
	Planner string `json:"planner,omitempty" yaml:"planner,omitempty"`
	Coder   string `json:"coder,omitempty" yaml:"coder,omitempty"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Chatbot string `json:"chatbot,omitempty" yaml:"chatbot,omitempty"`
}

type MemoryConfig struct {
	Type string `json:"type" yaml:"type"`
	Path string `json:"path" yaml:"path"`
}

type WorkflowConfig struct {
	ExecutionDelayMs int `json:"executionDelayMs" yaml:"executionDelayMs"`
	ReviewDelayMs    int `json:"reviewDelayMs" yaml:"reviewDelayMs"`
}

func (w WorkflowConfig) ExecutionDelay() time.Duration {
	return time.Duration(w.ExecutionDelayMs) * time.Millisecond
}

func (w WorkflowConfig) ReviewDelay() time.Duration {
	return time.Duration(w.ReviewDelayMs) * time.Millisecond
}

// Default returns the settings used when a field is left out of the file.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "pipelineai",
			Workspace: "workspace",
			Logs:      "logs",
		},
		Gateways:  map[string]GatewayConfig{},
		Providers: map[string]ProviderConfig{},
		Memory: MemoryConfig{
			Type: "sqlite",
			Path: "data/pipelineai.db",
		},
		Pipeline: agent.DefaultPipelineConfig(),
		Workflow: WorkflowConfig{
			ExecutionDelayMs: 800,
			ReviewDelayMs:    400,
		},
		Governance: governance.Rules{
			DeniedPatterns: []string{`rm\s+-rf`, `mkfs`, `shutdown`, `reboot`},
		},
	}
}

// Load reads path as JSON, or as YAML when it ends in .yaml or .yml, on top
// of Default. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the pipeline section against the accepted ranges.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.DriftThreshold < MinThreshold || p.DriftThreshold > MaxThreshold {
		return fmt.Errorf("pipeline.driftThreshold %.2f out of range [%.2f, %.2f]", p.DriftThreshold, MinThreshold, MaxThreshold)
	}
	if p.AccuracyThreshold < MinThreshold || p.AccuracyThreshold > MaxThreshold {
		return fmt.Errorf("pipeline.accuracyThreshold %.2f out of range [%.2f, %.2f]", p.AccuracyThreshold, MinThreshold, MaxThreshold)
	}
	if p.MaxRetrainingAttempts < MinAttempts || p.MaxRetrainingAttempts > MaxAttempts {
		return fmt.Errorf("pipeline.maxRetrainingAttempts %d out of range [%d, %d]", p.MaxRetrainingAttempts, MinAttempts, MaxAttempts)
	}
	if c.Workflow.ExecutionDelayMs < 0 || c.Workflow.ReviewDelayMs < 0 {
		return fmt.Errorf("workflow delays must not be negative")
	}
	return nil
}

// GetDefaultProvider returns the first enabled provider by name.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// Gateway returns the named gateway config if it is enabled and has a token.
func (c *Config) Gateway(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled && g.Token != "" {
		return g, true
	}
	return GatewayConfig{}, false
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	return c.Gateway("telegram")
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	return c.Gateway("discord")
}

// ModelFor returns the model name configured for role, falling back to the
// provider model.
func (c *Config) ModelFor(role agent.Op, provider ProviderConfig) string {
	var m string
	switch role {
	case agent.OpPlan:
		m = c.Models.Planner
	case agent.OpCode:
		m = c.Models.Coder
	case agent.OpSummary, agent.OpDashboard:
		m = c.Models.Summary
	case agent.OpChat:
		m = c.Models.Chatbot
	}
	if m == "" {
		return provider.Model
	}
	return m
}
