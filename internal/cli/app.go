package cli

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/governance"
	"github.com/rahul/pipelineai/internal/observability"
	"github.com/rahul/pipelineai/internal/session"
	"github.com/rahul/pipelineai/internal/store"
	"github.com/rahul/pipelineai/internal/workflow"
	"github.com/rahul/pipelineai/internal/workspace"
	"github.com/rahul/pipelineai/pkg/config"
)

// app holds everything the commands share, built from the config.
type app struct {
	cfg       *config.Config
	db        *store.Store
	workspace *workspace.Workspace
	prompts   *agent.PromptManager
	logger    *observability.Logger
	models    agent.Models
	generator agent.Generator
	policy    *governance.DefaultPolicyEngine
}

// newApp wires the shared services. withModels is false for commands that
// never call the generation service.
func newApp(cfg *config.Config, withModels bool) (*app, error) {
	db, err := store.Open(cfg.Memory.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	ws, err := workspace.New(cfg.App.Workspace)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening workspace: %w", err)
	}
	policy, err := governance.NewPolicyEngine(cfg.Governance)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("governance rules: %w", err)
	}

	a := &app{
		cfg:       cfg,
		db:        db,
		workspace: ws,
		prompts:   agent.NewPromptManager(cfg.App.Prompts),
		logger:    observability.NewLogger(cfg.App.Logs),
		policy:    policy,
	}
	if withModels {
		if a.models, err = buildModels(cfg); err != nil {
			db.Close()
			return nil, err
		}
		a.generator = agent.NewLLMGenerator(a.models, a.prompts, a.logger)
	}
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) pacing() workflow.Pacing {
	return workflow.Pacing{
		Execution: a.cfg.Workflow.ExecutionDelay(),
		Review:    a.cfg.Workflow.ReviewDelay(),
	}
}

// buildModels creates one chat model per role from the first enabled
// provider. Roles sharing a model name share the client.
func buildModels(cfg *config.Config) (agent.Models, error) {
	name, p := cfg.GetDefaultProvider()
	if name == "" {
		return agent.Models{}, fmt.Errorf("no enabled provider found in config")
	}

	clients := map[string]llms.Model{}
	model := func(op agent.Op) (llms.Model, error) {
		modelName := cfg.ModelFor(op, p)
		if m, ok := clients[modelName]; ok {
			return m, nil
		}
		m, err := newProviderModel(name, p, modelName)
		if err != nil {
			return nil, err
		}
		clients[modelName] = m
		return m, nil
	}

	var (
		ms  agent.Models
		err error
	)
	if ms.Default, err = model(""); err != nil {
		return agent.Models{}, err
	}
	if ms.Planner, err = model(agent.OpPlan); err != nil {
		return agent.Models{}, err
	}
	if ms.Coder, err = model(agent.OpCode); err != nil {
		return agent.Models{}, err
	}
	if ms.Summary, err = model(agent.OpSummary); err != nil {
		return agent.Models{}, err
	}
	if ms.Chatbot, err = model(agent.OpChat); err != nil {
		return agent.Models{}, err
	}
	log.Printf("Using provider %s", name)
	return ms, nil
}

func newProviderModel(provider string, p config.ProviderConfig, modelName string) (llms.Model, error) {
	switch provider {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(p.APIKey),
			openai.WithModel(modelName),
		}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("provider %s not supported", provider)
	}
}

// loadSession restores a session from a file path or a saved session id.
func (a *app) loadSession(ref string) (*session.Store, error) {
	st := session.NewStore()
	if f, err := os.Open(ref); err == nil {
		defer f.Close()
		if err := st.Load(f); err != nil {
			return nil, err
		}
		return st, nil
	}

	rec, err := a.db.GetSession(ref)
	if err != nil {
		return nil, err
	}
	if err := st.Load(bytes.NewReader(rec.Snapshot)); err != nil {
		return nil, err
	}
	return st, nil
}
