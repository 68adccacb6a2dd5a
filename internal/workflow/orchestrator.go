// Package workflow drives one analysis session through its four phases:
// plan, per-step code and review, dashboard metrics and final summary.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/observability"
	"github.com/rahul/pipelineai/internal/session"
)

// ErrAlreadyRunning is returned when Run is called while a run is in flight.
var ErrAlreadyRunning = errors.New("orchestration already running")

const fullCodeHeader = "# Full Analysis Pipeline\n# Configuration applied from User Settings\n\n"

// Dashboard receives the metrics snapshot at the end of every run.
type Dashboard interface {
	Update(m agent.DashboardMetrics)
}

// Pacing holds the simulated execution and review delays of each step.
type Pacing struct {
	Execution time.Duration
	Review    time.Duration
}

// DefaultPacing mirrors the latency users expect from a live run.
var DefaultPacing = Pacing{
	Execution: 800 * time.Millisecond,
	Review:    400 * time.Millisecond,
}

// Request starts one run.
type Request struct {
	Goal   string
	Files  []agent.FileData
	Config agent.PipelineConfig
	// Mode is recorded on the session when set.
	Mode agent.Mode
}

// Orchestrator runs the session workflow against a Generator, recording
// everything it does in a session.Store.
type Orchestrator struct {
	Generator agent.Generator
	Store     *session.Store
	Dashboard Dashboard
	Logger    *observability.Logger
	Pacing    Pacing

	running atomic.Bool
}

func NewOrchestrator(gen agent.Generator, store *session.Store, dashboard Dashboard, logger *observability.Logger) *Orchestrator {
	return &Orchestrator{
		Generator: gen,
		Store:     store,
		Dashboard: dashboard,
		Logger:    logger,
		Pacing:    DefaultPacing,
	}
}

// Running reports whether a run is in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Run executes the whole workflow once. An empty goal is a no-op. Generation
// failures never stop the run: each phase substitutes its fallback and the
// run always ends in the completed state. The only error is ErrAlreadyRunning.
func (o *Orchestrator) Run(ctx context.Context, req Request) error {
	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		return nil
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	sid := o.Store.ID()
	ctx = observability.WithSessionID(ctx, sid)

	o.Store.SetQuery(req.Goal)
	o.Store.SetConfig(req.Config)
	if req.Mode != "" {
		o.Store.SetMode(req.Mode)
	}
	o.Store.ResetRun()
	o.Store.AppendLog(agent.RoleUser, req.Goal, agent.LogInfo)

	// 1. Planning
	o.setStatus(agent.RolePlanner, agent.StatusThinking, "planning")
	o.Logger.LogPhase(sid, "plan")
	o.Store.AppendLog(agent.RoleSystem, "Initializing Planning Phase...", agent.LogInfo)

	names := make([]string, len(req.Files))
	for i, f := range req.Files {
		names[i] = f.Name
	}
	descriptions, err := o.Generator.Plan(ctx, req.Goal, strings.Join(names, ", "))
	if err != nil {
		log.Printf("[Orchestrator] plan failed: %v", err)
		descriptions = append([]string(nil), agent.FallbackPlan...)
	}
	steps := o.Store.SetPlan(descriptions)
	o.Logger.LogPlan(sid, descriptions)
	o.Store.AppendLog(agent.RolePlanner, numbered(descriptions), agent.LogPlan)

	// 2. Execution
	executionContext := req.Config.ContextHeader()
	fullCode := fullCodeHeader

	for _, step := range steps {
		o.Store.UpdateStep(step.ID, agent.StepActive, "")
		o.Logger.LogStep(sid, step.ID, string(agent.StepActive))
		o.Store.AppendLog(agent.RoleSystem, fmt.Sprintf("Starting Step %d: %s", step.ID, step.Description), agent.LogInfo)
		log.Printf("[Orchestrator] Step %d: %s", step.ID, step.Description)

		o.setStatus(agent.RoleCoder, agent.StatusWorking, step.Description)
		res, err := o.Generator.Code(ctx, step.Description, executionContext)
		if err != nil {
			log.Printf("[Orchestrator] step %d code failed: %v", step.ID, err)
			res = agent.FallbackCode
		}
		o.pause(ctx, o.Pacing.Execution)

		o.Store.AppendLog(agent.RoleCoder, res.Explanation, agent.LogInfo)
		o.Store.AppendLog(agent.RoleCoder, res.Code, agent.LogCode)

		// Review is simulated and always passes.
		o.setStatus(agent.RoleReviewer, agent.StatusThinking, step.Description)
		o.pause(ctx, o.Pacing.Review)
		o.Store.AppendLog(agent.RoleReviewer, fmt.Sprintf("Code for Step %d validated. No syntax errors detected. Complexity within limits.", step.ID), agent.LogSuccess)

		executionContext += fmt.Sprintf("\nStep %d Code:\n%s\n", step.ID, res.Code)
		fullCode += StepBlock(step.ID, step.Description, res.Code)

		o.Store.UpsertArtifacts(
			agent.Artifact{
				ID:       agent.StepArtifactID(step.ID),
				Title:    fmt.Sprintf("Step %d Code", step.ID),
				Type:     agent.ArtifactCode,
				Content:  res.Code,
				Language: "python",
			},
			fullCodeArtifact(fullCode),
		)
		o.Logger.LogArtifact(sid, agent.ArtifactFullCode, len(fullCode))

		o.Store.UpdateStep(step.ID, agent.StepCompleted, res.Code)
		o.Logger.LogStep(sid, step.ID, string(agent.StepCompleted))
	}

	// 3. Dashboard metrics
	o.Logger.LogPhase(sid, "metrics")
	o.Store.AppendLog(agent.RoleSystem, "Calculating pipeline metrics and drift analysis for Dashboard...", agent.LogInfo)
	metrics, err := o.Generator.DashboardMetrics(ctx, executionContext)
	if err != nil {
		log.Printf("[Orchestrator] dashboard metrics failed: %v", err)
		metrics = agent.FallbackMetrics()
	}
	o.Store.SetDashboard(metrics)
	if o.Dashboard != nil {
		o.Dashboard.Update(metrics)
	}
	o.Logger.LogMetrics(sid, metrics)
	o.Store.AppendLog(agent.RoleSystem, fmt.Sprintf("Dashboard Metrics Updated:\n• Accuracy: %s\n• F1 Score: %s\n• Drift Score: %s (%s)",
		metrics.Accuracy, metrics.F1Score, metrics.DriftScore, metrics.DriftStatus), agent.LogSuccess)

	// 4. Summary
	o.Logger.LogPhase(sid, "summary")
	o.setStatus(agent.RoleSummary, agent.StatusThinking, "summary")
	summary, err := o.Generator.Summary(ctx, executionContext, metrics.ContextLine())
	if err != nil {
		log.Printf("[Orchestrator] summary failed: %v", err)
		summary = agent.FallbackSummary
	}
	o.Store.AppendLog(agent.RoleSummary, summary, agent.LogSuccess)

	metricsJSON, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		metricsJSON = []byte("{}")
	}
	o.Store.UpsertArtifacts(
		agent.Artifact{
			ID:      agent.ArtifactFinalReport,
			Title:   "Final Report",
			Type:    agent.ArtifactMarkdown,
			Content: summary,
		},
		fullCodeArtifact(fullCode),
		agent.Artifact{
			ID:       agent.ArtifactDashboardMetrics,
			Title:    "Pipeline Metrics (JSON)",
			Type:     agent.ArtifactCode,
			Content:  string(metricsJSON),
			Language: "json",
		},
	)

	o.setStatus("", agent.StatusCompleted, "")
	o.Logger.LogPhase(sid, "completed")
	o.Store.AppendLog(agent.RoleSystem, "Workflow Completed Successfully.", agent.LogSuccess)
	return nil
}

// StepBlock is the section one step contributes to the aggregated pipeline code.
// Its first line is the header that notebook export splits on.
func StepBlock(stepID int, description, code string) string {
	return fmt.Sprintf("# Step %d: %s\n%s\n\n", stepID, description, code)
}

func fullCodeArtifact(code string) agent.Artifact {
	return agent.Artifact{
		ID:       agent.ArtifactFullCode,
		Title:    "Complete Pipeline Code",
		Type:     agent.ArtifactCode,
		Content:  code,
		Language: "python",
	}
}

func numbered(steps []string) string {
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return strings.Join(lines, "\n")
}

func (o *Orchestrator) setStatus(role agent.Role, status agent.Status, task string) {
	observability.SetStatus(string(role), string(status), task)
}

// pause waits d or until ctx is done.
func (o *Orchestrator) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
