package agent

import (
	"fmt"
	"time"
)

// Role identifies which agent produced a log entry.
type Role string

const (
	RolePlanner  Role = "Planner"
	RoleCoder    Role = "Coder"
	RoleReviewer Role = "Reviewer"
	RoleSummary  Role = "Summary"
	RoleUser     Role = "User"
	RoleSystem   Role = "System"
	// RoleChatbot only appears in agent status, never in session logs.
	RoleChatbot Role = "Chatbot"
)

// Status is the coarse state of the active agent.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusThinking  Status = "THINKING"
	StatusWorking   Status = "WORKING"
	StatusWaiting   Status = "WAITING"
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)

// StepStatus tracks a plan step through execution.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepActive    StepStatus = "active"
	StepCompleted StepStatus = "completed"
	// StepFailed is part of the persisted format but no execution path sets it.
	StepFailed StepStatus = "failed"
)

// PlanStep is a single entry of the analysis plan.
type PlanStep struct {
	ID          int        `json:"id"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	Code        string     `json:"code,omitempty"`
	Output      string     `json:"output,omitempty"`
}

// LogType classifies a log entry for rendering.
type LogType string

const (
	LogInfo    LogType = "info"
	LogCode    LogType = "code"
	LogSuccess LogType = "success"
	LogError   LogType = "error"
	LogPlan    LogType = "plan"
)

// Feedback is the user's rating of a log entry.
type Feedback string

const (
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)

// LogMessage is one entry of the append-only session log.
type LogMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Type      LogType   `json:"type"`
	Feedback  *Feedback `json:"feedback"`
}

// ArtifactType is the rendering kind of an artifact.
type ArtifactType string

const (
	ArtifactCode     ArtifactType = "code"
	ArtifactMarkdown ArtifactType = "markdown"
	ArtifactImage    ArtifactType = "image"
)

// Well-known artifact ids.
const (
	ArtifactFullCode         = "full-code"
	ArtifactFinalReport      = "final-report"
	ArtifactDashboardMetrics = "dashboard-metrics"
	ArtifactTemplate         = "template-pipeline"
)

// StepArtifactID returns the artifact id holding the code of one step.
func StepArtifactID(stepID int) string {
	return fmt.Sprintf("step-%d", stepID)
}

// Artifact is a named, downloadable output of a session.
type Artifact struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Type     ArtifactType `json:"type"`
	Content  string       `json:"content"`
	Language string       `json:"language,omitempty"`
}

// FileData describes an uploaded file. The content is never read.
type FileData struct {
	Name string `json:"name"`
	Size string `json:"size"`
	Type string `json:"type"`
}

// Mode selects how a session is run.
type Mode string

const (
	ModeSimple       Mode = "simple"
	ModeOrchestrated Mode = "orchestrated"
)

// DriftStatus is the dashboard's overall drift verdict.
type DriftStatus string

const (
	DriftNormal   DriftStatus = "Normal"
	DriftWarning  DriftStatus = "Warning"
	DriftCritical DriftStatus = "Critical"
)

// Batch is one row of the dashboard's recent batch table.
type Batch struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Version    string `json:"version"`
	Quality    string `json:"quality"`
	Drift      string `json:"drift"`
	DriftLevel string `json:"driftLevel"`
}

// DashboardMetrics is a flat snapshot pushed to the dashboard in one piece.
type DashboardMetrics struct {
	Accuracy         string      `json:"accuracy"`
	AccuracyChange   string      `json:"accuracyChange"`
	F1Score          string      `json:"f1Score"`
	DriftScore       string      `json:"driftScore"`
	DriftStatus      DriftStatus `json:"driftStatus"`
	AvgLatency       string      `json:"avgLatency"`
	ModelStatus      string      `json:"modelStatus"`
	DriftChartLabels []string    `json:"driftChartLabels"`
	DriftChartValues []float64   `json:"driftChartValues"`
	RecentBatches    []Batch     `json:"recentBatches"`
}

// ContextLine flattens the metrics for the summary prompt.
func (m DashboardMetrics) ContextLine() string {
	return fmt.Sprintf("Accuracy: %s, F1: %s, Drift: %s, Status: %s", m.Accuracy, m.F1Score, m.DriftScore, m.ModelStatus)
}

// PipelineConfig holds the user-tunable thresholds that are passed into prompts as text.
type PipelineConfig struct {
	DriftThreshold        float64 `json:"driftThreshold" yaml:"driftThreshold"`
	AccuracyThreshold     float64 `json:"accuracyThreshold" yaml:"accuracyThreshold"`
	MaxRetrainingAttempts int     `json:"maxRetrainingAttempts" yaml:"maxRetrainingAttempts"`
}

// DefaultPipelineConfig returns the settings a new session starts with.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DriftThreshold:        0.05,
		AccuracyThreshold:     0.05,
		MaxRetrainingAttempts: 3,
	}
}

// ContextHeader renders the configuration block that opens every execution context.
func (c PipelineConfig) ContextHeader() string {
	return fmt.Sprintf("PIPELINE CONFIGURATION SETTINGS:\n- Drift Threshold (P-Value): %v\n- Max Accuracy Drop Threshold: %v\n- Max Retraining Attempts: %d\n\n",
		c.DriftThreshold, c.AccuracyThreshold, c.MaxRetrainingAttempts)
}
