package agent

import (
	"context"
	"fmt"
)

// Op names a generation operation.
type Op string

const (
	OpPlan      Op = "plan"
	OpCode      Op = "code"
	OpSummary   Op = "summary"
	OpDashboard Op = "dashboard"
	OpChat      Op = "chat"
)

// GenerationError reports a failed call to the generation service.
type GenerationError struct {
	Op  Op
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause see through the wrapper.
func (e *GenerationError) Cause() error { return e.Err }

// CodeResult is the outcome of a code generation call.
type CodeResult struct {
	Code        string
	Explanation string
}

// ChatTurn is one message of a chat history.
type ChatTurn struct {
	Role    string // "user" or "model"
	Content string
}

// Generator is the remote text-generation boundary. Every operation either
// returns its value or a *GenerationError; callers choose the fallback.
type Generator interface {
	Plan(ctx context.Context, query string, fileNames string) ([]string, error)
	Code(ctx context.Context, step string, stepContext string) (CodeResult, error)
	Summary(ctx context.Context, executionLog string, metricsContext string) (string, error)
	DashboardMetrics(ctx context.Context, analysisContext string) (DashboardMetrics, error)
	Chat(ctx context.Context, history []ChatTurn, message string) (string, error)
}

// Fallback values substituted by callers when a generation call fails.
var (
	FallbackPlan = []string{"Error generating plan. Please try again."}
	FallbackCode = CodeResult{
		Code:        "# Error generating code",
		Explanation: "An error occurred while contacting the coding agent.",
	}
	FallbackSummary = "Error generating summary."
	FallbackChat    = "I'm having trouble connecting to the network right now."
)

// FallbackMetrics returns the placeholder dashboard shown when metrics generation fails.
func FallbackMetrics() DashboardMetrics {
	return DashboardMetrics{
		Accuracy:         "N/A",
		AccuracyChange:   "0%",
		F1Score:          "N/A",
		DriftScore:       "0.00",
		DriftStatus:      DriftNormal,
		AvgLatency:       "0ms",
		ModelStatus:      "System Operational",
		DriftChartLabels: []string{},
		DriftChartValues: []float64{},
		RecentBatches:    []Batch{},
	}
}
