package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/session"
	"github.com/rahul/pipelineai/internal/store"
)

// Digest renders a finished run as one chat message: plan, metrics and report.
func Digest(st session.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\nPlan:\n", st.Query)
	for _, step := range st.Plan {
		fmt.Fprintf(&b, "%d. %s [%s]\n", step.ID, step.Description, step.Status)
	}
	if st.Dashboard != nil {
		m := st.Dashboard
		fmt.Fprintf(&b, "\nAccuracy: %s | F1: %s | Drift: %s (%s)\n", m.Accuracy, m.F1Score, m.DriftScore, m.DriftStatus)
	}
	if report, ok := st.Artifact(agent.ArtifactFinalReport); ok {
		b.WriteString("\n")
		b.WriteString(report.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Record turns a session into a row for the sessions table.
func Record(id string, st session.State, now time.Time) (store.SessionRecord, error) {
	snapshot, err := session.Encode(st, now)
	if err != nil {
		return store.SessionRecord{}, err
	}
	status := "pending"
	if len(st.Plan) > 0 {
		status = "completed"
		for _, step := range st.Plan {
			if step.Status != agent.StepCompleted {
				status = "running"
				break
			}
		}
	}
	return store.SessionRecord{
		ID:        id,
		Query:     st.Query,
		Mode:      string(st.Mode),
		Status:    status,
		CreatedAt: now,
		Snapshot:  snapshot,
	}, nil
}
