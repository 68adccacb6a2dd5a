package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/session"
	"github.com/rahul/pipelineai/internal/workspace"
)

func newExporter(t *testing.T) *Exporter {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	e := NewExporter(session.NewStore(), ws)
	e.Now = func() time.Time { return time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC) }
	return e
}

func lastLog(s *session.Store) string {
	logs := s.Snapshot().Logs
	if len(logs) == 0 {
		return ""
	}
	return logs[len(logs)-1].Content
}

func TestExporterNotebookNeedsFullCode(t *testing.T) {
	e := newExporter(t)

	_, err := e.Notebook()
	assert.True(t, errors.Is(err, ErrNoArtifact))
	assert.Empty(t, e.Store.Snapshot().Logs)
}

func TestExporterNotebook(t *testing.T) {
	e := newExporter(t)
	e.Store.UpsertArtifacts(agent.Artifact{ID: agent.ArtifactFullCode, Title: "Complete Pipeline Code", Content: "# Step 1: a\nx = 1"})

	path, err := e.Notebook()
	require.NoError(t, err)
	assert.Equal(t, NotebookFileName, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var nb map[string]any
	require.NoError(t, json.Unmarshal(data, &nb))
	assert.Len(t, nb["cells"], 3)
	assert.Equal(t, "Downloaded analysis pipeline as Jupyter Notebook (.ipynb)", lastLog(e.Store))
}

func TestExporterArtifact(t *testing.T) {
	e := newExporter(t)
	e.Store.UpsertArtifacts(agent.Artifact{ID: agent.ArtifactFinalReport, Title: "Final Report", Type: agent.ArtifactMarkdown, Content: "# Done"})

	path, err := e.Artifact(agent.ArtifactFinalReport)
	require.NoError(t, err)
	assert.Equal(t, "final_report.md", filepath.Base(path))

	_, err = e.Artifact("step-9")
	assert.True(t, errors.Is(err, ErrNoArtifact))
}

func TestExporterTemplates(t *testing.T) {
	e := newExporter(t)
	e.Store.SetConfig(agent.PipelineConfig{DriftThreshold: 0.2, AccuracyThreshold: 0.1, MaxRetrainingAttempts: 2})

	path, err := e.Template()
	require.NoError(t, err)
	assert.Equal(t, TemplateFileName, filepath.Base(path))
	assert.Equal(t, "Downloaded End-to-End ML Pipeline Template.", lastLog(e.Store))

	a := e.LoadTemplate()
	assert.Contains(t, a.Content, `"max_retries": 2`)
	st := e.Store.Snapshot()
	_, ok := st.Artifact(agent.ArtifactTemplate)
	assert.True(t, ok)
	assert.Contains(t, st.Query, "End-to-End ML Pipeline template")
}

func TestExporterSessionAndPlan(t *testing.T) {
	e := newExporter(t)
	e.Store.SetPlan([]string{"Load", "Train"})

	path, err := e.Session()
	require.NoError(t, err)
	assert.Equal(t, "agent_session_2025-05-06.json", filepath.Base(path))

	path, err = e.Plan()
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"step-1" -> "step-2"`)
}
