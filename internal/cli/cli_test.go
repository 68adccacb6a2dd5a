package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/export"
	"github.com/rahul/pipelineai/internal/session"
	"github.com/rahul/pipelineai/internal/store"
	"github.com/rahul/pipelineai/internal/workflow"
)

// testConfig writes a config that keeps every path inside a temp dir.
func testConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	body := "app:\n  workspace: " + filepath.Join(dir, "ws") + "\n  logs: " + filepath.Join(dir, "logs") +
		"\nmemory:\n  path: " + filepath.Join(dir, "db", "test.db") + "\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func seedSession(t *testing.T, dbPath string) string {
	t.Helper()
	st := session.NewStore()
	st.SetQuery("Check churn drift")
	st.SetPlan([]string{"Load data"})
	st.UpdateStep(1, agent.StepCompleted, "df = load()")
	st.UpsertArtifacts(
		agent.Artifact{ID: agent.ArtifactFullCode, Title: "Complete Pipeline Code", Type: agent.ArtifactCode, Content: workflow.StepBlock(1, "Load data", "df = load()"), Language: "python"},
		agent.Artifact{ID: agent.ArtifactFinalReport, Title: "Final Report", Type: agent.ArtifactMarkdown, Content: "## Findings"},
	)
	rec, err := workflow.Record(st.ID(), st.Snapshot(), time.Now())
	require.NoError(t, err)

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.SaveSession(rec)
	require.NoError(t, err)
	return rec.ID
}

func TestSessionCommands(t *testing.T) {
	cfgPath, dir := testConfig(t)

	out, err := execute(t, "session", "list", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions saved yet")

	id := seedSession(t, filepath.Join(dir, "db", "test.db"))

	out, err = execute(t, "session", "list", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "│")

	out, err = execute(t, "session", "show", id, "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Load data [completed]")
	assert.Contains(t, out, "## Findings")

	out, err = execute(t, "export", "notebook", "--session", id, "-c", cfgPath)
	require.NoError(t, err)
	nbPath := strings.TrimSpace(out)
	assert.Equal(t, export.NotebookFileName, filepath.Base(nbPath))
	_, err = os.Stat(nbPath)
	assert.NoError(t, err)

	_, err = execute(t, "session", "delete", id, "-c", cfgPath)
	require.NoError(t, err)
	_, err = execute(t, "session", "delete", id, "-c", cfgPath)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestExportTemplate(t *testing.T) {
	cfgPath, dir := testConfig(t)

	out, err := execute(t, "export", "template", "-c", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ws", export.TemplateFileName), strings.TrimSpace(out))
}

func TestPipelineFlags(t *testing.T) {
	t.Cleanup(func() {
		for _, f := range []string{"drift-threshold", "accuracy-threshold", "max-retraining"} {
			runCmd.Flags().Lookup(f).Changed = false
		}
	})
	base := agent.DefaultPipelineConfig()

	got, err := pipelineFlags(runCmd, base)
	require.NoError(t, err)
	assert.Equal(t, base, got)

	require.NoError(t, runCmd.Flags().Set("drift-threshold", "0.1"))
	require.NoError(t, runCmd.Flags().Set("max-retraining", "5"))
	got, err = pipelineFlags(runCmd, base)
	require.NoError(t, err)
	assert.Equal(t, agent.PipelineConfig{DriftThreshold: 0.1, AccuracyThreshold: 0.05, MaxRetrainingAttempts: 5}, got)

	require.NoError(t, runCmd.Flags().Set("accuracy-threshold", "0.5"))
	_, err = pipelineFlags(runCmd, base)
	assert.Error(t, err)
}

func TestDescribeFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0644))

	files, err := describeFiles([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []agent.FileData{{Name: "sales.csv", Size: "2.0 KB", Type: "CSV"}}, files)

	_, err = describeFiles([]string{filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
