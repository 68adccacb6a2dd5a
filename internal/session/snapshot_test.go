package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/pipelineai/internal/agent"
)

func populatedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.SetQuery("Detect drift in sales.csv")
	s.AddFiles(Describe("sales.csv", 4096))
	s.SetPlan([]string{"Load data", "Run KS test"})
	s.UpdateStep(1, agent.StepCompleted, "df = load()")
	s.UpsertArtifacts(
		agent.Artifact{ID: "step-1", Title: "Step 1 Code", Type: agent.ArtifactCode, Content: "df = load()", Language: "python"},
		agent.Artifact{ID: agent.ArtifactFinalReport, Title: "Final Report", Type: agent.ArtifactMarkdown, Content: "# Report"},
	)
	fb := agent.FeedbackNegative
	msg := s.AppendLog(agent.RoleCoder, "code", agent.LogCode)
	require.NoError(t, s.SetFeedback(msg.ID, &fb))
	return s
}

func fields(t *testing.T, data []byte) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := populatedStore(t)
	var first bytes.Buffer
	require.NoError(t, src.Save(&first))

	dst := NewStore()
	require.NoError(t, dst.Load(bytes.NewReader(first.Bytes())))

	var second bytes.Buffer
	require.NoError(t, dst.Save(&second))

	a, b := fields(t, first.Bytes()), fields(t, second.Bytes())
	for _, key := range []string{"query", "plan", "artifacts", "mode", "files", "pipelineConfig"} {
		assert.Equal(t, string(a[key]), string(b[key]), key)
	}

	srcLogs := populatedLogs(t, first.Bytes())
	dstLogs := dst.Snapshot().Logs
	// The loaded store appends its own "loaded" and "saved" entries after the restored ones.
	require.GreaterOrEqual(t, len(dstLogs), len(srcLogs))
	for i, l := range srcLogs {
		assert.True(t, l.Timestamp.Equal(dstLogs[i].Timestamp), "timestamp %d", i)
		assert.Equal(t, l.ID, dstLogs[i].ID)
		assert.Equal(t, l.Feedback, dstLogs[i].Feedback)
	}
}

func populatedLogs(t *testing.T, data []byte) []agent.LogMessage {
	t.Helper()
	var f File
	require.NoError(t, json.Unmarshal(data, &f))
	return f.Logs
}

func TestSaveAppendsLogAfterSerializing(t *testing.T) {
	s := NewStore()
	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	var f File
	require.NoError(t, json.Unmarshal(buf.Bytes(), &f))
	assert.Empty(t, f.Logs)
	assert.NotNil(t, f.Plan)
	assert.False(t, f.Timestamp.IsZero())

	logs := s.Snapshot().Logs
	require.Len(t, logs, 1)
	assert.Equal(t, "Session saved successfully.", logs[0].Content)
}

func TestLoadRehydratesStringTimestamps(t *testing.T) {
	doc := `{"query":"q","logs":[{"id":"a1","role":"User","content":"q","timestamp":"2024-03-01T10:15:30.000Z","type":"info","feedback":null}]}`
	s := NewStore()
	require.NoError(t, s.Load(strings.NewReader(doc)))

	logs := s.Snapshot().Logs
	require.Len(t, logs, 2)
	want := time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)
	assert.True(t, logs[0].Timestamp.Equal(want))
	assert.Equal(t, "Session loaded successfully.", logs[1].Content)
}

func TestLoadOnlyOverwritesPresentFields(t *testing.T) {
	s := NewStore()
	s.SetQuery("keep me")
	s.SetPlan([]string{"old step"})
	cfg := agent.PipelineConfig{DriftThreshold: 0.1, AccuracyThreshold: 0.02, MaxRetrainingAttempts: 5}
	s.SetConfig(cfg)

	require.NoError(t, s.Load(strings.NewReader(`{"artifacts":[{"id":"x","title":"X","type":"code","content":"1"}]}`)))

	st := s.Snapshot()
	assert.Equal(t, "keep me", st.Query)
	assert.Equal(t, "old step", st.Plan[0].Description)
	assert.Equal(t, cfg, st.PipelineConfig)
	require.Len(t, st.Artifacts, 1)
	assert.Equal(t, "x", st.Artifacts[0].ID)
}

func TestLoadRestoresDashboardFromArtifact(t *testing.T) {
	metrics := agent.DashboardMetrics{Accuracy: "91%", DriftStatus: agent.DriftCritical}
	raw, err := json.Marshal(metrics)
	require.NoError(t, err)
	doc, err := json.Marshal(map[string]any{
		"artifacts": []agent.Artifact{{ID: agent.ArtifactDashboardMetrics, Content: string(raw), Language: "json", Type: agent.ArtifactCode}},
	})
	require.NoError(t, err)

	s := NewStore()
	require.NoError(t, s.Load(bytes.NewReader(doc)))

	d, ok := s.Dashboard()
	require.True(t, ok)
	assert.Equal(t, "91%", d.Accuracy)
	assert.Equal(t, agent.DriftCritical, d.DriftStatus)
}

func TestLoadBrokenDashboardArtifactStillLoads(t *testing.T) {
	s := NewStore()
	doc := `{"artifacts":[{"id":"dashboard-metrics","content":"not json"}]}`
	require.NoError(t, s.Load(strings.NewReader(doc)))

	_, ok := s.Dashboard()
	assert.False(t, ok)
}

func TestLoadSkipsNonArrayLogs(t *testing.T) {
	s := NewStore()
	s.AppendLog(agent.RoleUser, "kept", agent.LogInfo)

	require.NoError(t, s.Load(strings.NewReader(`{"query":"restored","plan":[],"logs":"oops"}`)))

	st := s.Snapshot()
	assert.Equal(t, "restored", st.Query)
	require.Len(t, st.Logs, 2)
	assert.Equal(t, "kept", st.Logs[0].Content)
	assert.Equal(t, "Session loaded successfully.", st.Logs[1].Content)
}

func TestLoadInvalidFormat(t *testing.T) {
	tcs := map[string]string{
		"not json":      "hello",
		"null":          "null",
		"array":         "[1,2]",
		"wrong shape":   `{"plan":"not a list"}`,
		"bad timestamp": `{"logs":[{"timestamp":"yesterday"}]}`,
	}

	for name, doc := range tcs {
		t.Run(name, func(t *testing.T) {
			s := NewStore()
			s.SetQuery("untouched")

			err := s.Load(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFormat))

			st := s.Snapshot()
			assert.Equal(t, "untouched", st.Query)
			require.Len(t, st.Logs, 1)
			assert.Equal(t, "Failed to load session. Invalid file format.", st.Logs[0].Content)
			assert.Equal(t, agent.LogError, st.Logs[0].Type)
		})
	}
}

func TestDefaultFileName(t *testing.T) {
	ts := time.Date(2025, 7, 4, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "agent_session_2025-07-04.json", DefaultFileName(ts))
}
