package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/session"
	"github.com/rahul/pipelineai/internal/store"
	"github.com/rahul/pipelineai/internal/workflow"
)

type stubGenerator struct{}

func (stubGenerator) Plan(ctx context.Context, query, fileNames string) ([]string, error) {
	return []string{"Load data", "Check drift"}, nil
}

func (stubGenerator) Code(ctx context.Context, step, stepContext string) (agent.CodeResult, error) {
	return agent.CodeResult{Code: "pass", Explanation: step}, nil
}

func (stubGenerator) Summary(ctx context.Context, executionLog, metricsContext string) (string, error) {
	return "All good.", nil
}

func (stubGenerator) DashboardMetrics(ctx context.Context, analysisContext string) (agent.DashboardMetrics, error) {
	return agent.DashboardMetrics{Accuracy: "90%", F1Score: "0.8", DriftScore: "0.01", DriftStatus: agent.DriftNormal}, nil
}

func (stubGenerator) Chat(ctx context.Context, history []agent.ChatTurn, message string) (string, error) {
	return "", errors.New("not used")
}

type memTasks struct {
	tasks   []store.Task
	updated []int64
	deleted []int64
	pollErr error
}

func (m *memTasks) GetPendingTasks() ([]store.Task, error) { return m.tasks, m.pollErr }
func (m *memTasks) UpdateTaskLastRun(id int64) error {
	m.updated = append(m.updated, id)
	return nil
}
func (m *memTasks) DeleteTask(id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type memArchive struct {
	records []store.SessionRecord
}

func (m *memArchive) SaveSession(rec store.SessionRecord) (store.SessionRecord, error) {
	m.records = append(m.records, rec)
	return rec, nil
}

type sentMessage struct{ chatID, text string }

type memMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *memMessenger) Send(chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID, text})
	return nil
}

func newTestScheduler(tasks *memTasks) (*Scheduler, *memArchive, *memMessenger) {
	archive := &memArchive{}
	msgr := &memMessenger{}
	s := NewScheduler(stubGenerator{}, tasks, archive, msgr, nil)
	s.Pacing = workflow.Pacing{}
	return s, archive, msgr
}

func TestPollAndExecute(t *testing.T) {
	tasks := &memTasks{tasks: []store.Task{
		{ID: 1, ChatID: "42", Goal: "Watch churn drift", IntervalSeconds: 3600},
		{ID: 2, ChatID: "7", Goal: "One-off audit", IntervalSeconds: 0},
	}}
	s, archive, msgr := newTestScheduler(tasks)

	s.pollAndExecute(context.Background())

	assert.Equal(t, []int64{1, 2}, tasks.updated)
	assert.Equal(t, []int64{2}, tasks.deleted)

	require.Len(t, msgr.sent, 2)
	assert.Equal(t, "42", msgr.sent[0].chatID)
	assert.True(t, strings.HasPrefix(msgr.sent[0].text, "⏰ *Scheduled Analysis*"))
	assert.Contains(t, msgr.sent[0].text, "Goal: Watch churn drift")
	assert.Contains(t, msgr.sent[0].text, "All good.")

	require.Len(t, archive.records, 2)
	assert.Equal(t, "completed", archive.records[0].Status)
	assert.Equal(t, "One-off audit", archive.records[1].Query)

	var restored session.File
	require.NoError(t, json.Unmarshal(archive.records[0].Snapshot, &restored))
	assert.Len(t, restored.Plan, 2)
}

func TestPollAndExecute_PollError(t *testing.T) {
	tasks := &memTasks{pollErr: errors.New("db closed")}
	s, archive, msgr := newTestScheduler(tasks)

	s.pollAndExecute(context.Background())

	assert.Empty(t, tasks.updated)
	assert.Empty(t, archive.records)
	assert.Empty(t, msgr.sent)
}

func TestPollAndExecute_StopsWhenCancelled(t *testing.T) {
	tasks := &memTasks{tasks: []store.Task{{ID: 1, ChatID: "1", Goal: "g", IntervalSeconds: 60}}}
	s, _, msgr := newTestScheduler(tasks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.pollAndExecute(ctx)

	assert.Empty(t, tasks.updated)
	assert.Empty(t, msgr.sent)
}

func TestStartReturnsOnCancel(t *testing.T) {
	s, _, _ := newTestScheduler(&memTasks{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()
	require.NoError(t, <-done)
}
