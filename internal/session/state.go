// Package session holds the state of one analysis session and its
// save/load file format.
package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rahul/pipelineai/internal/agent"
)

// ErrUnknownLog is returned when feedback targets a log id that does not exist.
var ErrUnknownLog = errors.New("unknown log entry")

// State is everything a session holds. Every field is replaced wholesale;
// nothing is merged.
type State struct {
	Query            string
	Logs             []agent.LogMessage
	Files            []agent.FileData
	Plan             []agent.PlanStep
	Artifacts        []agent.Artifact
	Mode             agent.Mode
	PipelineConfig   agent.PipelineConfig
	Dashboard        *agent.DashboardMetrics
	DashboardUpdated bool
}

// Artifact returns the artifact with id, if present.
func (s State) Artifact(id string) (agent.Artifact, bool) {
	for _, a := range s.Artifacts {
		if a.ID == id {
			return a, true
		}
	}
	return agent.Artifact{}, false
}

// Listener is notified of every appended log entry.
type Listener func(agent.LogMessage)

// Store guards a State and exposes the transitions the orchestrator and the
// user surfaces are allowed to make.
type Store struct {
	mu        sync.RWMutex
	id        string
	state     State
	listeners []Listener
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		id: uuid.NewString(),
		state: State{
			Mode:           agent.ModeOrchestrated,
			PipelineConfig: agent.DefaultPipelineConfig(),
		},
		now: time.Now,
	}
}

// ID identifies the store in structured logs.
func (s *Store) ID() string { return s.id }

// Subscribe registers fn for every future log entry.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// Replace swaps the whole state.
func (s *Store) Replace(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = cloneState(st)
}

// ResetRun clears the plan, artifacts and dashboard flag before a new run.
// Logs, files, query and settings survive.
func (s *Store) ResetRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Plan = nil
	s.state.Artifacts = nil
	s.state.DashboardUpdated = false
}

// AppendLog adds an entry to the log and returns it.
func (s *Store) AppendLog(role agent.Role, content string, typ agent.LogType) agent.LogMessage {
	msg := agent.LogMessage{
		ID:        uuid.NewString()[:8],
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
		Type:      typ,
	}

	s.mu.Lock()
	s.state.Logs = append(s.state.Logs, msg)
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
	return msg
}

// SetFeedback rates a log entry. A nil feedback clears the rating.
func (s *Store) SetFeedback(logID string, fb *agent.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Logs {
		if s.state.Logs[i].ID == logID {
			if fb == nil {
				s.state.Logs[i].Feedback = nil
			} else {
				v := *fb
				s.state.Logs[i].Feedback = &v
			}
			return nil
		}
	}
	return errors.Wrap(ErrUnknownLog, logID)
}

func (s *Store) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Query = q
}

func (s *Store) SetMode(m agent.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = m
}

func (s *Store) SetConfig(c agent.PipelineConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PipelineConfig = c
}

// SetPlan installs a fresh plan with every step pending.
func (s *Store) SetPlan(descriptions []string) []agent.PlanStep {
	steps := make([]agent.PlanStep, len(descriptions))
	for i, d := range descriptions {
		steps[i] = agent.PlanStep{ID: i + 1, Description: d, Status: agent.StepPending}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Plan = steps
	return append([]agent.PlanStep(nil), steps...)
}

// UpdateStep changes the status of a step and, when non-empty, its code.
func (s *Store) UpdateStep(id int, status agent.StepStatus, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Plan {
		if s.state.Plan[i].ID == id {
			s.state.Plan[i].Status = status
			if code != "" {
				s.state.Plan[i].Code = code
			}
			return
		}
	}
}

// UpsertArtifacts writes each artifact. An earlier artifact with the same id
// is dropped and the new one goes to the end, so the latest write is also the
// newest entry.
func (s *Store) UpsertArtifacts(artifacts ...agent.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range artifacts {
		kept := s.state.Artifacts[:0]
		for _, existing := range s.state.Artifacts {
			if existing.ID != a.ID {
				kept = append(kept, existing)
			}
		}
		s.state.Artifacts = append(kept, a)
	}
}

// SetDashboard replaces the dashboard snapshot.
func (s *Store) SetDashboard(m agent.DashboardMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Dashboard = &m
	s.state.DashboardUpdated = true
}

// Dashboard returns the current dashboard snapshot.
func (s *Store) Dashboard() (agent.DashboardMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Dashboard == nil {
		return agent.DashboardMetrics{}, false
	}
	return *s.state.Dashboard, true
}

var modelExtensions = map[string]bool{
	"PKL": true, "JOBLIB": true, "MODEL": true, "H5": true, "PTH": true, "KERAS": true,
}

// Describe builds the descriptor of an uploaded file from its name and size.
func Describe(name string, size int64) agent.FileData {
	typ := strings.ToUpper(strings.TrimPrefix(filepath.Ext(name), "."))
	if typ == "" {
		typ = "FILE"
	}
	return agent.FileData{
		Name: name,
		Size: fmt.Sprintf("%.1f KB", float64(size)/1024),
		Type: typ,
	}
}

// AddFiles records uploaded file descriptors, logs the upload and returns the
// ones that look like serialized models.
func (s *Store) AddFiles(files ...agent.FileData) []agent.FileData {
	if len(files) == 0 {
		return nil
	}

	var models []agent.FileData
	for _, f := range files {
		if modelExtensions[f.Type] {
			models = append(models, f)
		}
	}

	s.mu.Lock()
	s.state.Files = append(s.state.Files, files...)
	suggest := len(models) > 0 && strings.TrimSpace(s.state.Query) == ""
	if suggest {
		s.state.Query = fmt.Sprintf("Load the custom model '%s' and evaluate its performance against the pipeline baseline on the dataset.", models[0].Name)
	}
	s.mu.Unlock()

	if len(models) == 0 {
		s.AppendLog(agent.RoleSystem, fmt.Sprintf("Loaded %d file(s).", len(files)), agent.LogInfo)
		return nil
	}
	s.AppendLog(agent.RoleSystem, fmt.Sprintf("Upload Complete: %d file(s).", len(files)), agent.LogInfo)
	for _, m := range models {
		s.AppendLog(agent.RoleSystem, fmt.Sprintf("Custom Model Detected: %s. Ready for inference comparison.", m.Name), agent.LogSuccess)
	}
	return models
}

func cloneState(st State) State {
	out := st
	out.Logs = append([]agent.LogMessage(nil), st.Logs...)
	for i := range out.Logs {
		if fb := out.Logs[i].Feedback; fb != nil {
			v := *fb
			out.Logs[i].Feedback = &v
		}
	}
	out.Files = append([]agent.FileData(nil), st.Files...)
	out.Plan = append([]agent.PlanStep(nil), st.Plan...)
	out.Artifacts = append([]agent.Artifact(nil), st.Artifacts...)
	if st.Dashboard != nil {
		d := cloneMetrics(*st.Dashboard)
		out.Dashboard = &d
	}
	return out
}

func cloneMetrics(m agent.DashboardMetrics) agent.DashboardMetrics {
	if m.DriftChartLabels != nil {
		m.DriftChartLabels = append(make([]string, 0, len(m.DriftChartLabels)), m.DriftChartLabels...)
	}
	if m.DriftChartValues != nil {
		m.DriftChartValues = append(make([]float64, 0, len(m.DriftChartValues)), m.DriftChartValues...)
	}
	if m.RecentBatches != nil {
		m.RecentBatches = append(make([]agent.Batch, 0, len(m.RecentBatches)), m.RecentBatches...)
	}
	return m
}
