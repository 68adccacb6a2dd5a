package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/rahul/pipelineai/internal/agent"
)

// ErrInvalidFormat is returned for any session file that cannot be decoded.
var ErrInvalidFormat = errors.New("invalid session file format")

// File is the on-disk shape of a saved session.
type File struct {
	Query          string               `json:"query"`
	Logs           []agent.LogMessage   `json:"logs"`
	Files          []agent.FileData     `json:"files"`
	Plan           []agent.PlanStep     `json:"plan"`
	Artifacts      []agent.Artifact     `json:"artifacts"`
	Mode           agent.Mode           `json:"mode"`
	PipelineConfig agent.PipelineConfig `json:"pipelineConfig"`
	Timestamp      time.Time            `json:"timestamp"`
}

// partialFile records which fields a loaded file actually carries.
type partialFile struct {
	Query          string                `json:"query"`
	Logs           json.RawMessage       `json:"logs"`
	Files          *[]agent.FileData     `json:"files"`
	Plan           *[]agent.PlanStep     `json:"plan"`
	Artifacts      *[]agent.Artifact     `json:"artifacts"`
	Mode           agent.Mode            `json:"mode"`
	PipelineConfig *agent.PipelineConfig `json:"pipelineConfig"`
}

// DefaultFileName is the name a session saved at t is offered under.
func DefaultFileName(t time.Time) string {
	return fmt.Sprintf("agent_session_%s.json", t.UTC().Format("2006-01-02"))
}

// Encode serializes st verbatim, stamped with savedAt.
func Encode(st State, savedAt time.Time) ([]byte, error) {
	f := File{
		Query:          st.Query,
		Logs:           orEmpty(st.Logs),
		Files:          orEmpty(st.Files),
		Plan:           orEmpty(st.Plan),
		Artifacts:      orEmpty(st.Artifacts),
		Mode:           st.Mode,
		PipelineConfig: st.PipelineConfig,
		Timestamp:      savedAt.UTC(),
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode session")
	}
	return data, nil
}

// Save writes the current state to w and logs the save.
func (s *Store) Save(w io.Writer) error {
	data, err := Encode(s.Snapshot(), s.now())
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "write session")
	}
	s.AppendLog(agent.RoleSystem, "Session saved successfully.", agent.LogSuccess)
	return nil
}

// Load replaces every piece of state present in the file. Fields missing from
// the file keep their current value. Any decode failure is reported as
// ErrInvalidFormat and leaves the state untouched.
func (s *Store) Load(r io.Reader) error {
	f, logs, err := decode(r)
	if err != nil {
		s.AppendLog(agent.RoleSystem, "Failed to load session. Invalid file format.", agent.LogError)
		return errors.Wrap(ErrInvalidFormat, err.Error())
	}

	s.mu.Lock()
	if f.Query != "" {
		s.state.Query = f.Query
	}
	if f.Files != nil {
		s.state.Files = *f.Files
	}
	if f.Plan != nil {
		s.state.Plan = *f.Plan
	}
	if f.Artifacts != nil {
		s.state.Artifacts = *f.Artifacts
	}
	if f.Mode != "" {
		s.state.Mode = f.Mode
	}
	if f.PipelineConfig != nil {
		s.state.PipelineConfig = *f.PipelineConfig
	}
	if logs != nil {
		s.state.Logs = logs
	}
	st := s.state
	s.mu.Unlock()

	if a, ok := st.Artifact(agent.ArtifactDashboardMetrics); ok {
		var m agent.DashboardMetrics
		if err := json.Unmarshal([]byte(a.Content), &m); err != nil {
			log.Printf("Failed to restore dashboard metrics from artifact: %v", err)
		} else {
			s.SetDashboard(m)
		}
	}

	s.AppendLog(agent.RoleSystem, "Session loaded successfully.", agent.LogSuccess)
	return nil
}

// decode parses a session file. A logs value that is not an array is
// ignored; malformed log entries fail the whole file.
func decode(r io.Reader) (*partialFile, []agent.LogMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	var f *partialFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, err
	}
	if f == nil {
		return nil, nil, errors.New("empty document")
	}
	raw := bytes.TrimSpace(f.Logs)
	if len(raw) == 0 || raw[0] != '[' {
		return f, nil, nil
	}
	logs := []agent.LogMessage{}
	if err := json.Unmarshal(raw, &logs); err != nil {
		return nil, nil, err
	}
	return f, logs, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
