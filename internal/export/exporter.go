package export

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/session"
	"github.com/rahul/pipelineai/internal/workspace"
)

// ErrNoArtifact is returned when the requested artifact has not been produced yet.
var ErrNoArtifact = errors.New("artifact not found")

const PlanDOTFileName = "analysis_plan.dot"

// Exporter writes session artifacts into a workspace and records each
// download in the session log.
type Exporter struct {
	Store     *session.Store
	Workspace *workspace.Workspace
	Now       func() time.Time
}

func NewExporter(store *session.Store, ws *workspace.Workspace) *Exporter {
	return &Exporter{Store: store, Workspace: ws, Now: time.Now}
}

// Artifact downloads one artifact under its title-derived file name.
func (e *Exporter) Artifact(id string) (string, error) {
	a, ok := e.Store.Snapshot().Artifact(id)
	if !ok {
		return "", errors.Wrap(ErrNoArtifact, id)
	}
	return e.Workspace.Write(FileName(a), []byte(a.Content))
}

// Notebook exports the aggregated pipeline code as a Jupyter notebook.
func (e *Exporter) Notebook() (string, error) {
	a, ok := e.Store.Snapshot().Artifact(agent.ArtifactFullCode)
	if !ok {
		return "", errors.Wrap(ErrNoArtifact, agent.ArtifactFullCode)
	}
	data, err := NotebookJSON(a.Content)
	if err != nil {
		return "", errors.Wrap(err, "encode notebook")
	}
	path, err := e.Workspace.Write(NotebookFileName, data)
	if err != nil {
		return "", err
	}
	e.Store.AppendLog(agent.RoleSystem, "Downloaded analysis pipeline as Jupyter Notebook (.ipynb)", agent.LogSuccess)
	return path, nil
}

// Template downloads the pipeline template as shipped.
func (e *Exporter) Template() (string, error) {
	path, err := e.Workspace.Write(TemplateFileName, []byte(RawTemplate()))
	if err != nil {
		return "", err
	}
	e.Store.AppendLog(agent.RoleSystem, "Downloaded End-to-End ML Pipeline Template.", agent.LogSuccess)
	return path, nil
}

// LoadTemplate adds the template, configured with the session settings, as an
// artifact and primes the query to ask about adapting it.
func (e *Exporter) LoadTemplate() agent.Artifact {
	a := TemplateArtifact(e.Store.Snapshot().PipelineConfig)
	e.Store.UpsertArtifacts(a)
	e.Store.AppendLog(agent.RoleSystem, `Loaded "End-to-End ML Pipeline" template with active settings.`, agent.LogSuccess)
	e.Store.SetQuery("I have loaded the End-to-End ML Pipeline template. Please explain how I can adapt this for my specific dataset.")
	return a
}

// Plan writes the plan flow as a DOT graph.
func (e *Exporter) Plan() (string, error) {
	var buf bytes.Buffer
	if err := PlanDOT(e.Store.Snapshot().Plan, &buf); err != nil {
		return "", err
	}
	return e.Workspace.Write(PlanDOTFileName, buf.Bytes())
}

// ReportPDF prints the final report, headed by the dashboard metrics, to PDF.
func (e *Exporter) ReportPDF(ctx context.Context) (string, error) {
	st := e.Store.Snapshot()
	a, ok := st.Artifact(agent.ArtifactFinalReport)
	if !ok {
		return "", errors.Wrap(ErrNoArtifact, agent.ArtifactFinalReport)
	}
	html, err := ReportHTML(a.Title, a.Content, st.Dashboard, e.Now())
	if err != nil {
		return "", err
	}
	pdf, err := RenderPDF(ctx, html)
	if err != nil {
		return "", err
	}
	return e.Workspace.Write(ReportPDFFileName, pdf)
}

// Session saves the whole session under its dated default name.
func (e *Exporter) Session() (string, error) {
	var buf bytes.Buffer
	if err := e.Store.Save(&buf); err != nil {
		return "", err
	}
	return e.Workspace.Write(session.DefaultFileName(e.Now()), buf.Bytes())
}
