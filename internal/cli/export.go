package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/export"
	"github.com/rahul/pipelineai/internal/session"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export artifacts of a saved session into the workspace",
}

var exportSession string

// exportKinds maps each export subcommand to the exporter call it makes.
var exportKinds = []struct {
	use   string
	short string
	fn    func(cmd *cobra.Command, e *export.Exporter) (string, error)
}{
	{"notebook", "Export the pipeline code as a Jupyter notebook", func(cmd *cobra.Command, e *export.Exporter) (string, error) {
		return e.Notebook()
	}},
	{"script", "Export the pipeline code as a Python script", func(cmd *cobra.Command, e *export.Exporter) (string, error) {
		return e.Artifact(agent.ArtifactFullCode)
	}},
	{"report", "Export the final report as Markdown", func(cmd *cobra.Command, e *export.Exporter) (string, error) {
		return e.Artifact(agent.ArtifactFinalReport)
	}},
	{"metrics", "Export the dashboard metrics as JSON", func(cmd *cobra.Command, e *export.Exporter) (string, error) {
		return e.Artifact(agent.ArtifactDashboardMetrics)
	}},
	{"plan", "Export the plan as a Graphviz DOT graph", func(cmd *cobra.Command, e *export.Exporter) (string, error) {
		return e.Plan()
	}},
	{"pdf", "Print the final report to PDF with headless Chrome", func(cmd *cobra.Command, e *export.Exporter) (string, error) {
		return e.ReportPDF(cmd.Context())
	}},
}

var exportTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the end-to-end ML pipeline template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := export.NewExporter(session.NewStore(), a.workspace).Template()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	exportCmd.PersistentFlags().StringVarP(&exportSession, "session", "s", "", "Saved session file or id (required)")

	for _, k := range exportKinds {
		fn := k.fn
		exportCmd.AddCommand(&cobra.Command{
			Use:   k.use,
			Short: k.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runExport(cmd, fn)
			},
		})
	}
	exportCmd.AddCommand(exportTemplateCmd)
}

func runExport(cmd *cobra.Command, fn func(*cobra.Command, *export.Exporter) (string, error)) error {
	if exportSession == "" {
		return fmt.Errorf("--session is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.loadSession(exportSession)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	path, err := fn(cmd, export.NewExporter(st, a.workspace))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
