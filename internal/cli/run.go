package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/console"
	"github.com/rahul/pipelineai/internal/export"
	"github.com/rahul/pipelineai/internal/session"
	"github.com/rahul/pipelineai/internal/workflow"
	"github.com/rahul/pipelineai/pkg/config"
)

var runCmd = &cobra.Command{
	Use:   "run [goal]",
	Short: "Plan, code and report one analysis",
	Long: `Run the full workflow for one goal: plan, per-step code and review,
dashboard metrics and final report. Files passed with --file are described
to the planner by name only; their contents are never read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var (
	runFiles    []string
	runDrift    float64
	runAccuracy float64
	runAttempts int
	runSimple   bool
	runLoad     string
	runSave     bool
	runTemplate bool
	runNoPacing bool
)

func init() {
	runCmd.Flags().StringSliceVarP(&runFiles, "file", "f", nil, "Data or model file to describe to the planner (repeatable)")
	runCmd.Flags().Float64Var(&runDrift, "drift-threshold", 0, "Drift threshold (P-value), 0.01-0.20")
	runCmd.Flags().Float64Var(&runAccuracy, "accuracy-threshold", 0, "Max accuracy drop, 0.01-0.20")
	runCmd.Flags().IntVar(&runAttempts, "max-retraining", 0, "Max retraining attempts, 1-10")
	runCmd.Flags().BoolVar(&runSimple, "simple", false, "Record the session in simple mode")
	runCmd.Flags().StringVar(&runLoad, "load", "", "Continue from a saved session file or id")
	runCmd.Flags().BoolVar(&runSave, "save", false, "Save the session to the workspace and the session archive")
	runCmd.Flags().BoolVar(&runTemplate, "template", false, "Load the end-to-end pipeline template before running")
	runCmd.Flags().BoolVar(&runNoPacing, "no-pacing", false, "Skip the simulated execution and review delays")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pipeline, err := pipelineFlags(cmd, cfg.Pipeline)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	st := session.NewStore()
	if runLoad != "" {
		if st, err = a.loadSession(runLoad); err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
	}

	out := console.NewRenderer(cmd.OutOrStdout())
	st.Subscribe(out.Print)

	if runSimple {
		st.SetMode(agent.ModeSimple)
	}
	st.SetConfig(pipeline)

	if len(runFiles) > 0 {
		files, err := describeFiles(runFiles)
		if err != nil {
			return err
		}
		st.AddFiles(files...)
	}
	if runTemplate {
		export.NewExporter(st, a.workspace).LoadTemplate()
	}

	goal := st.Snapshot().Query
	if len(args) > 0 {
		goal = args[0]
	}
	if strings.TrimSpace(goal) == "" {
		return fmt.Errorf("provide an analysis goal")
	}

	o := workflow.NewOrchestrator(a.generator, st, out, a.logger)
	o.Pacing = a.pacing()
	if runNoPacing {
		o.Pacing = workflow.Pacing{}
	}

	snap := st.Snapshot()
	if err := o.Run(cmd.Context(), workflow.Request{
		Goal:   goal,
		Files:  snap.Files,
		Config: snap.PipelineConfig,
	}); err != nil {
		return err
	}

	if !runSave {
		return nil
	}
	path, err := export.NewExporter(st, a.workspace).Session()
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	rec, err := workflow.Record(st.ID(), st.Snapshot(), time.Now())
	if err != nil {
		return err
	}
	if _, err := a.db.SaveSession(rec); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session %s saved to %s\n", rec.ID, path)
	return nil
}

// pipelineFlags overlays the threshold flags that were set on base and
// validates the result.
func pipelineFlags(cmd *cobra.Command, base agent.PipelineConfig) (agent.PipelineConfig, error) {
	if cmd.Flags().Changed("drift-threshold") {
		base.DriftThreshold = runDrift
	}
	if cmd.Flags().Changed("accuracy-threshold") {
		base.AccuracyThreshold = runAccuracy
	}
	if cmd.Flags().Changed("max-retraining") {
		base.MaxRetrainingAttempts = runAttempts
	}
	check := config.Config{Pipeline: base}
	if err := check.Validate(); err != nil {
		return agent.PipelineConfig{}, err
	}
	return base, nil
}

func describeFiles(paths []string) ([]agent.FileData, error) {
	files := make([]agent.FileData, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading file info: %w", err)
		}
		files = append(files, session.Describe(filepath.Base(p), info.Size()))
	}
	return files, nil
}
