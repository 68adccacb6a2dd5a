// Package cli defines the cobra commands of the pipelineai binary.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rahul/pipelineai/internal/observability"
	"github.com/rahul/pipelineai/pkg/config"
)

const defaultConfigPath = "config.json"

var (
	configPath string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "pipelineai",
	Short: "Agentic data science workbench",
	Long: `pipelineai turns an analysis goal into a step plan, writes and reviews
Python code for every step, estimates dashboard metrics and drift, and
writes a final report. Results can be exported as a script, a Jupyter
notebook or a PDF report, and served to Telegram or Discord chats.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to config.json or config.yaml")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sessionCmd)

	// Route all log output through the terminal mutex so it never
	// interrupts the status line's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())
}

// loadConfig reads the config file. A missing default file falls back to the
// built-in defaults; a missing file named on the command line is an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		log.Printf("No %s found, using defaults", configPath)
		return config.Default(), nil
	}
	return nil, err
}
