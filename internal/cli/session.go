package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rahul/pipelineai/internal/workflow"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "List, show and delete archived sessions",
}

var sessionLimit int

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := sessionApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.db.ListSessions(sessionLimit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions saved yet. Use: pipelineai run --save <goal>")
			return nil
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "CREATED", "STATUS", "MODE", "QUERY")
		for _, r := range recs {
			t.Row(r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Status, r.Mode, truncate(r.Query, 60))
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return err
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id|file>",
	Short: "Print the plan, metrics and report of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := sessionApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.loadSession(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), workflow.Digest(st.Snapshot()))
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := sessionApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.DeleteSession(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionListCmd.Flags().IntVarP(&sessionLimit, "limit", "n", 20, "Maximum number of sessions to list")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}

func sessionApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, false)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
