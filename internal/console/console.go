// Package console renders a live session log and the metrics dashboard in
// the terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/rahul/pipelineai/internal/agent"
)

var roleColors = map[agent.Role]lipgloss.Color{
	agent.RolePlanner:  lipgloss.Color("#A78BFA"),
	agent.RoleCoder:    lipgloss.Color("#60A5FA"),
	agent.RoleReviewer: lipgloss.Color("#FBBF24"),
	agent.RoleSummary:  lipgloss.Color("#34D399"),
	agent.RoleUser:     lipgloss.Color("#F472B6"),
	agent.RoleSystem:   lipgloss.Color("#9CA3AF"),
}

var driftColors = map[agent.DriftStatus]lipgloss.Color{
	agent.DriftNormal:   lipgloss.Color("#10B981"),
	agent.DriftWarning:  lipgloss.Color("#F59E0B"),
	agent.DriftCritical: lipgloss.Color("#EF4444"),
}

var (
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB")).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("#374151")).PaddingLeft(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7C3AED")).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Width(10)
	valueStyle   = lipgloss.NewStyle().Bold(true)
)

// Renderer writes session log entries to Out as they arrive. Subscribe its
// Print method to a session.Store.
type Renderer struct {
	mu  sync.Mutex
	Out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{Out: out}
}

// Print renders one log entry.
func (r *Renderer) Print(m agent.LogMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.Out, FormatLog(m))
}

// Update renders the dashboard panel.
func (r *Renderer) Update(m agent.DashboardMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.Out, FormatDashboard(m))
}

// FormatLog renders one entry as "hh:mm:ss [Role] content".
func FormatLog(m agent.LogMessage) string {
	color, ok := roleColors[m.Role]
	if !ok {
		color = roleColors[agent.RoleSystem]
	}
	head := timeStyle.Render(m.Timestamp.Local().Format("15:04:05")) + " " +
		lipgloss.NewStyle().Foreground(color).Bold(true).Render("["+string(m.Role)+"]")

	body := m.Content
	switch m.Type {
	case agent.LogCode:
		return head + "\n" + codeStyle.Render(strings.TrimRight(body, "\n"))
	case agent.LogSuccess:
		body = successStyle.Render(body)
	case agent.LogError:
		body = errorStyle.Render(body)
	}
	if strings.Contains(body, "\n") {
		return head + "\n" + body
	}
	return head + " " + body
}

// FormatDashboard renders the metrics as a bordered panel.
func FormatDashboard(m agent.DashboardMetrics) string {
	drift := lipgloss.NewStyle().Foreground(driftColors[m.DriftStatus]).Bold(true).Render(string(m.DriftStatus))
	rows := []string{
		row("Accuracy", m.Accuracy+" ("+m.AccuracyChange+")"),
		row("F1 Score", m.F1Score),
		row("Drift", m.DriftScore+" "+drift),
		row("Latency", m.AvgLatency),
		row("Model", m.ModelStatus),
	}
	if len(m.RecentBatches) > 0 {
		rows = append(rows, "", labelStyle.Render("Batches"))
		for _, b := range m.RecentBatches {
			rows = append(rows, fmt.Sprintf("  %s  %s  %s  quality %s  drift %s (%s)", b.ID, b.Timestamp, b.Version, b.Quality, b.Drift, b.DriftLevel))
		}
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}
