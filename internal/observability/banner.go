package observability

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
	colorYellow   = "\033[93m"
)

var spinnerFrames = []string{"◜", "◝", "◞", "◟"}
var spinnerIdx = 0

// termMu synchronizes ALL terminal output so that the cursor
// save/restore in PrintLiveStatus can never be interrupted by a log write.
var termMu sync.Mutex

// IsTTY reports whether stdout is an interactive terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ------------------------------------------------------------
// TermWriter – a mutex-guarded io.Writer for log output.
// ------------------------------------------------------------

type termWriter struct{}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return os.Stderr.Write(p)
}

// NewTermWriter returns an io.Writer suitable for log.SetOutput().
// It serialises writes with PrintLiveStatus via termMu.
func NewTermWriter() *termWriter {
	return &termWriter{}
}

// ------------------------------------------------------------
// Banner
// ------------------------------------------------------------

func PrintBanner() {
	fmt.Print("\033[2J\033[H")

	banner := `
    ____  _            ___            ___    ____
   / __ \(_)___  ___  / (_)___  ___  /   |  /  _/
  / /_/ / / __ \/ _ \/ / / __ \/ _ \/ /| |  / /
 / ____/ / /_/ /  __/ / / / / /  __/ ___ |_/ /
/_/   /_/ .___/\___/_/_/_/ /_/\___/_/  |_/___/
       /_/
        >> AGENTIC DATA SCIENCE WORKBENCH <<
`

	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}

func InitializeTerminal() {
	// Header/Logo area: 1-9
	// Dashboard/Status: 10
	// Scrolling Logs: 12+
	fmt.Print("\033[12;r")
	fmt.Print("\033[12;1H")
}

func CleanupTerminal() {
	fmt.Print("\033[r\033[2J\033[H")
}

// ------------------------------------------------------------
// Live Status
// ------------------------------------------------------------

// StatusLine renders the one-line status dashboard without escape sequences
// for cursor placement.
func StatusLine(s Snapshot, now time.Time) string {
	pulseText := "OFFLINE"
	pulseColor := colorNeonMag
	delta := now.Sub(s.LastHeartbeat)
	if delta < 40*time.Second {
		pulseText = "HEALTHY"
		pulseColor = colorNeonCyan
	} else if delta < 90*time.Second {
		pulseText = "LAGGING"
		pulseColor = colorPurple
	}

	agentName := s.ActiveAgent
	statusColor := colorReset
	switch s.AgentStatus {
	case "THINKING":
		statusColor = colorNeonCyan
	case "WORKING":
		statusColor = colorNeonMag
	case "COMPLETED":
		statusColor = colorYellow
	}
	if agentName == "" {
		agentName = "-"
	}

	spinner := " "
	if s.AgentStatus == "THINKING" || s.AgentStatus == "WORKING" {
		spinner = spinnerFrames[spinnerIdx]
		spinnerIdx = (spinnerIdx + 1) % len(spinnerFrames)
	}

	task := s.ActiveTask
	if task == "" {
		task = "Waiting..."
	}
	if r := []rune(task); len(r) > 32 {
		task = string(r[:29]) + "..."
	}

	return fmt.Sprintf("%s[%s] %s%-8s%s | %s%s %-9s%s %-8s [%s] %s%s%s",
		colorReset,
		s.LastHeartbeat.Format("15:04:05"),
		pulseColor, pulseText, colorReset,
		statusColor, spinner, s.AgentStatus, colorReset,
		agentName,
		task,
		colorPurple, now.Sub(startTime).Round(time.Second), colorReset,
	)
}

func PrintLiveStatus() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memMB := float64(m.Alloc) / 1024 / 1024
	totalMB := float64(m.Sys) / 1024 / 1024
	memPercent := memMB / totalMB

	barWidth := 20
	filled := clamp(int(memPercent*float64(barWidth)), 0, barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("▒", barWidth-filled)

	line := StatusLine(GetStatus(), time.Now())
	statusStr := fmt.Sprintf("\033[s\033[10;1H\033[K%s [%s%s %.1fMB%s]\033[u", line, colorNeonCyan, bar, memMB, colorReset)

	termMu.Lock()
	fmt.Print(statusStr)
	termMu.Unlock()
}
