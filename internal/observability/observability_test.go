package observability

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func decodeEvents(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()
	var events []Event
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q is not an event: %v", sc.Text(), err)
		}
		events = append(events, e)
	}
	return events
}

func TestWriterLoggerEmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	l.LogPhase("s1", "plan")
	l.LogStep("s1", 2, "completed")
	l.LogToolCall("chat-9", "search", `{"query":"drift"}`)
	l.LogLLM("s1", "code", "prompt", "", errors.New("timeout"))

	events := decodeEvents(t, &buf)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[0].Type != EventTypePhase || events[0].SessionID != "s1" {
		t.Errorf("phase event: got %+v", events[0])
	}
	if events[1].Type != EventTypeStep {
		t.Errorf("step event type: got %s", events[1].Type)
	}
	if events[3].Op != "code" {
		t.Errorf("llm op: got %q", events[3].Op)
	}
	data, ok := events[3].Data.(map[string]any)
	if !ok || data["error"] != "timeout" {
		t.Errorf("llm error not recorded: %+v", events[3].Data)
	}
	for _, e := range events {
		if e.Timestamp.IsZero() {
			t.Errorf("event %s has no timestamp", e.Type)
		}
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.LogPhase("s", "plan")
	l.LogHeartbeat()
}

func TestLLMEventsGoToFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l := &Logger{out: &buf, llmLogPath: filepath.Join(dir, "llm.jsonl"), maxSize: 10}

	l.LogLLM("s", "plan", "p1", "r1", nil)
	l.LogPhase("s", "plan")
	l.LogLLM("s", "plan", "p2", "r2", nil)

	// The first write pushed the file over maxSize, so the second rotated it.
	old, err := os.ReadFile(filepath.Join(dir, "llm.jsonl.old"))
	if err != nil {
		t.Fatalf("rotated file missing: %v", err)
	}
	if !strings.Contains(string(old), "p1") {
		t.Errorf("rotated file: got %s", old)
	}
	cur, err := os.ReadFile(filepath.Join(dir, "llm.jsonl"))
	if err != nil {
		t.Fatalf("current file missing: %v", err)
	}
	if strings.Contains(string(cur), "phase") || !strings.Contains(string(cur), "p2") {
		t.Errorf("current file: got %s", cur)
	}
}

func TestStatusLine(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	line := StatusLine(Snapshot{
		ActiveAgent:   "Coder",
		AgentStatus:   "WORKING",
		ActiveTask:    "Train a gradient boosted model on the churn table",
		LastHeartbeat: now.Add(-5 * time.Second),
	}, now)
	if !strings.Contains(line, "HEALTHY") || !strings.Contains(line, "Coder") {
		t.Errorf("status line: %q", line)
	}
	if !strings.Contains(line, "Train a gradient boosted mode...") {
		t.Errorf("task not truncated: %q", line)
	}

	line = StatusLine(Snapshot{AgentStatus: "WORKING", ActiveTask: strings.Repeat("é", 40), LastHeartbeat: now}, now)
	if !utf8.ValidString(line) || !strings.Contains(line, strings.Repeat("é", 29)+"...") {
		t.Errorf("multi-byte task not truncated by rune: %q", line)
	}

	line = StatusLine(Snapshot{AgentStatus: "IDLE", LastHeartbeat: now.Add(-2 * time.Minute)}, now)
	if !strings.Contains(line, "OFFLINE") || !strings.Contains(line, "Waiting...") {
		t.Errorf("idle status line: %q", line)
	}
}

func TestSessionIDContext(t *testing.T) {
	ctx := WithSessionID(context.Background(), "abc")
	if got := SessionID(ctx); got != "abc" {
		t.Errorf("SessionID: got %q", got)
	}
	if got := SessionID(context.Background()); got != "" {
		t.Errorf("empty ctx: got %q", got)
	}
}

func TestSetStatus(t *testing.T) {
	SetStatus("Planner", "THINKING", "plan")
	s := GetStatus()
	if s.ActiveAgent != "Planner" || s.AgentStatus != "THINKING" || s.ActiveTask != "plan" {
		t.Errorf("status: got %+v", s)
	}
	SetStatus("", "IDLE", "")
}
