package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePhase       EventType = "phase"
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeArtifact    EventType = "artifact"
	EventTypeMetrics     EventType = "metrics"
	EventTypeToolCall    EventType = "tool_call"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeCost        EventType = "cost"
	EventTypeHeartbeat   EventType = "heartbeat"
	EventTypeLLM         EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Op        string    `json:"op,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. Events go to Out as JSON lines; llm
// events are also appended to a size-rotated file.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	llmLogPath string
	maxSize    int64
}

func NewLogger(dir string) *Logger {
	if dir == "" {
		dir = "logs"
	}
	return &Logger{
		out:        NewTermWriter(),
		llmLogPath: filepath.Join(dir, "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// NewWriterLogger logs every event to w and keeps no llm file.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{out: w}
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Fprintf(l.out, "{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(append(data, '\n'))

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPhase(sessionID, phase string) {
	l.Log(Event{
		Type:      EventTypePhase,
		SessionID: sessionID,
		Data:      map[string]string{"phase": phase},
	})
}

func (l *Logger) LogPlan(sessionID string, steps []string) {
	l.Log(Event{
		Type:      EventTypePlan,
		SessionID: sessionID,
		Data:      map[string]any{"steps": steps},
	})
}

func (l *Logger) LogStep(sessionID string, stepID int, status string) {
	l.Log(Event{
		Type:      EventTypeStep,
		SessionID: sessionID,
		Data: map[string]any{
			"step":   stepID,
			"status": status,
		},
	})
}

func (l *Logger) LogArtifact(sessionID, artifactID string, size int) {
	l.Log(Event{
		Type:      EventTypeArtifact,
		SessionID: sessionID,
		Data: map[string]any{
			"artifact": artifactID,
			"bytes":    size,
		},
	})
}

func (l *Logger) LogMetrics(sessionID string, metrics any) {
	l.Log(Event{
		Type:      EventTypeMetrics,
		SessionID: sessionID,
		Data:      metrics,
	})
}

func (l *Logger) LogToolCall(sessionID, tool, args string) {
	l.Log(Event{
		Type:      EventTypeToolCall,
		SessionID: sessionID,
		Data: map[string]string{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogPolicyCheck(sessionID, tool, effect, reason string) {
	l.Log(Event{
		Type:      EventTypePolicyCheck,
		SessionID: sessionID,
		Data: map[string]string{
			"tool":   tool,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogCost(sessionID, op string, promptTokens, completionTokens int, model string) {
	l.Log(Event{
		Type:      EventTypeCost,
		SessionID: sessionID,
		Op:        op,
		Data: map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
			"model":             model,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(sessionID, op string, prompt any, response string, callErr error) {
	data := map[string]any{
		"prompt":   prompt,
		"response": response,
	}
	if callErr != nil {
		data["error"] = callErr.Error()
	}
	l.Log(Event{
		Type:      EventTypeLLM,
		SessionID: sessionID,
		Op:        op,
		Data:      data,
	})
}
