package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rahul/pipelineai/internal/store"
)

// ScheduleStore is the task table the schedule tool writes to.
type ScheduleStore interface {
	AddTask(chatID string, goal string, intervalSeconds int) (int64, error)
	ListTasks(chatID string) ([]store.Task, error)
	ClearTasks(chatID string) (int64, error)
}

// ScheduleTool manages recurring drift re-analysis for the current chat.
type ScheduleTool struct {
	Store ScheduleStore
}

func NewScheduleTool(s ScheduleStore) *ScheduleTool {
	return &ScheduleTool{Store: s}
}

func (c *ScheduleTool) Name() string {
	return "schedule_analysis"
}

func (c *ScheduleTool) Description() string {
	return "Manage recurring analyses for this chat: 'schedule' a goal to re-run every N seconds, 'list' them, or 'clear' all of them."
}

func (c *ScheduleTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"schedule", "list", "clear"},
				"description": "The action to perform",
			},
			"goal": map[string]any{
				"type":        "string",
				"description": "The analysis goal to run (only for 'schedule')",
			},
			"interval_seconds": map[string]any{
				"type":        "integer",
				"description": fmt.Sprintf("Interval in seconds, minimum %d (only for 'schedule')", store.MinTaskInterval),
			},
		},
		"required": []string{"action"},
	}
}

func (c *ScheduleTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Action   string `json:"action"`
		Goal     string `json:"goal"`
		Interval int    `json:"interval_seconds"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	chatID, ok := ChatID(ctx)
	if !ok {
		return "", fmt.Errorf("missing chat id in context")
	}

	switch args.Action {
	case "clear":
		n, err := c.Store.ClearTasks(chatID)
		if err != nil {
			return "", fmt.Errorf("failed to clear tasks: %v", err)
		}
		return fmt.Sprintf("Cleared %d scheduled analyses.", n), nil

	case "list":
		tasks, err := c.Store.ListTasks(chatID)
		if err != nil {
			return "", fmt.Errorf("failed to list tasks: %v", err)
		}
		if len(tasks) == 0 {
			return "No scheduled analyses.", nil
		}
		var b strings.Builder
		for _, t := range tasks {
			fmt.Fprintf(&b, "#%d every %ds: %s\n", t.ID, t.IntervalSeconds, t.Goal)
		}
		return b.String(), nil

	case "schedule":
		if strings.TrimSpace(args.Goal) == "" {
			return "Error: goal is required.", nil
		}
		if args.Interval < store.MinTaskInterval {
			return fmt.Sprintf("Error: Minimum interval is %d seconds.", store.MinTaskInterval), nil
		}
		if _, err := c.Store.AddTask(chatID, args.Goal, args.Interval); err != nil {
			return "", fmt.Errorf("failed to schedule task: %v", err)
		}
		return fmt.Sprintf("Scheduled analysis '%s' every %d seconds.", args.Goal, args.Interval), nil

	default:
		return "Invalid action. Use 'schedule', 'list' or 'clear'.", nil
	}
}
