package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rahul/pipelineai/internal/workspace"
)

// WorkspaceTool lets the assistant look at exported artifacts and uploads.
type WorkspaceTool struct {
	WS *workspace.Workspace
}

func NewWorkspaceTool(ws *workspace.Workspace) *WorkspaceTool {
	return &WorkspaceTool{WS: ws}
}

func (w *WorkspaceTool) Name() string {
	return "workspace"
}

func (w *WorkspaceTool) Description() string {
	return "Inspect the analysis workspace: 'list' a directory or 'read' an exported script, notebook, report or uploaded file."
}

func (w *WorkspaceTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"enum":        []string{"read", "list"},
				"description": "The operation to perform",
			},
			"filename": map[string]any{
				"type":        "string",
				"description": "File or directory relative to the workspace root; empty lists the root",
			},
		},
		"required": []string{"command"},
	}
}

func (w *WorkspaceTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Command  string `json:"command"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	switch args.Command {
	case "read":
		if args.Filename == "" {
			return "Error: filename is required for 'read'", nil
		}
		data, err := w.WS.Read(args.Filename)
		if err != nil {
			return "", err
		}
		return truncate(string(data), MaxScrapeChars), nil
	case "list":
		dir := args.Filename
		if dir == "" {
			dir = "."
		}
		entries, err := w.WS.List(dir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "Directory is empty", nil
		}
		var b strings.Builder
		for _, e := range entries {
			if e.IsDir {
				fmt.Fprintf(&b, "[dir] %s\n", e.Name)
			} else {
				fmt.Fprintf(&b, "[file] %s (%d bytes)\n", e.Name, e.Size)
			}
		}
		return b.String(), nil
	default:
		return "Invalid command. Use 'read' or 'list'", nil
	}
}
