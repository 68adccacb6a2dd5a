package agent

import (
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed prompts/*.md
var defaultPrompts embed.FS

// Prompt file names, one per generation role.
const (
	PromptPlanner   = "planner.md"
	PromptCoder     = "coder.md"
	PromptSummary   = "summary.md"
	PromptDashboard = "dashboard.md"
	PromptChatbot   = "chatbot.md"
)

var rolePrompts = map[string]bool{
	PromptPlanner:   true,
	PromptCoder:     true,
	PromptSummary:   true,
	PromptDashboard: true,
	PromptChatbot:   true,
}

// PromptManager resolves system instructions. Files in Directory override
// the embedded defaults; an empty Directory uses the defaults only.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// Instruction returns the system instruction stored under name.
func (pm *PromptManager) Instruction(name string) (string, error) {
	if pm.Directory != "" {
		data, err := os.ReadFile(filepath.Join(pm.Directory, name))
		if err == nil {
			return strings.TrimSpace(string(data)), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read prompt %s: %v", name, err)
		}
	}

	data, err := defaultPrompts.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("unknown prompt %s", name)
	}
	return strings.TrimSpace(string(data)), nil
}

// ChatbotPrompt returns the assistant instruction followed by every extra
// markdown file in Directory (persona, product notes, ...).
func (pm *PromptManager) ChatbotPrompt() (string, error) {
	base, err := pm.Instruction(PromptChatbot)
	if err != nil {
		return "", err
	}
	contents := []string{base}

	if pm.Directory == "" {
		return base, nil
	}
	files, err := os.ReadDir(pm.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return "", fmt.Errorf("failed to read prompts directory: %v", err)
	}

	order := map[string]int{
		"identity.md": 1,
		"product.md":  2,
		"user.md":     3,
	}

	sort.Slice(files, func(i, j int) bool {
		oi, okI := order[files[i].Name()]
		oj, okJ := order[files[j].Name()]
		if okI && okJ {
			return oi < oj
		}
		if okI {
			return true
		}
		if okJ {
			return false
		}
		return files[i].Name() < files[j].Name()
	})

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".md") || rolePrompts[f.Name()] {
			continue
		}
		path := filepath.Join(pm.Directory, f.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: Failed to read prompt file %s: %v", path, err)
			continue
		}
		contents = append(contents, strings.TrimSpace(string(data)))
	}

	return strings.Join(contents, "\n\n---\n\n"), nil
}
