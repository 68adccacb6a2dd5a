package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rahul/pipelineai/internal/observability"
	"github.com/tmc/langchaingo/llms"
)

// Models binds one chat model per generation role. Unset roles fall back to Default.
type Models struct {
	Default llms.Model
	Planner llms.Model
	Coder   llms.Model
	Summary llms.Model
	Chatbot llms.Model
}

func (m Models) pick(op Op) llms.Model {
	var chosen llms.Model
	switch op {
	case OpPlan:
		chosen = m.Planner
	case OpCode:
		chosen = m.Coder
	case OpSummary, OpDashboard:
		chosen = m.Summary
	case OpChat:
		chosen = m.Chatbot
	}
	if chosen == nil {
		chosen = m.Default
	}
	return chosen
}

// LLMGenerator implements Generator on top of langchaingo chat models.
type LLMGenerator struct {
	Models  Models
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewLLMGenerator(models Models, prompts *PromptManager, logger *observability.Logger) *LLMGenerator {
	return &LLMGenerator{
		Models:  models,
		Prompts: prompts,
		Logger:  logger,
	}
}

func (g *LLMGenerator) Plan(ctx context.Context, query string, fileNames string) ([]string, error) {
	prompt := fmt.Sprintf("User Query: \"%s\"\n\nAvailable Files: %s\n\nCreate a plan.", query, fileNames)
	text, err := g.generate(ctx, OpPlan, PromptPlanner, prompt, llms.WithTemperature(0.2))
	if err != nil {
		return nil, err
	}
	steps, err := parsePlan(text)
	if err != nil {
		return nil, &GenerationError{Op: OpPlan, Err: err}
	}
	return steps, nil
}

func (g *LLMGenerator) Code(ctx context.Context, step string, stepContext string) (CodeResult, error) {
	prompt := fmt.Sprintf("Current Step: \"%s\"\n\nContext/Previous Steps:\n%s\n\nWrite the Python code to accomplish this step.", step, stepContext)
	text, err := g.generate(ctx, OpCode, PromptCoder, prompt, llms.WithTemperature(0.4))
	if err != nil {
		return CodeResult{}, err
	}
	return parseCode(text), nil
}

func (g *LLMGenerator) Summary(ctx context.Context, executionLog string, metricsContext string) (string, error) {
	if metricsContext == "" {
		metricsContext = "N/A"
	}
	prompt := fmt.Sprintf("Execution Log:\n%s\n\nKey Metrics Derived from Analysis:\n%s\n\nProvide a final summary report integrating these metrics.", executionLog, metricsContext)
	text, err := g.generate(ctx, OpSummary, PromptSummary, prompt, llms.WithTemperature(0.5))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "No summary generated.", nil
	}
	return text, nil
}

func (g *LLMGenerator) DashboardMetrics(ctx context.Context, analysisContext string) (DashboardMetrics, error) {
	prompt := fmt.Sprintf("Based on the following analysis context, generate the dashboard metrics JSON:\n%s", analysisContext)
	text, err := g.generate(ctx, OpDashboard, PromptDashboard, prompt, llms.WithTemperature(0.3), llms.WithJSONMode())
	if err != nil {
		return DashboardMetrics{}, err
	}
	metrics, err := parseMetrics(text)
	if err != nil {
		return DashboardMetrics{}, &GenerationError{Op: OpDashboard, Err: err}
	}
	return metrics, nil
}

// Chat answers a single assistant turn without tools.
func (g *LLMGenerator) Chat(ctx context.Context, history []ChatTurn, message string) (string, error) {
	var lines []string
	for _, h := range history {
		speaker := "Assistant"
		if h.Role == "user" {
			speaker = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, h.Content))
	}
	lines = append(lines, "User: "+message)

	text, err := g.generate(ctx, OpChat, PromptChatbot, strings.Join(lines, "\n"))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "I'm sorry, I couldn't generate a response.", nil
	}
	return text, nil
}

func (g *LLMGenerator) generate(ctx context.Context, op Op, promptName, input string, opts ...llms.CallOption) (string, error) {
	model := g.Models.pick(op)
	if model == nil {
		return "", &GenerationError{Op: op, Err: errors.New("no model configured")}
	}

	system, err := g.Prompts.Instruction(promptName)
	if err != nil {
		return "", &GenerationError{Op: op, Err: err}
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(input)},
		},
	}

	sessionID := observability.SessionID(ctx)
	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("empty response")
	}
	if err != nil {
		g.Logger.LogLLM(sessionID, string(op), input, "", err)
		return "", &GenerationError{Op: op, Err: err}
	}

	choice := resp.Choices[0]
	g.Logger.LogLLM(sessionID, string(op), input, choice.Content, nil)
	g.logUsage(sessionID, op, choice.GenerationInfo)
	return choice.Content, nil
}

func (g *LLMGenerator) logUsage(sessionID string, op Op, info map[string]any) {
	prompt, okP := info["PromptTokens"].(int)
	completion, okC := info["CompletionTokens"].(int)
	if !okP && !okC {
		return
	}
	model, _ := info["Model"].(string)
	g.Logger.LogCost(sessionID, string(op), prompt, completion, model)
}
