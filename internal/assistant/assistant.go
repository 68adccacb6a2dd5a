// Package assistant answers free-form questions about a session with a
// tool-using chat model.
package assistant

import (
	"context"
	"fmt"
	"log"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/governance"
	"github.com/rahul/pipelineai/internal/observability"
	"github.com/rahul/pipelineai/internal/store"
	"github.com/rahul/pipelineai/internal/tools"
)

const (
	defaultMaxSteps     = 10
	defaultHistoryLimit = 10
)

// MaxStepsReply is returned when the model keeps calling tools without answering.
const MaxStepsReply = "Thinking too much... I've reached the maximum reasoning steps. Please try a simpler request."

// History is the chat memory the assistant reads from and appends to.
type History interface {
	AddMessage(chatID string, role string, content string) error
	GetHistory(chatID string, limit int) ([]llms.MessageContent, error)
}

// Assistant is a ReAct loop over a chat model and a tool registry.
type Assistant struct {
	Model    llms.Model
	Registry *tools.Registry
	Policy   governance.PolicyEngine
	History  History
	Prompts  *agent.PromptManager
	Logger   *observability.Logger

	MaxSteps     int
	HistoryLimit int
}

func New(model llms.Model, registry *tools.Registry, policy governance.PolicyEngine, history History, prompts *agent.PromptManager, logger *observability.Logger) *Assistant {
	return &Assistant{
		Model:        model,
		Registry:     registry,
		Policy:       policy,
		History:      history,
		Prompts:      prompts,
		Logger:       logger,
		MaxSteps:     defaultMaxSteps,
		HistoryLimit: defaultHistoryLimit,
	}
}

// Ask answers message in the context of chatID's history. On failure the
// returned error is an *agent.GenerationError and the caller picks the reply,
// normally agent.FallbackChat.
func (a *Assistant) Ask(ctx context.Context, chatID string, message string) (string, error) {
	if a.Model == nil {
		return "", &agent.GenerationError{Op: agent.OpChat, Err: fmt.Errorf("no chat model configured")}
	}
	ctx = tools.WithChatID(ctx, chatID)

	observability.SetStatus(string(agent.RoleChatbot), string(agent.StatusThinking), message)
	defer observability.SetStatus("", string(agent.StatusIdle), "")

	var messages []llms.MessageContent
	if a.Prompts != nil {
		systemPrompt, err := a.Prompts.ChatbotPrompt()
		if err != nil {
			log.Printf("Warning: Failed to load chatbot prompt: %v", err)
		}
		if systemPrompt != "" {
			messages = append(messages, llms.MessageContent{
				Role:  llms.ChatMessageTypeSystem,
				Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
			})
		}
	}
	if a.History != nil {
		history, err := a.History.GetHistory(chatID, a.HistoryLimit)
		if err != nil {
			log.Printf("Warning: Failed to load history for %s: %v", chatID, err)
		}
		messages = append(messages, history...)
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(message)},
	})

	reply, err := a.react(ctx, chatID, messages)
	if err != nil {
		return "", &agent.GenerationError{Op: agent.OpChat, Err: err}
	}

	if a.History != nil {
		if err := a.History.AddMessage(chatID, store.RoleHuman, message); err != nil {
			log.Printf("Warning: Failed to store message: %v", err)
		}
		if err := a.History.AddMessage(chatID, store.RoleAI, reply); err != nil {
			log.Printf("Warning: Failed to store reply: %v", err)
		}
	}
	return reply, nil
}

func (a *Assistant) react(ctx context.Context, chatID string, messages []llms.MessageContent) (string, error) {
	var opts []llms.CallOption
	if defs := a.toolDefinitions(); len(defs) > 0 {
		opts = append(opts, llms.WithTools(defs))
	}

	maxSteps := a.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	for i := 0; i < maxSteps; i++ {
		resp, err := a.Model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty response from model")
		}
		choice := resp.Choices[0]

		var assistantParts []llms.ContentPart
		if choice.Content != "" {
			assistantParts = append(assistantParts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistantParts = append(assistantParts, tc)
		}
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: assistantParts,
		})

		// No tool calls means this is the final answer.
		if len(choice.ToolCalls) == 0 {
			if choice.Content == "" {
				return "I'm sorry, I couldn't generate a response.", nil
			}
			return choice.Content, nil
		}

		for _, tc := range choice.ToolCalls {
			result := a.runTool(ctx, chatID, i+1, tc)
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       tc.FunctionCall.Name,
						Content:    result,
					},
				},
			})
		}
	}
	return MaxStepsReply, nil
}

// runTool executes one tool call after the policy check. Every failure is
// reported back to the model as the tool result.
func (a *Assistant) runTool(ctx context.Context, chatID string, step int, tc llms.ToolCall) string {
	if tc.FunctionCall == nil {
		return "Error: malformed tool call"
	}
	name, args := tc.FunctionCall.Name, tc.FunctionCall.Arguments

	var tool tools.Tool
	if a.Registry != nil {
		tool = a.Registry.Get(name)
	}
	if tool == nil {
		return fmt.Sprintf("Error: Tool %s not found", name)
	}

	if a.Policy != nil {
		res, err := a.Policy.Evaluate(ctx, governance.Request{Tool: name, Arguments: args, ChatID: chatID})
		if err != nil {
			return fmt.Sprintf("Error: policy check failed: %v", err)
		}
		a.Logger.LogPolicyCheck(chatID, name, string(res.Effect), res.Reason)
		if res.Effect == governance.EffectDeny {
			log.Printf("[Step %d] Tool %s denied: %s", step, name, res.Reason)
			return fmt.Sprintf("Error: Policy denied: %s", res.Reason)
		}
	}

	observability.SetStatus(string(agent.RoleChatbot), string(agent.StatusWorking), name)
	a.Logger.LogToolCall(chatID, name, args)
	log.Printf("[Step %d] Executing tool %s with args: %s", step, name, args)

	out, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

func (a *Assistant) toolDefinitions() []llms.Tool {
	if a.Registry == nil {
		return nil
	}
	var defs []llms.Tool
	for _, t := range a.Registry.List() {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
