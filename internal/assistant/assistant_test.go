package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/governance"
	"github.com/rahul/pipelineai/internal/tools"
)

// toolModel replays choices in order and records each request.
type toolModel struct {
	choices  []*llms.ContentChoice
	err      error
	requests [][]llms.MessageContent
	options  []llms.CallOptions
}

func (m *toolModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.requests = append(m.requests, append([]llms.MessageContent(nil), messages...))
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	m.options = append(m.options, opts)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.choices) == 0 {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "done"}}}, nil
	}
	c := m.choices[0]
	m.choices = m.choices[1:]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{c}}, nil
}

func (m *toolModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func toolCall(id, name, args string) *llms.ContentChoice {
	return &llms.ContentChoice{ToolCalls: []llms.ToolCall{{
		ID:           id,
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
	}}}
}

type echoTool struct {
	calls   []string
	chatIDs []string
}

func (e *echoTool) Name() string               { return "echo" }
func (e *echoTool) Description() string        { return "echoes input" }
func (e *echoTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (e *echoTool) Execute(ctx context.Context, input string) (string, error) {
	e.calls = append(e.calls, input)
	id, _ := tools.ChatID(ctx)
	e.chatIDs = append(e.chatIDs, id)
	return "echo:" + input, nil
}

type memHistory struct {
	rows [][2]string
	err  error
}

func (h *memHistory) AddMessage(chatID, role, content string) error {
	h.rows = append(h.rows, [2]string{role, content})
	return nil
}

func (h *memHistory) GetHistory(chatID string, limit int) ([]llms.MessageContent, error) {
	if h.err != nil {
		return nil, h.err
	}
	var out []llms.MessageContent
	for _, r := range h.rows {
		role := llms.ChatMessageTypeHuman
		if r[0] == "ai" {
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.MessageContent{Role: role, Parts: []llms.ContentPart{llms.TextPart(r[1])}})
	}
	return out, nil
}

func toolResult(t *testing.T, msg llms.MessageContent) llms.ToolCallResponse {
	t.Helper()
	require.Equal(t, llms.ChatMessageTypeTool, msg.Role)
	res, ok := msg.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	return res
}

func TestAsk_ToolLoopAndHistory(t *testing.T) {
	echo := &echoTool{}
	model := &toolModel{choices: []*llms.ContentChoice{
		toolCall("c1", "echo", `{"x":1}`),
		{Content: "Drift looks fine."},
	}}
	hist := &memHistory{rows: [][2]string{{"human", "earlier"}, {"ai", "reply"}}}
	a := New(model, tools.NewRegistry(echo), governance.NewDefaultPolicyEngine(), hist, agent.NewPromptManager(""), nil)

	out, err := a.Ask(context.Background(), "chat-1", "is drift ok?")
	require.NoError(t, err)
	assert.Equal(t, "Drift looks fine.", out)

	assert.Equal(t, []string{`{"x":1}`}, echo.calls)
	assert.Equal(t, []string{"chat-1"}, echo.chatIDs)

	require.Len(t, model.requests, 2)
	first := model.requests[0]
	assert.Equal(t, llms.ChatMessageTypeSystem, first[0].Role)
	assert.Len(t, first, 4) // system, two history turns, question
	require.NotNil(t, model.options[0].Tools)
	assert.Equal(t, "echo", model.options[0].Tools[0].Function.Name)

	second := model.requests[1]
	res := toolResult(t, second[len(second)-1])
	assert.Equal(t, "c1", res.ToolCallID)
	assert.Equal(t, `echo:{"x":1}`, res.Content)

	assert.Equal(t, [2]string{"human", "is drift ok?"}, hist.rows[2])
	assert.Equal(t, [2]string{"ai", "Drift looks fine."}, hist.rows[3])
}

func TestAsk_PolicyDenial(t *testing.T) {
	echo := &echoTool{}
	policy := governance.NewDefaultPolicyEngine()
	policy.DenyTool("echo")
	model := &toolModel{choices: []*llms.ContentChoice{
		toolCall("c1", "echo", `{}`),
		toolCall("c2", "missing", `{}`),
		{Content: "ok"},
	}}
	a := New(model, tools.NewRegistry(echo), policy, nil, nil, nil)

	out, err := a.Ask(context.Background(), "c", "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Empty(t, echo.calls)

	denied := toolResult(t, model.requests[1][len(model.requests[1])-1])
	assert.Contains(t, denied.Content, "Policy denied")
	missing := toolResult(t, model.requests[2][len(model.requests[2])-1])
	assert.Equal(t, "Error: Tool missing not found", missing.Content)
}

func TestAsk_MaxSteps(t *testing.T) {
	var choices []*llms.ContentChoice
	for i := 0; i < 5; i++ {
		choices = append(choices, toolCall("c", "echo", `{}`))
	}
	a := New(&toolModel{choices: choices}, tools.NewRegistry(&echoTool{}), nil, nil, nil, nil)
	a.MaxSteps = 3

	out, err := a.Ask(context.Background(), "c", "loop")
	require.NoError(t, err)
	assert.Equal(t, MaxStepsReply, out)
}

func TestAsk_ModelFailure(t *testing.T) {
	hist := &memHistory{}
	a := New(&toolModel{err: errors.New("quota")}, tools.NewRegistry(), nil, hist, nil, nil)

	_, err := a.Ask(context.Background(), "c", "hi")
	var genErr *agent.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, agent.OpChat, genErr.Op)
	assert.Empty(t, hist.rows)

	_, err = New(nil, nil, nil, nil, nil, nil).Ask(context.Background(), "c", "hi")
	assert.Error(t, err)
}

func TestAsk_HistoryErrorIsNotFatal(t *testing.T) {
	model := &toolModel{choices: []*llms.ContentChoice{{Content: "hello"}}}
	a := New(model, tools.NewRegistry(), nil, &memHistory{err: errors.New("locked")}, nil, nil)

	out, err := a.Ask(context.Background(), "c", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Nil(t, model.options[0].Tools)
}
