package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personahub/model"
	"personahub/tool"
	"personahub/trace"
)

// scriptedBackend returns a fixed sequence of responses, one per Complete
// call, then repeats the last one.
type scriptedBackend struct {
	mu        sync.Mutex
	responses []*model.Response
	calls     int
	requests  []model.Request
}

func (s *scriptedBackend) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

func (s *scriptedBackend) ExtractText(ctx context.Context, prompt, imageURL string) (string, error) {
	return "", nil
}

func (s *scriptedBackend) Info() model.Info {
	return model.Info{Name: "scripted", Provider: "mock", SupportsTools: true}
}

func TestAgentSystemPrompt(t *testing.T) {
	standalone := New("Research Bot", "specialist", "Research topics thoroughly", model.NewMockBackend("m", "mock"), nil)
	assert.Equal(t, "Research topics thoroughly", standalone.SystemPrompt())

	member := New("Research Bot", "specialist", "Research topics thoroughly", model.NewMockBackend("m", "mock"), nil, AsMember())
	assert.Equal(t, "specialist: Research topics thoroughly", member.SystemPrompt())
}

func TestAgentRunPlainAnswer(t *testing.T) {
	backend := model.NewMockBackend("m", "mock")
	backend.AddResponse("question", "answer")

	a := New("Bot", "assistant", "Answer questions", backend, nil, AsMember())

	out, err := a.Run(context.Background(), []model.Message{{Role: "user", Content: "question"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "assistant: Answer questions", reqs[0].Instructions)
}

func TestAgentRunExecutesToolCalls(t *testing.T) {
	backend := &scriptedBackend{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{{ID: "c1", Name: "lookup", Arguments: `{"key":"x"}`}}},
		{Content: "found it", FinishReason: "stop"},
	}}

	lookup := tool.NewFunctionTool("lookup", "looks things up",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{"type": "string"},
			},
			"required": []string{"key"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return "value for " + tool.StringArg(args, "key"), nil
		},
	)

	rec := trace.NewRecorder(nil)
	a := New("Bot", "specialist", "Use tools", backend, []tool.Tool{lookup})

	out, err := a.Run(context.Background(), []model.Message{{Role: "user", Content: "find x"}}, rec)
	require.NoError(t, err)
	assert.Equal(t, "found it", out)

	// Second model call must carry the assistant tool request and the tool
	// result.
	require.Len(t, backend.requests, 2)
	second := backend.requests[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, "assistant", second[1].Role)
	require.Len(t, second[1].ToolCalls, 1)
	assert.Equal(t, "tool", second[2].Role)
	assert.Equal(t, "value for x", second[2].Content)
	assert.Equal(t, "c1", second[2].ToolCallID)

	transcript := rec.Transcript()
	assert.Contains(t, transcript, "calling tool lookup")
}

func TestAgentRunToolFailureContinues(t *testing.T) {
	backend := &scriptedBackend{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{{ID: "c1", Name: "boom", Arguments: `{}`}}},
		{Content: "recovered", FinishReason: "stop"},
	}}

	boom := tool.NewFunctionTool("boom", "always fails",
		map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, assert.AnError
		},
	)

	a := New("Bot", "specialist", "Use tools", backend, []tool.Tool{boom})

	out, err := a.Run(context.Background(), []model.Message{{Role: "user", Content: "go"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)

	second := backend.requests[1].Messages
	assert.Contains(t, second[len(second)-1].Content, "Error:")
}

func TestAgentRunUnknownToolReported(t *testing.T) {
	backend := &scriptedBackend{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{{ID: "c1", Name: "ghost", Arguments: `{}`}}},
		{Content: "done", FinishReason: "stop"},
	}}

	a := New("Bot", "specialist", "Use tools", backend, nil)

	out, err := a.Run(context.Background(), []model.Message{{Role: "user", Content: "go"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	second := backend.requests[1].Messages
	assert.Contains(t, second[len(second)-1].Content, `unknown tool "ghost"`)
}

func TestAgentRunCallBudget(t *testing.T) {
	// The model keeps requesting tools forever.
	backend := &scriptedBackend{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{{ID: "c", Name: "loop", Arguments: `{}`}}},
	}}

	loop := tool.NewFunctionTool("loop", "returns nothing useful",
		map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) {
			return "again", nil
		},
	)

	a := New("Bot", "specialist", "Use tools", backend, []tool.Tool{loop}, WithMaxModelCalls(3))

	_, err := a.Run(context.Background(), []model.Message{{Role: "user", Content: "go"}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallBudgetExhausted)
	assert.Equal(t, 3, backend.calls)
}

func TestBuilderResolvesBackendAndTools(t *testing.T) {
	models := model.NewRegistry()
	models.Register("mock", func(modelID string) model.Backend {
		return model.NewMockBackend(modelID, "mock")
	})

	tools := tool.NewRegistry()
	tools.Register("lookup", func() tool.Tool {
		return tool.NewFunctionTool("lookup", "d", map[string]any{"type": "object"},
			func(ctx context.Context, args map[string]any) (any, error) { return nil, nil })
	})

	b := NewBuilder(models, tools, nil)

	a, err := b.Build(Config{
		Name:         "Bot",
		Role:         "specialist",
		Instructions: "Do things",
		Provider:     "mock",
		ModelID:      "m1",
		ToolNames:    []string{"lookup"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bot", a.Name())
	assert.Equal(t, "m1", a.Backend().Info().Name)
	require.Len(t, a.Tools(), 1)
}

func TestBuilderUnknownProviderFails(t *testing.T) {
	b := NewBuilder(model.NewRegistry(), tool.NewRegistry(), nil)

	_, err := b.Build(Config{Name: "Bot", Provider: "nope"})
	require.Error(t, err)

	var unknownErr *model.UnknownProviderError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestBuilderUnknownToolFails(t *testing.T) {
	models := model.NewRegistry()
	models.Register("mock", func(modelID string) model.Backend {
		return model.NewMockBackend(modelID, "mock")
	})

	b := NewBuilder(models, tool.NewRegistry(), nil)

	_, err := b.Build(Config{Name: "Bot", Provider: "mock", ToolNames: []string{"ghost"}})
	require.Error(t, err)

	var unknownErr *tool.UnknownToolError
	assert.ErrorAs(t, err, &unknownErr)
}
