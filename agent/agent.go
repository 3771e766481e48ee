// Package agent turns a model backend, a system prompt and a tool set into a
// runnable unit. The run loop executes model turns and tool calls until the
// model produces a final text answer or the call budget runs out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"personahub/logging"
	"personahub/model"
	"personahub/tool"
	"personahub/trace"
)

// Agent is one LLM-bound participant. Instances are built per request by the
// Builder and are not shared across runs.
type Agent struct {
	name         string
	role         string
	instructions string
	member       bool
	backend      model.Backend
	tools        []tool.Tool
	limiter      *callLimiter
	log          logging.Logger
}

// Option mutates an Agent during construction.
type Option func(a *Agent)

// WithLogger attaches a logger for run diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(a *Agent) { a.log = l }
}

// WithMaxModelCalls bounds how many model invocations one Run may make.
func WithMaxModelCalls(n int) Option {
	return func(a *Agent) { a.limiter = newCallLimiter(n) }
}

// AsMember marks the agent as a team member, which prefixes its system
// prompt with the role tag.
func AsMember() Option {
	return func(a *Agent) { a.member = true }
}

// New assembles an agent. A standalone agent's system prompt is its
// instructions; a team member's is "role: instructions".
func New(name, role, instructions string, backend model.Backend, tools []tool.Tool, optFns ...Option) *Agent {
	a := &Agent{
		name:         name,
		role:         role,
		instructions: instructions,
		backend:      backend,
		tools:        tools,
		limiter:      newCallLimiter(defaultMaxModelCalls),
		log:          logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(a)
	}
	return a
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Role returns the agent's role tag.
func (a *Agent) Role() string { return a.role }

// Backend returns the model backend the agent runs on.
func (a *Agent) Backend() model.Backend { return a.backend }

// SystemPrompt returns the instruction string sent as the system turn.
func (a *Agent) SystemPrompt() string {
	if a.member {
		return fmt.Sprintf("%s: %s", a.role, a.instructions)
	}
	return a.instructions
}

// Tools returns the agent's resolved tool instances.
func (a *Agent) Tools() []tool.Tool { return a.tools }

// AddTools appends extra tools after construction. The team layer uses this
// to give the coordinator its delegation tools.
func (a *Agent) AddTools(tools ...tool.Tool) {
	a.tools = append(a.tools, tools...)
}

// Run executes the conversation until the model stops requesting tools.
// The recorder receives a line per model turn and per tool call; it may be
// nil.
func (a *Agent) Run(ctx context.Context, messages []model.Message, rec *trace.Recorder) (string, error) {
	defs := make([]model.ToolDefinition, 0, len(a.tools))
	byName := make(map[string]tool.Tool, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, tool.Definition(t))
		byName[t.Name()] = t
	}

	history := append([]model.Message(nil), messages...)
	limiter := a.limiter.clone()

	for {
		if err := limiter.take(); err != nil {
			return "", fmt.Errorf("agent %s: %w", a.name, err)
		}

		resp, err := a.backend.Complete(ctx, model.Request{
			Instructions: a.SystemPrompt(),
			Messages:     history,
			Tools:        defs,
		})
		if err != nil {
			rec.Errorf("agent %s model call failed: %v", a.name, err)
			return "", err
		}

		if resp.Usage != nil {
			rec.Debugf("agent %s tokens prompt=%d completion=%d",
				a.name, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}

		if len(resp.ToolCalls) == 0 {
			rec.Infof("agent %s responded (%d chars)", a.name, len(resp.Content))
			return resp.Content, nil
		}

		history = append(history, model.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result := a.executeTool(ctx, byName, tc, rec)
			history = append(history, model.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}
}

// executeTool runs one requested tool call. Failures become a result string
// so the model can recover instead of aborting the run.
func (a *Agent) executeTool(ctx context.Context, byName map[string]tool.Tool, tc model.ToolCall, rec *trace.Recorder) string {
	rec.Infof("agent %s calling tool %s", a.name, tc.Name)

	t, ok := byName[tc.Name]
	if !ok {
		rec.Errorf("agent %s requested unknown tool %s", a.name, tc.Name)
		return fmt.Sprintf("Error: unknown tool %q", tc.Name)
	}

	args := map[string]any{}
	if tc.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			rec.Errorf("tool %s received malformed arguments: %v", tc.Name, err)
			return fmt.Sprintf("Error: malformed arguments for %q", tc.Name)
		}
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		rec.Errorf("tool %s failed: %v", tc.Name, err)
		return fmt.Sprintf("Error: %v", err)
	}

	rec.Debugf("tool %s completed", tc.Name)
	return fmt.Sprintf("%v", result)
}
